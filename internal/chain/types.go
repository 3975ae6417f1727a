package chain

import (
	"encoding/json"
	"fmt"
)

// RPCRequest is a JSON-RPC 2.0 request.
type RPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

// RPCResponse is a JSON-RPC 2.0 response.
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// contractCall is the wire form of a contract invocation.
type contractCall struct {
	Contract string        `json:"contract"`
	Method   string        `json:"method"`
	Args     []interface{} `json:"args"`
}

// callReply carries the decoded return value of a read-only call.
type callReply struct {
	Value json.RawMessage `json:"value"`
}

// sendReply carries the transaction id of a broadcast write.
type sendReply struct {
	TxID string `json:"txid"`
}

// Receipt is the finalized result of a submitted transaction. Reverted
// means the ledger definitively rejected the write; it is never retried
// by this layer.
type Receipt struct {
	TxID        string `json:"txid"`
	BlockNumber uint64 `json:"blockNumber"`
	GasUsed     uint64 `json:"gasUsed"`
	Reverted    bool   `json:"reverted"`
}
