// Package chain provides ledger interaction for the reward layer: a
// JSON-RPC client, the rewards contract binding, and classification of
// write failures.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a JSON-RPC client for a ledger node.
type Client struct {
	rpcURL     string
	httpClient *http.Client
}

// ClientConfig holds client configuration.
type ClientConfig struct {
	RPCURL  string
	Timeout time.Duration
}

// NewClient creates a ledger client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("RPC URL required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		rpcURL: cfg.RPCURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Call makes an RPC call to the ledger node.
func (c *Client) Call(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	if params == nil {
		params = []interface{}{}
	}

	req := RPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var rpcResp RPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}

	return rpcResp.Result, nil
}

// BlockNumber returns the current block height.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	result, err := c.Call(ctx, "getblocknumber")
	if err != nil {
		return 0, err
	}

	var height uint64
	if err := json.Unmarshal(result, &height); err != nil {
		return 0, fmt.Errorf("unmarshal block number: %w", err)
	}
	return height, nil
}

// CallContract invokes a read-only contract method and returns its value.
// Reads are always issued fresh; nothing is cached across requests.
func (c *Client) CallContract(ctx context.Context, contract, method string, args ...interface{}) (json.RawMessage, error) {
	if args == nil {
		args = []interface{}{}
	}
	result, err := c.Call(ctx, "callcontract", contractCall{Contract: contract, Method: method, Args: args})
	if err != nil {
		return nil, err
	}

	var reply callReply
	if err := json.Unmarshal(result, &reply); err != nil {
		return nil, fmt.Errorf("unmarshal %s result: %w", method, err)
	}
	return reply.Value, nil
}

// SendContractTransaction broadcasts a state-changing contract invocation
// signed by the node-held admin key and returns the transaction id.
func (c *Client) SendContractTransaction(ctx context.Context, contract, method string, args ...interface{}) (string, error) {
	if args == nil {
		args = []interface{}{}
	}
	result, err := c.Call(ctx, "sendcontracttx", contractCall{Contract: contract, Method: method, Args: args})
	if err != nil {
		return "", err
	}

	var reply sendReply
	if err := json.Unmarshal(result, &reply); err != nil {
		return "", fmt.Errorf("unmarshal %s tx: %w", method, err)
	}
	if reply.TxID == "" {
		return "", fmt.Errorf("%s: node returned empty transaction id", method)
	}
	return reply.TxID, nil
}

// GetTransactionReceipt returns the receipt for a transaction. While the
// transaction is unconfirmed the node answers with a not-found error,
// which callers treat as transient.
func (c *Client) GetTransactionReceipt(ctx context.Context, txID string) (*Receipt, error) {
	result, err := c.Call(ctx, "gettxreceipt", txID)
	if err != nil {
		return nil, err
	}

	var receipt Receipt
	if err := json.Unmarshal(result, &receipt); err != nil {
		return nil, fmt.Errorf("unmarshal receipt: %w", err)
	}
	return &receipt, nil
}

// isNotFoundError reports whether err is the node's transient
// transaction-not-found answer.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if rpcErr, ok := err.(*RPCError); ok && rpcErr.Code == -100 {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}
