package chain

import (
	"context"
	stderrors "errors"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/verdant-network/reward-layer/internal/errors"
)

// testNode is a scripted ledger node: rpcHandler answers every call.
func testNode(t *testing.T, rpcHandler func(method string, params []json.RawMessage) (interface{}, *RPCError)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
			ID     int               `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode rpc request: %v", err)
		}

		result, rpcErr := rpcHandler(req.Method, req.Params)
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func decodeCall(t *testing.T, params []json.RawMessage) contractCall {
	t.Helper()
	if len(params) != 1 {
		t.Fatalf("expected 1 param, got %d", len(params))
	}
	var call contractCall
	if err := json.Unmarshal(params[0], &call); err != nil {
		t.Fatalf("decode contract call: %v", err)
	}
	return call
}

func newContract(t *testing.T, url string) *RewardsContract {
	t.Helper()
	client, err := NewClient(ClientConfig{RPCURL: url})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	contract, err := NewRewardsContract(client, ContractConfig{
		Address:      "0xrewards",
		PollInterval: 5 * time.Millisecond,
		WaitTimeout:  200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new contract: %v", err)
	}
	return contract
}

func TestRewardsContractReads(t *testing.T) {
	node := testNode(t, func(method string, params []json.RawMessage) (interface{}, *RPCError) {
		if method != "callcontract" {
			t.Fatalf("unexpected rpc method %s", method)
		}
		call := decodeCall(t, params)
		if call.Contract != "0xrewards" {
			t.Fatalf("unexpected contract %s", call.Contract)
		}
		switch call.Method {
		case "getCurrentCycle":
			return callReply{Value: json.RawMessage(`7`)}, nil
		case "getNextCycleBlock":
			return callReply{Value: json.RawMessage(`123456`)}, nil
		case "rewards":
			return callReply{Value: json.RawMessage(`"1000000000000000000000"`)}, nil
		case "rewardsLeft":
			return callReply{Value: json.RawMessage(`"990000000000000000000"`)}, nil
		case "isUserMaxSubmissionsReached":
			return callReply{Value: json.RawMessage(`false`)}, nil
		default:
			t.Fatalf("unexpected contract method %s", call.Method)
			return nil, nil
		}
	})
	defer node.Close()

	contract := newContract(t, node.URL)
	ctx := context.Background()

	cycle, err := contract.CurrentCycle(ctx)
	if err != nil {
		t.Fatalf("current cycle: %v", err)
	}
	if cycle != 7 {
		t.Fatalf("unexpected cycle: %d", cycle)
	}

	nextBlock, err := contract.NextCycleBlock(ctx)
	if err != nil {
		t.Fatalf("next cycle block: %v", err)
	}
	if nextBlock != 123456 {
		t.Fatalf("unexpected next cycle block: %d", nextBlock)
	}

	total, err := contract.Rewards(ctx, cycle)
	if err != nil {
		t.Fatalf("rewards: %v", err)
	}
	left, err := contract.RewardsLeft(ctx, cycle)
	if err != nil {
		t.Fatalf("rewards left: %v", err)
	}
	if left.Cmp(total) > 0 || left.Sign() < 0 {
		t.Fatalf("budget invariant violated: left=%s total=%s", left, total)
	}
	if want, _ := new(big.Int).SetString("1000000000000000000000", 10); total.Cmp(want) != 0 {
		t.Fatalf("unexpected rewards total: %s", total)
	}

	reached, err := contract.IsUserMaxSubmissionsReached(ctx, "0xuser")
	if err != nil {
		t.Fatalf("max submissions: %v", err)
	}
	if reached {
		t.Fatal("expected cap not reached")
	}
}

func TestRegisterValidSubmissionWaitsForReceipt(t *testing.T) {
	var receiptPolls int32
	node := testNode(t, func(method string, params []json.RawMessage) (interface{}, *RPCError) {
		switch method {
		case "sendcontracttx":
			call := decodeCall(t, params)
			if call.Method != "registerValidSubmission" {
				t.Fatalf("unexpected contract method %s", call.Method)
			}
			if len(call.Args) != 2 || call.Args[0] != "0xuser" || call.Args[1] != "10000000000000000000" {
				t.Fatalf("unexpected args: %v", call.Args)
			}
			return sendReply{TxID: "0xtx1"}, nil
		case "gettxreceipt":
			// first poll: still pending
			if atomic.AddInt32(&receiptPolls, 1) == 1 {
				return nil, &RPCError{Code: -100, Message: "transaction not found"}
			}
			return Receipt{TxID: "0xtx1", BlockNumber: 42, Reverted: false}, nil
		default:
			t.Fatalf("unexpected rpc method %s", method)
			return nil, nil
		}
	})
	defer node.Close()

	contract := newContract(t, node.URL)
	amount, _ := ParseVERD("10")

	tx, err := contract.RegisterValidSubmission(context.Background(), "0xuser", amount)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if tx.TxID != "0xtx1" {
		t.Fatalf("unexpected txid: %s", tx.TxID)
	}

	receipt, err := tx.Wait(context.Background())
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if receipt.Reverted {
		t.Fatal("expected confirmed receipt")
	}
	if atomic.LoadInt32(&receiptPolls) < 2 {
		t.Fatalf("expected at least two polls, got %d", receiptPolls)
	}
}

func TestWaitReturnsRevertedReceipt(t *testing.T) {
	node := testNode(t, func(method string, params []json.RawMessage) (interface{}, *RPCError) {
		switch method {
		case "sendcontracttx":
			return sendReply{TxID: "0xtx2"}, nil
		case "gettxreceipt":
			return Receipt{TxID: "0xtx2", BlockNumber: 43, Reverted: true}, nil
		default:
			t.Fatalf("unexpected rpc method %s", method)
			return nil, nil
		}
	})
	defer node.Close()

	contract := newContract(t, node.URL)
	tx, err := contract.TriggerCycle(context.Background())
	if err != nil {
		t.Fatalf("trigger cycle: %v", err)
	}

	receipt, err := tx.Wait(context.Background())
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if !receipt.Reverted {
		t.Fatal("expected reverted receipt")
	}
}

func TestWaitTimesOutWhileUnconfirmed(t *testing.T) {
	node := testNode(t, func(method string, params []json.RawMessage) (interface{}, *RPCError) {
		switch method {
		case "sendcontracttx":
			return sendReply{TxID: "0xtx3"}, nil
		case "gettxreceipt":
			return nil, &RPCError{Code: -100, Message: "transaction not found"}
		default:
			t.Fatalf("unexpected rpc method %s", method)
			return nil, nil
		}
	})
	defer node.Close()

	contract := newContract(t, node.URL)
	tx, err := contract.TriggerCycle(context.Background())
	if err != nil {
		t.Fatalf("trigger cycle: %v", err)
	}

	_, err = tx.Wait(context.Background())
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !stderrors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if kind := ClassifyWriteError(err); kind != errors.WriteTimeout {
		t.Fatalf("expected timeout kind, got %s", kind)
	}
}

func TestCallContractPropagatesRPCError(t *testing.T) {
	node := testNode(t, func(method string, params []json.RawMessage) (interface{}, *RPCError) {
		return nil, &RPCError{Code: -32000, Message: "execution reverted: cycle inactive"}
	})
	defer node.Close()

	contract := newContract(t, node.URL)
	_, err := contract.CurrentCycle(context.Background())
	if err == nil {
		t.Fatal("expected rpc error")
	}
	var rpcErr *RPCError
	if !stderrors.As(err, &rpcErr) {
		t.Fatalf("expected RPCError in chain, got %v", err)
	}
	if rpcErr.Code != -32000 {
		t.Fatalf("unexpected code: %d", rpcErr.Code)
	}
}
