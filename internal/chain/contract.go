package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// DefaultTxWaitTimeout bounds the confirmation wait for a submitted write.
const DefaultTxWaitTimeout = 2 * time.Minute

// DefaultPollInterval is the receipt polling interval.
const DefaultPollInterval = 2 * time.Second

// RewardsContract binds the cycle-scoped rewards contract. All reads go
// straight to the node so budget figures are never stale; the write
// surface performs an atomic decrement-or-reject on the contract side,
// making a revert the authoritative budget-exhausted signal.
type RewardsContract struct {
	client       *Client
	address      string
	pollInterval time.Duration
	waitTimeout  time.Duration
}

// ContractConfig holds rewards contract configuration.
type ContractConfig struct {
	Address      string
	PollInterval time.Duration
	WaitTimeout  time.Duration
}

// NewRewardsContract binds the rewards contract at the given address.
func NewRewardsContract(client *Client, cfg ContractConfig) (*RewardsContract, error) {
	if client == nil {
		return nil, fmt.Errorf("ledger client required")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("rewards contract address required")
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	waitTimeout := cfg.WaitTimeout
	if waitTimeout <= 0 {
		waitTimeout = DefaultTxWaitTimeout
	}

	return &RewardsContract{
		client:       client,
		address:      cfg.Address,
		pollInterval: pollInterval,
		waitTimeout:  waitTimeout,
	}, nil
}

// =============================================================================
// Read Surface
// =============================================================================

// CurrentCycle returns the id of the active reward cycle.
func (c *RewardsContract) CurrentCycle(ctx context.Context) (uint64, error) {
	return c.callUint64(ctx, "getCurrentCycle")
}

// NextCycleBlock returns the block at which the next cycle starts.
func (c *RewardsContract) NextCycleBlock(ctx context.Context) (uint64, error) {
	return c.callUint64(ctx, "getNextCycleBlock")
}

// CycleDuration returns the cycle length in blocks.
func (c *RewardsContract) CycleDuration(ctx context.Context) (uint64, error) {
	return c.callUint64(ctx, "cycleDuration")
}

// MaxSubmissionsPerCycle returns the per-user submission cap.
func (c *RewardsContract) MaxSubmissionsPerCycle(ctx context.Context) (uint64, error) {
	return c.callUint64(ctx, "maxSubmissionsPerCycle")
}

// TotalSubmissions returns the number of submissions registered in a cycle.
func (c *RewardsContract) TotalSubmissions(ctx context.Context, cycle uint64) (uint64, error) {
	return c.callUint64(ctx, "totalSubmissions", cycle)
}

// Rewards returns the total budget allocated to a cycle, in wei.
func (c *RewardsContract) Rewards(ctx context.Context, cycle uint64) (*big.Int, error) {
	return c.callBigInt(ctx, "rewards", cycle)
}

// RewardsLeft returns the remaining budget of a cycle, in wei.
func (c *RewardsContract) RewardsLeft(ctx context.Context, cycle uint64) (*big.Int, error) {
	return c.callBigInt(ctx, "rewardsLeft", cycle)
}

// IsUserMaxSubmissionsReached reports whether the address has used up its
// submissions for the current cycle.
func (c *RewardsContract) IsUserMaxSubmissionsReached(ctx context.Context, address string) (bool, error) {
	value, err := c.client.CallContract(ctx, c.address, "isUserMaxSubmissionsReached", address)
	if err != nil {
		return false, fmt.Errorf("call isUserMaxSubmissionsReached: %w", err)
	}

	var reached bool
	if err := json.Unmarshal(value, &reached); err != nil {
		return false, fmt.Errorf("parse isUserMaxSubmissionsReached: %w", err)
	}
	return reached, nil
}

// =============================================================================
// Write Surface
// =============================================================================

// RegisterValidSubmission commits a reward of amount wei to the address.
// The returned transaction must be awaited for the authoritative outcome.
func (c *RewardsContract) RegisterValidSubmission(ctx context.Context, address string, amount *big.Int) (*PendingTx, error) {
	return c.send(ctx, "registerValidSubmission", address, amount.String())
}

// SetRewardsAmount sets the reward budget for the next cycle, in wei.
func (c *RewardsContract) SetRewardsAmount(ctx context.Context, amount *big.Int) (*PendingTx, error) {
	return c.send(ctx, "setRewardsAmount", amount.String())
}

// TriggerCycle starts a new reward cycle.
func (c *RewardsContract) TriggerCycle(ctx context.Context) (*PendingTx, error) {
	return c.send(ctx, "triggerCycle")
}

func (c *RewardsContract) send(ctx context.Context, method string, args ...interface{}) (*PendingTx, error) {
	txID, err := c.client.SendContractTransaction(ctx, c.address, method, args...)
	if err != nil {
		return nil, fmt.Errorf("send %s: %w", method, err)
	}
	return &PendingTx{
		TxID:         txID,
		client:       c.client,
		pollInterval: c.pollInterval,
		waitTimeout:  c.waitTimeout,
	}, nil
}

// =============================================================================
// Confirmation Wait
// =============================================================================

// PendingTx is a broadcast transaction awaiting confirmation.
type PendingTx struct {
	TxID         string
	client       *Client
	pollInterval time.Duration
	waitTimeout  time.Duration
}

// Wait polls for the transaction receipt until it is available or the
// wait times out. A missing receipt is transient; a timeout surfaces as a
// context deadline error so callers can classify it as retryable. Wait
// never interprets a reverted receipt: the caller decides what a revert
// means for its operation.
func (tx *PendingTx) Wait(ctx context.Context) (*Receipt, error) {
	wctx, cancel := context.WithTimeout(ctx, tx.waitTimeout)
	defer cancel()

	ticker := time.NewTicker(tx.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-wctx.Done():
			return nil, fmt.Errorf("wait for tx %s: %w", tx.TxID, wctx.Err())
		case <-ticker.C:
			receipt, err := tx.client.GetTransactionReceipt(wctx, tx.TxID)
			if err != nil {
				if isNotFoundError(err) {
					continue
				}
				return nil, fmt.Errorf("get receipt for tx %s: %w", tx.TxID, err)
			}
			return receipt, nil
		}
	}
}

// =============================================================================
// Value Parsing
// =============================================================================

// Contract values arrive as JSON numbers or decimal strings depending on
// magnitude; both forms are accepted.

func (c *RewardsContract) callUint64(ctx context.Context, method string, args ...interface{}) (uint64, error) {
	value, err := c.client.CallContract(ctx, c.address, method, args...)
	if err != nil {
		return 0, fmt.Errorf("call %s: %w", method, err)
	}
	n, err := parseUint64(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", method, err)
	}
	return n, nil
}

func (c *RewardsContract) callBigInt(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	value, err := c.client.CallContract(ctx, c.address, method, args...)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	n, err := parseBigInt(value)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", method, err)
	}
	return n, nil
}

func parseUint64(raw json.RawMessage) (uint64, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0, fmt.Errorf("empty value")
	}
	return strconv.ParseUint(s, 10, 64)
}

func parseBigInt(raw json.RawMessage) (*big.Int, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return nil, fmt.Errorf("empty value")
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("malformed integer %q", s)
	}
	return n, nil
}
