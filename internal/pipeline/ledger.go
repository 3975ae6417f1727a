package pipeline

import (
	"context"
	"math/big"

	"github.com/verdant-network/reward-layer/internal/chain"
)

// PendingWrite is a ledger write awaiting confirmation.
type PendingWrite interface {
	Wait(ctx context.Context) (*chain.Receipt, error)
}

// Ledger is the contract surface the pipeline needs: cycle state reads
// and the reward registration write.
type Ledger interface {
	CurrentCycle(ctx context.Context) (uint64, error)
	Rewards(ctx context.Context, cycle uint64) (*big.Int, error)
	RewardsLeft(ctx context.Context, cycle uint64) (*big.Int, error)
	IsUserMaxSubmissionsReached(ctx context.Context, address string) (bool, error)
	RegisterValidSubmission(ctx context.Context, address string, amount *big.Int) (string, PendingWrite, error)
}

// ChainLedger adapts the rewards contract binding to the interfaces the
// pipeline, HTTP API, and cycle monitor consume.
type ChainLedger struct {
	contract *chain.RewardsContract
}

// NewChainLedger wraps a rewards contract binding.
func NewChainLedger(contract *chain.RewardsContract) *ChainLedger {
	return &ChainLedger{contract: contract}
}

func (l *ChainLedger) CurrentCycle(ctx context.Context) (uint64, error) {
	return l.contract.CurrentCycle(ctx)
}

func (l *ChainLedger) NextCycleBlock(ctx context.Context) (uint64, error) {
	return l.contract.NextCycleBlock(ctx)
}

func (l *ChainLedger) CycleDuration(ctx context.Context) (uint64, error) {
	return l.contract.CycleDuration(ctx)
}

func (l *ChainLedger) MaxSubmissionsPerCycle(ctx context.Context) (uint64, error) {
	return l.contract.MaxSubmissionsPerCycle(ctx)
}

func (l *ChainLedger) TotalSubmissions(ctx context.Context, cycle uint64) (uint64, error) {
	return l.contract.TotalSubmissions(ctx, cycle)
}

func (l *ChainLedger) Rewards(ctx context.Context, cycle uint64) (*big.Int, error) {
	return l.contract.Rewards(ctx, cycle)
}

func (l *ChainLedger) RewardsLeft(ctx context.Context, cycle uint64) (*big.Int, error) {
	return l.contract.RewardsLeft(ctx, cycle)
}

func (l *ChainLedger) IsUserMaxSubmissionsReached(ctx context.Context, address string) (bool, error) {
	return l.contract.IsUserMaxSubmissionsReached(ctx, address)
}

func (l *ChainLedger) RegisterValidSubmission(ctx context.Context, address string, amount *big.Int) (string, PendingWrite, error) {
	tx, err := l.contract.RegisterValidSubmission(ctx, address, amount)
	if err != nil {
		return "", nil, err
	}
	return tx.TxID, tx, nil
}

func (l *ChainLedger) SetRewardsAmount(ctx context.Context, amount *big.Int) (string, PendingWrite, error) {
	tx, err := l.contract.SetRewardsAmount(ctx, amount)
	if err != nil {
		return "", nil, err
	}
	return tx.TxID, tx, nil
}

func (l *ChainLedger) TriggerCycle(ctx context.Context) (string, PendingWrite, error) {
	tx, err := l.contract.TriggerCycle(ctx)
	if err != nil {
		return "", nil, err
	}
	return tx.TxID, tx, nil
}
