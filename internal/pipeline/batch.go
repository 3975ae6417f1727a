package pipeline

import (
	"context"
	"fmt"
	"math/big"

	"github.com/verdant-network/reward-layer/internal/chain"
	"github.com/verdant-network/reward-layer/internal/domain/submission"
	"github.com/verdant-network/reward-layer/internal/errors"
	"github.com/verdant-network/reward-layer/internal/storage"
)

// RegisterBatch registers rewards for a list of address/amount pairs.
// The aggregate amount is checked against the remaining budget before
// any write happens; if it cannot be covered the whole batch is
// rejected. Items are then processed sequentially and an individual
// failure does not stop the rest. The returned counts always sum to
// the number of items, and the batch is considered successful when at
// least one item succeeded.
func (p *Pipeline) RegisterBatch(ctx context.Context, items []submission.BatchItem) (submission.BatchResult, error) {
	var result submission.BatchResult
	if len(items) == 0 {
		return result, errors.InvalidRequest("batch contains no items")
	}

	amounts := make([]*big.Int, len(items))
	total := new(big.Int)
	for i, item := range items {
		wei, err := chain.ParseVERDFloat(item.Amount)
		if err != nil {
			return result, errors.InvalidRequest(fmt.Sprintf("item %d: %v", i, err))
		}
		amounts[i] = wei
		total.Add(total, wei)
	}

	cycle, err := p.ledger.CurrentCycle(ctx)
	if err != nil {
		return result, errors.LedgerRead("getCurrentCycle", err)
	}
	left, err := p.ledger.RewardsLeft(ctx, cycle)
	if err != nil {
		return result, errors.LedgerRead("getRewardsLeft", err)
	}
	if total.Cmp(left) > 0 {
		return result, errors.ValidationDenied(errors.DenialInsufficientBudget,
			"the remaining budget cannot cover the batch total")
	}

	for i, item := range items {
		if err := p.registerBatchItem(ctx, item.Address, amounts[i]); err != nil {
			p.logger.WithContext(ctx).WithError(err).WithFields(map[string]interface{}{
				"address": item.Address,
				"item":    i,
			}).Warn("batch item failed")
			p.metrics.RecordBatchItem("fail")
			result.FailCount++
			continue
		}
		p.metrics.RecordBatchItem("success")
		result.SuccessCount++
	}

	if _, err := p.store.CreateBatchRun(ctx, storage.BatchRun{
		ItemCount:    len(items),
		SuccessCount: result.SuccessCount,
		FailCount:    result.FailCount,
	}); err != nil {
		p.logger.WithContext(ctx).WithError(err).Warn("failed to record batch run")
	}

	return result, nil
}

// registerBatchItem applies the per-item submission cap check and then
// performs the write for one batch entry.
func (p *Pipeline) registerBatchItem(ctx context.Context, address string, amount *big.Int) error {
	reached, err := p.ledger.IsUserMaxSubmissionsReached(ctx, address)
	if err != nil {
		return errors.LedgerRead("isUserMaxSubmissionsReached", err)
	}
	if reached {
		return errors.ValidationDenied(errors.DenialCapReached,
			"user has reached the maximum submissions for this cycle")
	}

	_, err = p.register(ctx, address, amount)
	return err
}
