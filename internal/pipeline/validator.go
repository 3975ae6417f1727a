package pipeline

import (
	"context"
	"math/big"

	"github.com/verdant-network/reward-layer/internal/errors"
)

// Validator checks a reward request against the ledger's cycle state.
// It performs reads only; a request that passes every check may still
// fail later at the write.
type Validator struct {
	ledger Ledger
}

// NewValidator creates a validator backed by the given ledger.
func NewValidator(ledger Ledger) *Validator {
	return &Validator{ledger: ledger}
}

// CheckEligibility verifies that the address can receive a reward of
// the given amount in the current cycle. Checks run in a fixed order:
// submission cap, allocated budget, remaining budget, amount coverage.
// The first failing check is the one reported. Returns the cycle the
// checks ran against.
func (v *Validator) CheckEligibility(ctx context.Context, address string, amount *big.Int) (uint64, error) {
	cycle, err := v.ledger.CurrentCycle(ctx)
	if err != nil {
		return 0, errors.LedgerRead("getCurrentCycle", err)
	}

	reached, err := v.ledger.IsUserMaxSubmissionsReached(ctx, address)
	if err != nil {
		return 0, errors.LedgerRead("isUserMaxSubmissionsReached", err)
	}
	if reached {
		return 0, errors.ValidationDenied(errors.DenialCapReached,
			"user has reached the maximum submissions for this cycle")
	}

	total, err := v.ledger.Rewards(ctx, cycle)
	if err != nil {
		return 0, errors.LedgerRead("getRewards", err)
	}
	if total.Sign() == 0 {
		return 0, errors.ValidationDenied(errors.DenialNoBudgetAllocated,
			"no rewards allocated for the current cycle")
	}

	left, err := v.ledger.RewardsLeft(ctx, cycle)
	if err != nil {
		return 0, errors.LedgerRead("getRewardsLeft", err)
	}
	if left.Sign() == 0 {
		return 0, errors.ValidationDenied(errors.DenialBudgetExhausted,
			"the reward budget for this cycle is exhausted")
	}
	if amount.Cmp(left) > 0 {
		return 0, errors.ValidationDenied(errors.DenialInsufficientBudget,
			"the remaining budget cannot cover the reward amount")
	}

	return cycle, nil
}
