// Package pipeline implements the submission reward flow: eligibility
// checks against the ledger, image classification, and conditional
// reward registration with confirmation wait.
package pipeline

import (
	"context"
	"math/big"

	"github.com/verdant-network/reward-layer/internal/chain"
	"github.com/verdant-network/reward-layer/internal/domain/submission"
	"github.com/verdant-network/reward-layer/internal/errors"
	"github.com/verdant-network/reward-layer/internal/logging"
	"github.com/verdant-network/reward-layer/internal/metrics"
	"github.com/verdant-network/reward-layer/internal/storage"
)

// Classifier judges a submitted image and returns a validity verdict.
type Classifier interface {
	Classify(ctx context.Context, image []byte) (submission.ValidationResult, error)
}

// Pipeline orchestrates submission processing. It performs at most one
// ledger write per submission and never retries a failed write.
type Pipeline struct {
	ledger       Ledger
	classifier   Classifier
	validator    *Validator
	store        storage.RegistrationStore
	rewardAmount *big.Int
	logger       *logging.Logger
	metrics      *metrics.Metrics
}

// Config carries pipeline settings.
type Config struct {
	// RewardAmount is the per-submission reward in wei.
	RewardAmount *big.Int
}

// New assembles a pipeline from its collaborators.
func New(ledger Ledger, classifier Classifier, store storage.RegistrationStore, cfg Config, logger *logging.Logger, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		ledger:       ledger,
		classifier:   classifier,
		validator:    NewValidator(ledger),
		store:        store,
		rewardAmount: cfg.RewardAmount,
		logger:       logger,
		metrics:      m,
	}
}

// Result is the outcome of processing a single submission.
type Result struct {
	// Cycle the submission was evaluated against.
	Cycle uint64
	// Validation is the classifier's verdict.
	Validation submission.ValidationResult
	// Registered reports whether a reward was confirmed on the ledger.
	Registered bool
	// Registration is the audit record for the write, nil when the
	// verdict was below the acceptance threshold.
	Registration *submission.Registration
}

// Process runs a submission through the full flow. Eligibility is
// checked before the classifier is consulted; a verdict at or below the
// acceptance threshold is a successful no-op, not an error. A reward is
// registered only for an accepted verdict, and any write failure,
// including a revert or a confirmation timeout, surfaces as a ledger
// write error after at most one write attempt.
func (p *Pipeline) Process(ctx context.Context, sub submission.Submission) (*Result, error) {
	log := p.logger.WithContext(ctx).WithField("address", sub.Address)

	cycle, err := p.validator.CheckEligibility(ctx, sub.Address, p.rewardAmount)
	if err != nil {
		if errors.DenialReasonOf(err) != "" {
			log.WithField("reason", errors.DenialReasonOf(err)).Info("submission denied by eligibility check")
			p.metrics.RecordSubmission("denied")
		} else {
			log.WithError(err).Error("eligibility check failed")
			p.metrics.RecordSubmission("read_error")
		}
		return nil, err
	}

	verdict, err := p.classifier.Classify(ctx, sub.Image)
	if err != nil {
		log.WithError(err).Error("image classification failed")
		p.metrics.RecordSubmission("classifier_error")
		return nil, err
	}

	result := &Result{Cycle: cycle, Validation: verdict}
	if !verdict.Accepted() {
		log.WithField("validity_factor", verdict.ValidityFactor).Info("verdict below acceptance threshold, no reward registered")
		p.metrics.RecordSubmission("rejected")
		return result, nil
	}

	reg, err := p.register(ctx, sub.Address, p.rewardAmount)
	if err != nil {
		p.metrics.RecordSubmission("write_error")
		return nil, err
	}

	log.WithField("tx_id", reg.TxID).Info("reward registered")
	p.metrics.RecordSubmission("accepted")
	result.Registered = true
	result.Registration = reg
	return result, nil
}

// register performs the single ledger write with its confirmation wait,
// keeping an audit record in the store around it.
func (p *Pipeline) register(ctx context.Context, address string, amount *big.Int) (*submission.Registration, error) {
	reg, err := p.store.CreateRegistration(ctx, submission.Registration{
		Address: address,
		Amount:  new(big.Int).Set(amount),
		Outcome: submission.OutcomePending,
	})
	if err != nil {
		return nil, errors.Internal("failed to record registration", err)
	}

	txID, pending, err := p.ledger.RegisterValidSubmission(ctx, address, amount)
	if err != nil {
		serr := chain.WriteError(err)
		p.finalize(ctx, reg, submission.OutcomeFailed, serr.Message)
		p.metrics.RecordRegistration(string(errors.WriteKindOf(serr)))
		return nil, serr
	}
	reg.TxID = txID

	receipt, err := pending.Wait(ctx)
	if err != nil {
		serr := chain.WriteError(err)
		p.finalize(ctx, reg, submission.OutcomeFailed, serr.Message)
		p.metrics.RecordRegistration(string(errors.WriteKindOf(serr)))
		return nil, serr
	}
	if receipt.Reverted {
		serr := chain.RevertError(txID)
		p.finalize(ctx, reg, submission.OutcomeReverted, serr.Message)
		p.metrics.RecordRegistration(string(errors.WriteRevert))
		return nil, serr
	}

	confirmed := p.finalize(ctx, reg, submission.OutcomeConfirmed, "")
	p.metrics.RecordRegistration("confirmed")
	return confirmed, nil
}

// finalize updates the audit record with the write outcome. The ledger
// is the source of truth, so a store failure here is logged and the
// in-memory record returned as-is.
func (p *Pipeline) finalize(ctx context.Context, reg submission.Registration, outcome submission.Outcome, errMsg string) *submission.Registration {
	reg.Outcome = outcome
	reg.Error = errMsg

	updated, err := p.store.UpdateRegistration(ctx, reg)
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).WithField("registration_id", reg.ID).
			Warn("failed to update registration record")
		return &reg
	}
	return &updated
}
