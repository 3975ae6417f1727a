// Package submission defines the domain model for reward submissions.
package submission

import (
	"math/big"
	"time"
)

// Submission is one inbound image submission. It is created on receipt,
// never mutated, and discarded after the pipeline completes.
type Submission struct {
	Address   string
	DeviceID  string
	Image     []byte
	Timestamp time.Time
}

// ValidationResult is the classifier's judgment for one submission.
type ValidationResult struct {
	ValidityFactor        float64 `json:"validityFactor"`
	DescriptionOfAnalysis string  `json:"descriptionOfAnalysis"`
}

// AcceptanceThreshold is the validity factor a submission must strictly
// exceed for a reward to be registered.
const AcceptanceThreshold = 0.5

// Accepted reports whether the judgment clears the acceptance threshold.
func (v ValidationResult) Accepted() bool {
	return v.ValidityFactor > AcceptanceThreshold
}

// Outcome is the terminal state of a reward registration.
type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeConfirmed Outcome = "confirmed"
	OutcomeReverted  Outcome = "reverted"
	OutcomeFailed    Outcome = "failed"
)

// Registration records a reward write issued against the ledger.
type Registration struct {
	ID        string
	Address   string
	Amount    *big.Int
	TxID      string
	Outcome   Outcome
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BatchItem is one pre-approved (address, amount) pair. Amount is in VERD,
// converted to wei at the ledger boundary.
type BatchItem struct {
	Address string  `json:"address"`
	Amount  float64 `json:"amount"`
}

// BatchResult aggregates per-item outcomes for one batch run. Every item
// contributes to exactly one of the two counters.
type BatchResult struct {
	SuccessCount int `json:"successCount"`
	FailCount    int `json:"failCount"`
}

// Success reports whether at least one item was registered.
func (r BatchResult) Success() bool {
	return r.SuccessCount > 0
}

// Total returns the number of items processed.
func (r BatchResult) Total() int {
	return r.SuccessCount + r.FailCount
}
