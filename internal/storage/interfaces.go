// Package storage defines persistence interfaces for the reward audit log.
// The submission payload itself is never persisted; only the ledger writes
// issued on its behalf are recorded.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/verdant-network/reward-layer/internal/domain/submission"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// BatchRun records one administrative batch execution.
type BatchRun struct {
	ID           string
	ItemCount    int
	SuccessCount int
	FailCount    int
	CreatedAt    time.Time
}

// RegistrationStore persists reward registrations and batch runs.
type RegistrationStore interface {
	CreateRegistration(ctx context.Context, reg submission.Registration) (submission.Registration, error)
	UpdateRegistration(ctx context.Context, reg submission.Registration) (submission.Registration, error)
	GetRegistration(ctx context.Context, id string) (submission.Registration, error)
	ListRegistrations(ctx context.Context, address string) ([]submission.Registration, error)

	CreateBatchRun(ctx context.Context, run BatchRun) (BatchRun, error)
}
