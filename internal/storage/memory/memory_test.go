package memory

import (
	"context"
	"math/big"
	"testing"

	"github.com/verdant-network/reward-layer/internal/domain/submission"
	"github.com/verdant-network/reward-layer/internal/storage"
)

func TestRegistrationLifecycle(t *testing.T) {
	store := New()
	ctx := context.Background()

	reg, err := store.CreateRegistration(ctx, submission.Registration{
		Address: "0xuser",
		Amount:  big.NewInt(100),
		Outcome: submission.OutcomePending,
	})
	if err != nil {
		t.Fatalf("create registration: %v", err)
	}
	if reg.ID == "" {
		t.Fatal("expected generated id")
	}
	if reg.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}

	reg.Outcome = submission.OutcomeConfirmed
	reg.TxID = "0xtx"
	updated, err := store.UpdateRegistration(ctx, reg)
	if err != nil {
		t.Fatalf("update registration: %v", err)
	}
	if updated.Outcome != submission.OutcomeConfirmed {
		t.Fatalf("unexpected outcome: %s", updated.Outcome)
	}

	got, err := store.GetRegistration(ctx, reg.ID)
	if err != nil {
		t.Fatalf("get registration: %v", err)
	}
	if got.TxID != "0xtx" {
		t.Fatalf("unexpected tx id: %s", got.TxID)
	}
}

func TestGetRegistrationNotFound(t *testing.T) {
	store := New()
	if _, err := store.GetRegistration(context.Background(), "missing"); err != storage.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateRegistrationNotFound(t *testing.T) {
	store := New()
	_, err := store.UpdateRegistration(context.Background(), submission.Registration{ID: "missing"})
	if err != storage.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListRegistrationsFiltersByAddress(t *testing.T) {
	store := New()
	ctx := context.Background()

	for _, addr := range []string{"0xalice", "0xbob", "0xalice"} {
		if _, err := store.CreateRegistration(ctx, submission.Registration{
			Address: addr,
			Amount:  big.NewInt(1),
			Outcome: submission.OutcomePending,
		}); err != nil {
			t.Fatalf("create registration: %v", err)
		}
	}

	alice, err := store.ListRegistrations(ctx, "0xalice")
	if err != nil {
		t.Fatalf("list registrations: %v", err)
	}
	if len(alice) != 2 {
		t.Fatalf("expected 2 registrations for alice, got %d", len(alice))
	}

	all, err := store.ListRegistrations(ctx, "")
	if err != nil {
		t.Fatalf("list registrations: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 registrations, got %d", len(all))
	}
}

func TestRegistrationIsolation(t *testing.T) {
	store := New()
	ctx := context.Background()

	reg, err := store.CreateRegistration(ctx, submission.Registration{
		Address: "0xuser",
		Amount:  big.NewInt(100),
		Outcome: submission.OutcomePending,
	})
	if err != nil {
		t.Fatalf("create registration: %v", err)
	}

	// Mutating the caller's copy must not leak into the store.
	reg.Amount.SetInt64(999)

	got, err := store.GetRegistration(ctx, reg.ID)
	if err != nil {
		t.Fatalf("get registration: %v", err)
	}
	if got.Amount.Int64() != 100 {
		t.Fatalf("stored amount mutated: %s", got.Amount)
	}
}

func TestCreateBatchRun(t *testing.T) {
	store := New()

	run, err := store.CreateBatchRun(context.Background(), storage.BatchRun{
		ItemCount:    3,
		SuccessCount: 2,
		FailCount:    1,
	})
	if err != nil {
		t.Fatalf("create batch run: %v", err)
	}
	if run.ID == "" {
		t.Fatal("expected generated id")
	}
	if run.SuccessCount+run.FailCount != run.ItemCount {
		t.Fatalf("inconsistent counts: %+v", run)
	}
}
