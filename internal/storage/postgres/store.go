// Package postgres implements the RegistrationStore backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/verdant-network/reward-layer/internal/domain/submission"
	"github.com/verdant-network/reward-layer/internal/storage"
)

// Store implements storage.RegistrationStore backed by PostgreSQL.
// Amounts are stored as decimal text to preserve wei precision.
type Store struct {
	db *sql.DB
}

var _ storage.RegistrationStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return New(db), nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateRegistration(ctx context.Context, reg submission.Registration) (submission.Registration, error) {
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	reg.CreatedAt = now
	reg.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reward_registrations (id, address, amount_wei, tx_id, outcome, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, reg.ID, reg.Address, amountText(reg.Amount), reg.TxID, string(reg.Outcome), reg.Error, reg.CreatedAt, reg.UpdatedAt)
	if err != nil {
		return submission.Registration{}, err
	}
	return reg, nil
}

func (s *Store) UpdateRegistration(ctx context.Context, reg submission.Registration) (submission.Registration, error) {
	reg.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE reward_registrations
		SET tx_id = $2, outcome = $3, error = $4, updated_at = $5
		WHERE id = $1
	`, reg.ID, reg.TxID, string(reg.Outcome), reg.Error, reg.UpdatedAt)
	if err != nil {
		return submission.Registration{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return submission.Registration{}, storage.ErrNotFound
	}
	return reg, nil
}

func (s *Store) GetRegistration(ctx context.Context, id string) (submission.Registration, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, address, amount_wei, tx_id, outcome, error, created_at, updated_at
		FROM reward_registrations
		WHERE id = $1
	`, id)

	reg, err := scanRegistration(row)
	if err == sql.ErrNoRows {
		return submission.Registration{}, storage.ErrNotFound
	}
	return reg, err
}

func (s *Store) ListRegistrations(ctx context.Context, address string) ([]submission.Registration, error) {
	query := `
		SELECT id, address, amount_wei, tx_id, outcome, error, created_at, updated_at
		FROM reward_registrations
	`
	args := []interface{}{}
	if address != "" {
		query += ` WHERE address = $1`
		args = append(args, address)
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []submission.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, reg)
	}
	return result, rows.Err()
}

func (s *Store) CreateBatchRun(ctx context.Context, run storage.BatchRun) (storage.BatchRun, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	run.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reward_batch_runs (id, item_count, success_count, fail_count, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, run.ID, run.ItemCount, run.SuccessCount, run.FailCount, run.CreatedAt)
	if err != nil {
		return storage.BatchRun{}, err
	}
	return run, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRegistration(row scanner) (submission.Registration, error) {
	var (
		reg       submission.Registration
		amountRaw string
		outcome   string
	)
	if err := row.Scan(&reg.ID, &reg.Address, &amountRaw, &reg.TxID, &outcome, &reg.Error, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
		return submission.Registration{}, err
	}

	amount, ok := new(big.Int).SetString(amountRaw, 10)
	if !ok {
		return submission.Registration{}, fmt.Errorf("malformed amount %q for registration %s", amountRaw, reg.ID)
	}
	reg.Amount = amount
	reg.Outcome = submission.Outcome(outcome)
	return reg, nil
}

func amountText(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}
