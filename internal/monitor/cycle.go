// Package monitor periodically samples cycle state from the ledger and
// publishes it as metrics.
package monitor

import (
	"context"
	"math/big"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/verdant-network/reward-layer/internal/chain"
	"github.com/verdant-network/reward-layer/internal/logging"
	"github.com/verdant-network/reward-layer/internal/metrics"
)

// DefaultSchedule samples once a minute.
const DefaultSchedule = "@every 1m"

// readTimeout bounds a single sampling run.
const readTimeout = 30 * time.Second

// CycleLedger is the read surface the monitor samples.
type CycleLedger interface {
	CurrentCycle(ctx context.Context) (uint64, error)
	Rewards(ctx context.Context, cycle uint64) (*big.Int, error)
	RewardsLeft(ctx context.Context, cycle uint64) (*big.Int, error)
}

// CycleMonitor runs scheduled cycle state samples.
type CycleMonitor struct {
	ledger  CycleLedger
	metrics *metrics.Metrics
	logger  *logging.Logger
	cron    *cron.Cron
}

// NewCycleMonitor creates a monitor. Call Start to begin sampling.
func NewCycleMonitor(ledger CycleLedger, m *metrics.Metrics, logger *logging.Logger) *CycleMonitor {
	return &CycleMonitor{
		ledger:  ledger,
		metrics: m,
		logger:  logger,
		cron:    cron.New(),
	}
}

// Start schedules sampling and runs one sample immediately so gauges
// are populated before the first tick. An empty schedule uses
// DefaultSchedule.
func (m *CycleMonitor) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if _, err := m.cron.AddFunc(schedule, m.sample); err != nil {
		return err
	}
	m.cron.Start()
	go m.sample()
	return nil
}

// Stop halts scheduled sampling and waits for a running sample.
func (m *CycleMonitor) Stop() {
	<-m.cron.Stop().Done()
}

func (m *CycleMonitor) sample() {
	ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
	defer cancel()

	cycle, err := m.ledger.CurrentCycle(ctx)
	if err != nil {
		m.logger.WithError(err).Warn("cycle sample: failed to read current cycle")
		return
	}
	total, err := m.ledger.Rewards(ctx, cycle)
	if err != nil {
		m.logger.WithError(err).Warn("cycle sample: failed to read rewards")
		return
	}
	left, err := m.ledger.RewardsLeft(ctx, cycle)
	if err != nil {
		m.logger.WithError(err).Warn("cycle sample: failed to read rewards left")
		return
	}

	m.metrics.SetCycleStatus(cycle, chain.VERDValue(total), chain.VERDValue(left))
	m.logger.WithFields(map[string]interface{}{
		"cycle":        cycle,
		"rewards":      chain.FormatVERD(total),
		"rewards_left": chain.FormatVERD(left),
	}).Debug("cycle state sampled")
}
