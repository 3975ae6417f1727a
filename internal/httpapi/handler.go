// Package httpapi exposes the reward gateway's HTTP surface: public
// submission intake, admin reward operations, and cycle status.
package httpapi

import (
	"context"
	"encoding/base64"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/verdant-network/reward-layer/internal/chain"
	"github.com/verdant-network/reward-layer/internal/dedup"
	"github.com/verdant-network/reward-layer/internal/domain/submission"
	"github.com/verdant-network/reward-layer/internal/errors"
	"github.com/verdant-network/reward-layer/internal/httputil"
	"github.com/verdant-network/reward-layer/internal/logging"
	"github.com/verdant-network/reward-layer/internal/pipeline"
	"github.com/verdant-network/reward-layer/internal/storage"
)

// maxSubmissionBytes bounds the request body; images arrive base64
// encoded so this allows roughly a 6 MB image.
const maxSubmissionBytes = 8 << 20

// Processor runs submissions and batches through the reward flow.
type Processor interface {
	Process(ctx context.Context, sub submission.Submission) (*pipeline.Result, error)
	RegisterBatch(ctx context.Context, items []submission.BatchItem) (submission.BatchResult, error)
}

// CycleLedger is the contract surface the API reads cycle state from
// and routes admin writes to.
type CycleLedger interface {
	CurrentCycle(ctx context.Context) (uint64, error)
	NextCycleBlock(ctx context.Context) (uint64, error)
	CycleDuration(ctx context.Context) (uint64, error)
	MaxSubmissionsPerCycle(ctx context.Context) (uint64, error)
	TotalSubmissions(ctx context.Context, cycle uint64) (uint64, error)
	Rewards(ctx context.Context, cycle uint64) (*big.Int, error)
	RewardsLeft(ctx context.Context, cycle uint64) (*big.Int, error)
	SetRewardsAmount(ctx context.Context, amount *big.Int) (string, pipeline.PendingWrite, error)
	TriggerCycle(ctx context.Context) (string, pipeline.PendingWrite, error)
}

// Server handles the gateway's HTTP routes.
type Server struct {
	processor Processor
	ledger    CycleLedger
	store     storage.RegistrationStore
	dedup     dedup.Store
	logger    *logging.Logger
}

// NewServer assembles the HTTP API.
func NewServer(processor Processor, ledger CycleLedger, store storage.RegistrationStore, d dedup.Store, logger *logging.Logger) *Server {
	return &Server{
		processor: processor,
		ledger:    ledger,
		store:     store,
		dedup:     d,
		logger:    logger,
	}
}

// Register wires the API routes onto the router. Authentication and
// admin middleware are applied by the caller on the subrouters.
func (s *Server) Register(api *mux.Router, admin *mux.Router) {
	api.HandleFunc("/submissions", s.handleSubmission).Methods(http.MethodPost)
	api.HandleFunc("/cycle", s.handleCycleStatus).Methods(http.MethodGet)

	admin.HandleFunc("/rewards/batch", s.handleBatch).Methods(http.MethodPost)
	admin.HandleFunc("/rewards/allocation", s.handleAllocation).Methods(http.MethodPost)
	admin.HandleFunc("/cycle/trigger", s.handleTriggerCycle).Methods(http.MethodPost)
	admin.HandleFunc("/registrations", s.handleListRegistrations).Methods(http.MethodGet)
}

// =============================================================================
// Submission Intake
// =============================================================================

type submissionRequest struct {
	Address  string `json:"address"`
	DeviceID string `json:"deviceID"`
	Image    string `json:"image"`
}

type submissionResponse struct {
	Validation   submission.ValidationResult `json:"validation"`
	Registered   bool                        `json:"registered"`
	TxID         string                      `json:"txId,omitempty"`
	RewardAmount string                      `json:"rewardAmount,omitempty"`
}

func (s *Server) handleSubmission(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req submissionRequest
	if err := httputil.ReadJSON(r, &req, maxSubmissionBytes); err != nil {
		httputil.WriteServiceError(w, errors.InvalidRequest(err.Error()))
		return
	}
	if req.Address == "" || req.DeviceID == "" || req.Image == "" {
		httputil.WriteServiceError(w, errors.InvalidRequest("address, deviceID and image are required"))
		return
	}

	image, err := decodeImage(req.Image)
	if err != nil {
		httputil.WriteServiceError(w, errors.InvalidRequest("image must be base64 encoded"))
		return
	}

	cycle, err := s.ledger.CurrentCycle(ctx)
	if err != nil {
		httputil.WriteServiceError(w, errors.LedgerRead("getCurrentCycle", err))
		return
	}
	seen, err := s.dedup.Seen(ctx, cycle, req.DeviceID)
	if err != nil {
		httputil.WriteServiceError(w, errors.Internal("failed to check device submissions", err))
		return
	}
	if seen {
		httputil.WriteServiceError(w, errors.Duplicate(req.DeviceID))
		return
	}

	result, err := s.processor.Process(ctx, submission.Submission{
		Address:   req.Address,
		DeviceID:  req.DeviceID,
		Image:     image,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}

	if err := s.dedup.Mark(ctx, result.Cycle, req.DeviceID); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("failed to mark device submission")
	}

	resp := submissionResponse{
		Validation: result.Validation,
		Registered: result.Registered,
	}
	if result.Registration != nil {
		resp.TxID = result.Registration.TxID
		resp.RewardAmount = chain.FormatVERD(result.Registration.Amount)
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// decodeImage accepts raw base64 or a data URL.
func decodeImage(image string) ([]byte, error) {
	if idx := strings.Index(image, ";base64,"); idx >= 0 {
		image = image[idx+len(";base64,"):]
	}
	return base64.StdEncoding.DecodeString(image)
}

// =============================================================================
// Admin: Batch Registration
// =============================================================================

type batchRequest struct {
	Items []submission.BatchItem `json:"items"`
}

type batchResponse struct {
	SuccessCount int  `json:"successCount"`
	FailCount    int  `json:"failCount"`
	Success      bool `json:"success"`
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := httputil.ReadJSON(r, &req, 1<<20); err != nil {
		httputil.WriteServiceError(w, errors.InvalidRequest(err.Error()))
		return
	}

	result, err := s.processor.RegisterBatch(r.Context(), req.Items)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, batchResponse{
		SuccessCount: result.SuccessCount,
		FailCount:    result.FailCount,
		Success:      result.Success(),
	})
}

// =============================================================================
// Admin: Allocation and Cycle Control
// =============================================================================

type allocationRequest struct {
	Amount string `json:"amount"`
}

type txResponse struct {
	TxID string `json:"txId"`
}

func (s *Server) handleAllocation(w http.ResponseWriter, r *http.Request) {
	var req allocationRequest
	if err := httputil.ReadJSON(r, &req, 1<<20); err != nil {
		httputil.WriteServiceError(w, errors.InvalidRequest(err.Error()))
		return
	}

	amount, err := chain.ParseVERD(req.Amount)
	if err != nil {
		httputil.WriteServiceError(w, errors.InvalidRequest(err.Error()))
		return
	}

	txID, pending, err := s.ledger.SetRewardsAmount(r.Context(), amount)
	if err != nil {
		httputil.WriteServiceError(w, chain.WriteError(err))
		return
	}
	if err := s.awaitConfirmation(r.Context(), txID, pending); err != nil {
		httputil.WriteServiceError(w, err)
		return
	}

	s.logger.WithContext(r.Context()).WithFields(map[string]interface{}{
		"amount": req.Amount,
		"tx_id":  txID,
	}).Info("reward allocation updated")
	httputil.WriteJSON(w, http.StatusOK, txResponse{TxID: txID})
}

func (s *Server) handleTriggerCycle(w http.ResponseWriter, r *http.Request) {
	txID, pending, err := s.ledger.TriggerCycle(r.Context())
	if err != nil {
		httputil.WriteServiceError(w, chain.WriteError(err))
		return
	}
	if err := s.awaitConfirmation(r.Context(), txID, pending); err != nil {
		httputil.WriteServiceError(w, err)
		return
	}

	s.logger.WithContext(r.Context()).WithField("tx_id", txID).Info("reward cycle triggered")
	httputil.WriteJSON(w, http.StatusOK, txResponse{TxID: txID})
}

func (s *Server) awaitConfirmation(ctx context.Context, txID string, pending pipeline.PendingWrite) error {
	receipt, err := pending.Wait(ctx)
	if err != nil {
		return chain.WriteError(err)
	}
	if receipt.Reverted {
		return chain.RevertError(txID)
	}
	return nil
}

// =============================================================================
// Admin: Registration Audit
// =============================================================================

type registrationView struct {
	ID        string    `json:"id"`
	Address   string    `json:"address"`
	Amount    string    `json:"amount"`
	TxID      string    `json:"txId,omitempty"`
	Outcome   string    `json:"outcome"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *Server) handleListRegistrations(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")

	regs, err := s.store.ListRegistrations(r.Context(), address)
	if err != nil {
		httputil.WriteServiceError(w, errors.Internal("failed to list registrations", err))
		return
	}

	views := make([]registrationView, 0, len(regs))
	for _, reg := range regs {
		views = append(views, registrationView{
			ID:        reg.ID,
			Address:   reg.Address,
			Amount:    chain.FormatVERD(reg.Amount),
			TxID:      reg.TxID,
			Outcome:   string(reg.Outcome),
			Error:     reg.Error,
			CreatedAt: reg.CreatedAt,
			UpdatedAt: reg.UpdatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"registrations": views})
}

// =============================================================================
// Cycle Status
// =============================================================================

type cycleStatus struct {
	CurrentCycle           uint64 `json:"currentCycle"`
	NextCycleBlock         uint64 `json:"nextCycleBlock"`
	CycleDuration          uint64 `json:"cycleDuration"`
	MaxSubmissionsPerCycle uint64 `json:"maxSubmissionsPerCycle"`
	TotalSubmissions       uint64 `json:"totalSubmissions"`
	Rewards                string `json:"rewards"`
	RewardsLeft            string `json:"rewardsLeft"`
}

func (s *Server) handleCycleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cycle, err := s.ledger.CurrentCycle(ctx)
	if err != nil {
		httputil.WriteServiceError(w, errors.LedgerRead("getCurrentCycle", err))
		return
	}

	status := cycleStatus{CurrentCycle: cycle}
	reads := []struct {
		op   string
		read func() error
	}{
		{"getNextCycleBlock", func() error {
			v, err := s.ledger.NextCycleBlock(ctx)
			status.NextCycleBlock = v
			return err
		}},
		{"getCycleDuration", func() error {
			v, err := s.ledger.CycleDuration(ctx)
			status.CycleDuration = v
			return err
		}},
		{"getMaxSubmissionsPerCycle", func() error {
			v, err := s.ledger.MaxSubmissionsPerCycle(ctx)
			status.MaxSubmissionsPerCycle = v
			return err
		}},
		{"getTotalSubmissions", func() error {
			v, err := s.ledger.TotalSubmissions(ctx, cycle)
			status.TotalSubmissions = v
			return err
		}},
		{"getRewards", func() error {
			v, err := s.ledger.Rewards(ctx, cycle)
			if v != nil {
				status.Rewards = chain.FormatVERD(v)
			}
			return err
		}},
		{"getRewardsLeft", func() error {
			v, err := s.ledger.RewardsLeft(ctx, cycle)
			if v != nil {
				status.RewardsLeft = chain.FormatVERD(v)
			}
			return err
		}},
	}
	for _, rd := range reads {
		if err := rd.read(); err != nil {
			httputil.WriteServiceError(w, errors.LedgerRead(rd.op, err))
			return
		}
	}

	httputil.WriteJSON(w, http.StatusOK, status)
}
