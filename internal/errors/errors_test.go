package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationDeniedStatusCodes(t *testing.T) {
	cases := []struct {
		reason DenialReason
		status int
	}{
		{DenialCapReached, http.StatusConflict},
		{DenialNoBudgetAllocated, http.StatusBadRequest},
		{DenialBudgetExhausted, http.StatusBadRequest},
		{DenialInsufficientBudget, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(string(tc.reason), func(t *testing.T) {
			err := ValidationDenied(tc.reason, "denied")
			assert.Equal(t, tc.status, err.HTTPStatus)
			assert.Equal(t, CodeValidationDenied, err.Code)
			assert.Equal(t, tc.reason, DenialReasonOf(err))
		})
	}
}

func TestGetServiceErrorUnwrapsChain(t *testing.T) {
	cause := stderrors.New("connection refused")
	wrapped := fmt.Errorf("pipeline: %w", LedgerRead("currentCycle", cause))

	svcErr := GetServiceError(wrapped)
	require.NotNil(t, svcErr)
	assert.Equal(t, CodeLedgerReadError, svcErr.Code)
	assert.True(t, stderrors.Is(wrapped, cause))
}

func TestGetServiceErrorNilForPlainErrors(t *testing.T) {
	assert.Nil(t, GetServiceError(stderrors.New("boom")))
	assert.Nil(t, GetServiceError(nil))
}

func TestWriteKindOf(t *testing.T) {
	err := LedgerWrite(WriteRevert, "transaction reverted", nil)
	assert.Equal(t, WriteRevert, WriteKindOf(err))
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus)

	assert.Equal(t, WriteKind(""), WriteKindOf(Internal("x", nil)))
}

func TestWithDetails(t *testing.T) {
	err := Internal("boom", nil).WithDetails("attempt", 1)
	assert.Equal(t, 1, err.Details["attempt"])
}

func TestTaxonomyStatuses(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, Classifier("x", nil).HTTPStatus)
	assert.Equal(t, http.StatusConflict, Duplicate("dev-1").HTTPStatus)
	assert.Equal(t, http.StatusBadRequest, InvalidRequest("x").HTTPStatus)
	assert.Equal(t, http.StatusUnauthorized, Unauthorized("").HTTPStatus)
	assert.Equal(t, http.StatusForbidden, Forbidden("").HTTPStatus)
	assert.Equal(t, http.StatusTooManyRequests, RateLimitExceeded(10, "1s").HTTPStatus)
}
