package chain

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/verdant-network/reward-layer/internal/errors"
)

// ClassifyWriteError maps a raw ledger write failure onto a write failure
// kind by matching the error codes and substrings the ledger layer is
// known to surface. The kind selects a clearer user-facing message; it
// never drives retries here, since each write is issued exactly once.
func ClassifyWriteError(err error) errors.WriteKind {
	if err == nil {
		return errors.WriteUnknown
	}

	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return errors.WriteTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "revert"):
		return errors.WriteRevert
	case strings.Contains(msg, "gas") || strings.Contains(msg, "fee"):
		return errors.WriteGas
	case strings.Contains(msg, "nonce"):
		return errors.WriteNonce
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		return errors.WriteTimeout
	default:
		return errors.WriteUnknown
	}
}

// WriteFailureMessage returns the user-facing message for a write failure
// kind.
func WriteFailureMessage(kind errors.WriteKind) string {
	switch kind {
	case errors.WriteGas:
		return "Transaction failed due to gas or fee issues. Please try again later."
	case errors.WriteNonce:
		return "Transaction failed due to nonce issues. Please try again later."
	case errors.WriteTimeout:
		return "Transaction timed out. Please try again later."
	case errors.WriteRevert:
		return "Transaction reverted. The blockchain rejected this transaction."
	default:
		return "Error registering submission. Please try again later."
	}
}

// WriteError wraps a raw ledger write failure into the taxonomy with its
// classified kind and message.
func WriteError(err error) *errors.ServiceError {
	kind := ClassifyWriteError(err)
	return errors.LedgerWrite(kind, WriteFailureMessage(kind), err)
}

// RevertError reports a definitively rejected write (reverted receipt).
func RevertError(txID string) *errors.ServiceError {
	return errors.LedgerWrite(errors.WriteRevert, WriteFailureMessage(errors.WriteRevert), nil).
		WithDetails("txid", txID)
}
