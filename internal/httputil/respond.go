// Package httputil provides JSON request/response helpers for HTTP handlers.
package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/verdant-network/reward-layer/internal/errors"
)

// ErrorResponse is the wire shape of every failed request.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes an error payload with the given status.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Message: message})
}

// WriteServiceError maps a taxonomy error onto its status and message.
// Errors outside the taxonomy are reported as an opaque 500.
func WriteServiceError(w http.ResponseWriter, err error) {
	if svcErr := errors.GetServiceError(err); svcErr != nil {
		WriteJSON(w, svcErr.HTTPStatus, ErrorResponse{
			Message: svcErr.Message,
			Code:    string(svcErr.Code),
		})
		return
	}
	WriteError(w, http.StatusInternalServerError, "internal server error")
}

// ReadJSON decodes the request body into v, rejecting bodies over maxBytes
// and unknown fields.
func ReadJSON(r *http.Request, v interface{}, maxBytes int64) error {
	if r.Body == nil {
		return fmt.Errorf("empty request body")
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}
