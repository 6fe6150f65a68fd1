// ABOUTME: JSON response helpers and the error-to-status mapping
// ABOUTME: Every failure leaves through writeError with a stable error code

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/loomboard/loom/internal/auth"
	"github.com/loomboard/loom/internal/store"
)

// ErrValidation marks request-shape failures: missing fields, oversized
// content, unknown roles, bad pagination parameters.
var ErrValidation = errors.New("validation failed")

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("encoding response", "error", err)
	}
}

// writeError maps an error chain to its HTTP representation. Internal
// failures send a generic message; the detail stays in the server log.
func writeError(w http.ResponseWriter, err error) {
	var status int
	var code, msg string

	switch {
	case errors.Is(err, ErrValidation):
		status, code, msg = http.StatusBadRequest, "validation_error", err.Error()
	case errors.Is(err, auth.ErrAuthentication):
		status, code, msg = http.StatusUnauthorized, "authentication_error", "authentication failed"
	case errors.Is(err, auth.ErrUnauthorized):
		status, code, msg = http.StatusForbidden, "unauthorized_error", "insufficient permissions"
	case errors.Is(err, store.ErrNotFound):
		status, code, msg = http.StatusNotFound, "not_found", "resource not found"
	case errors.Is(err, store.ErrConflict):
		status, code, msg = http.StatusConflict, "conflict", "resource already exists"
	default:
		status, code, msg = http.StatusInternalServerError, "store_error", "internal error"
		slog.Default().Error("request failed", "error", err)
	}

	writeJSON(w, status, errorResponse{Error: code, Message: msg})
}
