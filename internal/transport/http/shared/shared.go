// Package shared holds the response helpers all HTTP handlers use.
package shared

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "memberd/pkg/domainerrors"
	"memberd/pkg/requestcontext"
)

// ErrorResponse is the JSON body every failed request carries.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteJSON renders v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError maps a domain error code to an HTTP status and renders the
// error body. Internal causes are logged but never shown to clients.
func WriteError(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, err error) {
	code := dErrors.CodeOf(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "request failed",
			"error", err,
			"code", string(code),
			"request_id", requestcontext.RequestID(ctx))
		WriteJSON(w, status, ErrorResponse{Error: string(dErrors.CodeInternal), Message: "internal error"})
		return
	}
	WriteJSON(w, status, ErrorResponse{Error: string(code), Message: dErrors.MessageOf(err)})
}

func statusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeInvalidInput, dErrors.CodeBadRequest, dErrors.CodeInvalidMembershipType:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict, dErrors.CodeInvalidTransition,
		dErrors.CodeConcurrencyConflict, dErrors.CodeInvariantViolation:
		return http.StatusConflict
	case dErrors.CodeRateLimited:
		return http.StatusTooManyRequests
	case dErrors.CodeUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSON parses the request body into dst, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "malformed JSON body")
	}
	return nil
}
