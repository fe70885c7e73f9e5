package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/fjod/go_restaurant/internal/auth"
	"github.com/fjod/go_restaurant/internal/domain"
	"github.com/fjod/go_restaurant/internal/logger"
	"github.com/fjod/go_restaurant/internal/payment"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// respondJSON encodes before writing so an unencodable value becomes a 500,
// which the access log records at error level.
func respondJSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"internal server error","code":"internal_error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError maps the domain error taxonomy onto HTTP status codes.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if v, ok := domain.AsValidationError(err); ok {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  "invalid input",
			Code:   "validation_failed",
			Fields: v.Fields,
		})
		return
	}

	var apiErr *payment.APIError
	if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(apiErr.Status)
		_, _ = w.Write(apiErr.Body)
		return
	}

	var (
		status int
		code   string
		msg    = err.Error()
	)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		status, code = http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, domain.ErrAuthenticationRequired):
		status, code, msg = http.StatusUnauthorized, "unauthorized", "authentication required"
	case errors.Is(err, domain.ErrForbidden):
		status, code = http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrInvalidTransition):
		status, code = http.StatusConflict, "invalid_transition"
	case errors.Is(err, context.DeadlineExceeded):
		status, code, msg = http.StatusGatewayTimeout, "timeout", "request timed out"
	case errors.Is(err, domain.ErrTransientIO), errors.Is(err, payment.ErrNotConfigured):
		status, code = http.StatusServiceUnavailable, "service_unavailable"
	default:
		logger.Error(r.Context(), nil, "request failed", zap.String("path", r.URL.Path), zap.Error(err))
		status, code, msg = http.StatusInternalServerError, "internal_error", "internal server error"
	}
	respondError(w, status, code, msg)
}

// pathID parses a positive integer path parameter.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}
