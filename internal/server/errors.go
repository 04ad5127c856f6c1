package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	goIntake "github.com/MrEthical07/goIntake"
	intakemw "github.com/MrEthical07/goIntake/middleware"
	"github.com/MrEthical07/goIntake/textgen"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const (
	msgInvalidLogin  = "invalid login details"
	msgExpired       = "this intake session has expired"
	msgInternalError = "an internal error occurred, please try again later"
)

type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

// mapError returns the status, machine code and client message for err.
// Unknown errors are 500 with a generic message.
func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, goIntake.ErrValidation):
		return http.StatusBadRequest, "validation_error", err.Error()
	case errors.Is(err, textgen.ErrInvalidRequest):
		return http.StatusBadRequest, "validation_error", err.Error()
	case errors.Is(err, goIntake.ErrCredentialNotFound):
		return http.StatusNotFound, "not_found", msgInvalidLogin
	case errors.Is(err, goIntake.ErrReportNotFound):
		return http.StatusNotFound, "not_found", "report not found"
	case errors.Is(err, goIntake.ErrCredentialExpired):
		return http.StatusForbidden, "expired", msgExpired
	case errors.Is(err, goIntake.ErrCredentialInvalid):
		return http.StatusUnauthorized, "invalid_credentials", msgInvalidLogin
	case errors.Is(err, goIntake.ErrSessionTokenInvalid):
		return http.StatusUnauthorized, "invalid_session_token", "invalid or missing session token"
	case errors.Is(err, goIntake.ErrRateLimited), errors.Is(err, goIntake.ErrIssueThrottled):
		return http.StatusTooManyRequests, "rate_limited", intakemw.RateLimitMessage
	default:
		return http.StatusInternalServerError, "internal_error", msgInternalError
	}
}

// handleError writes the mapped response. Server-side failures are logged
// with their cause, which never reaches the client.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := mapError(err)
	if status >= http.StatusInternalServerError {
		level := s.log.Error
		if errors.Is(err, context.Canceled) {
			level = s.log.Warn
		}
		level("request failed",
			zap.Error(err),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	}
	writeError(w, r, status, code, msg)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, status, errorBody{
		Error:     msg,
		Code:      code,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
