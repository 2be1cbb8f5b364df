package api

import (
	"errors"
	"net/http"

	service "github.com/okian/hrdesk/internal/app"
	"github.com/okian/hrdesk/internal/domain/validation"
	"github.com/okian/hrdesk/pkg/logger"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrRateLimit  = errors.New("rate limit exceeded")
)

// writeServiceError maps an error kind to its HTTP status.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "bad_request", Message: err.Error(), Details: verr.Errors})
	case errors.Is(err, ErrBadRequest), errors.Is(err, validation.ErrInvalid):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, service.ErrNotRunning):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		logger.Get().Error(r.Context(), "request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}
