// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/internal/domain/types"
	"github.com/okian/hrdesk/pkg/logger"
)

const (
	defaultMaxListLimit = 100
	maxBodyBytes        = 1 << 20

	internalErrorBody = `{"code":"internal_error","message":"Internal Server Error"}` + "\n"
)

// Dependencies required by the evaluation handlers. Using an interface
// bundle keeps the handler layer loosely coupled to implementations in
// other packages.
type Dependencies interface {
	SubmissionDependencies
	RankingDependencies
	PerformanceDependencies
	EnrollmentDependencies
	Preview(criteria []model.Criterion, scores []model.Score) float64
}

// RecordStore is the CRUD surface of one record kind.
type RecordStore[T any] interface {
	Kind() model.Kind
	List(ctx context.Context, q types.ListQuery) (types.ListResult[T], error)
	Get(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, rec T) (T, error)
	Update(ctx context.Context, id string, rec T) (T, error)
	Delete(ctx context.Context, id string) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	submissionsHandler *SubmissionsHandler
	rankingHandler     *RankingHandler
	performanceHandler *PerformanceHandler
	enrollmentHandler  *EnrollmentHandler
	previewHandler     *PreviewHandler
	dashboardHandler   *dashboardHandler

	collections  []func(s *Server, mux *http.ServeMux)
	maxListLimit int
	limiter      *rate.Limiter
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxListLimit caps the page size accepted by list endpoints.
func WithMaxListLimit(limit int) Option {
	return func(s *Server) {
		if limit > 0 {
			s.maxListLimit = limit
		}
	}
}

// WithRateLimit throttles /api/v1 routes to rps requests per second with the
// given burst. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// WithCollection exposes CRUD routes for one record kind under
// /api/v1/{kind}.
func WithCollection[T any](store RecordStore[T]) Option {
	return func(s *Server) {
		s.collections = append(s.collections, func(s *Server, mux *http.ServeMux) {
			registerCollection(s, mux, store)
		})
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		submissionsHandler: NewSubmissionsHandler(deps),
		rankingHandler:     NewRankingHandler(deps),
		performanceHandler: NewPerformanceHandler(deps),
		enrollmentHandler:  NewEnrollmentHandler(deps),
		previewHandler:     NewPreviewHandler(deps),
		dashboardHandler:   newDashboardHandler(),
		maxListLimit:       defaultMaxListLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", MetricsMiddleware(s.healthHandler.HandleMetrics, "metrics"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /dashboard", s.dashboardHandler.HandleDashboard)

	// Specific evaluation paths take precedence over /api/v1/evaluations/{id}.
	mux.HandleFunc("GET /api/v1/evaluations/top", s.route(s.rankingHandler.HandleTopEvaluations, "evaluations_top"))
	mux.HandleFunc("POST /api/v1/evaluations/{id}/submit", s.route(s.submissionsHandler.HandleSubmit, "evaluations_submit"))
	mux.HandleFunc("POST /api/v1/scoring/preview", s.route(s.previewHandler.HandlePreview, "scoring_preview"))
	mux.HandleFunc("GET /api/v1/employees/{id}/performance", s.route(s.performanceHandler.HandlePerformance, "employees_performance"))
	mux.HandleFunc("POST /api/v1/trainings/{id}/enroll", s.route(s.enrollmentHandler.HandleEnroll, "trainings_enroll"))

	for _, register := range s.collections {
		register(s, mux)
	}
}

// route wraps an /api/v1 handler with rate limiting and metrics.
func (s *Server) route(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	if s.limiter != nil {
		next = RateLimitMiddleware(next, s.limiter, endpoint)
	}
	return MetricsMiddleware(next, endpoint)
}

type errorResponse struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// writeJSON encodes v before touching the response so an unencodable value
// becomes a 500 instead of a truncated success.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		logger.Get().Error(context.Background(), "encode response failed",
			logger.Int("status", status),
			logger.Error(err),
		)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, internalErrorBody)
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %w", ErrBadRequest, err)
	}
	return nil
}
