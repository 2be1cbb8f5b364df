// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/hrdesk/internal/adapters/mq/queue"
	"github.com/okian/hrdesk/internal/adapters/mq/worker"
	"github.com/okian/hrdesk/internal/adapters/repository"
	"github.com/okian/hrdesk/internal/domain/dedupe"
	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/internal/domain/scoring"
	"github.com/okian/hrdesk/internal/seed"
	"github.com/okian/hrdesk/pkg/logger"
	"github.com/okian/hrdesk/pkg/metrics"
)

const (
	tracerName      = "github.com/okian/hrdesk/internal/app"
	shutdownTimeout = 30 * time.Second
)

// Service implements the API dependencies for HR records and evaluations.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   *repository.Store
	deduper dedupe.Deduper
	queue   *queue.InMemoryQueue
	scorer  scoring.Scorer
	pool    *worker.Pool

	// Record collections exposed to the API.
	Employees         *Records[model.Employee]
	Departments       *Records[model.Department]
	Benefits          *Records[model.Benefit]
	Trainings         *Records[model.Training]
	Shifts            *Records[model.Shift]
	Candidates        *Records[model.Candidate]
	EvaluationForms   *Records[model.EvaluationForm]
	EvaluationPeriods *Records[model.EvaluationPeriod]
	Evaluations       *Records[model.Evaluation]

	// Configuration
	workerCount  int
	queueSize    int
	dedupeSize   int
	maxListLimit int
	fixtures     *seed.Fixtures

	// evalMu and trainMu serialize read-modify-write cycles per kind.
	evalMu  sync.Mutex
	trainMu sync.Mutex

	// State
	started bool

	logger logger.Logger
	tracer trace.Tracer
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the submission queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the in-memory deduplication cache. It is
// ignored when WithDeduper supplies another implementation.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxListLimit caps the page size of list and ranking queries.
func WithMaxListLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxListLimit = limit
		}
	}
}

// WithStore sets the record store. The caller owns it and closes it after
// Stop.
func WithStore(store *repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithDeduper sets the submission deduplicator.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) {
		if d != nil {
			s.deduper = d
		}
	}
}

// WithScorer replaces the weighted scorer used by workers.
func WithScorer(scorer scoring.Scorer) Option {
	return func(s *Service) {
		if scorer != nil {
			s.scorer = scorer
		}
	}
}

// WithFixtures seeds the store on Start when it is empty.
func WithFixtures(fx *seed.Fixtures) Option {
	return func(s *Service) {
		s.fixtures = fx
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  runtime.NumCPU(),
		queueSize:    10_000,
		dedupeSize:   100_000,
		maxListLimit: 100,
		scorer:       scoring.NewWeightedScorer(),
		tracer:       otel.Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.deduper == nil {
		s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	}
	s.initRecords()
	return s
}

// Start seeds an empty store and starts the scoring workers. The workers
// outlive ctx; use Stop to end them.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting hrdesk service...")

	if s.fixtures != nil {
		if err := s.seedIfEmpty(ctx); err != nil {
			return err
		}
	}

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.scorer, s, worker.WithLogger(s.logger))
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "hrdesk service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.String("storage", s.store.Driver()),
	)
	return nil
}

func (s *Service) seedIfEmpty(ctx context.Context) error {
	counts, err := s.store.Counts(ctx)
	if err != nil {
		return err
	}
	for _, n := range counts {
		if n > 0 {
			s.logger.Info(ctx, "store already populated, skipping seed")
			return nil
		}
	}
	if err := seed.Apply(ctx, s.store, s.fixtures); err != nil {
		return err
	}
	s.logger.Info(ctx, "store seeded", logger.Int("records", s.fixtures.Total()))
	return nil
}

// Stop drains queued submissions and shuts the workers down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping hrdesk service...")
	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Error(ctx, "worker pool shutdown", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "hrdesk service stopped", logger.Int("processed", int(s.pool.Processed())))
}

// Store returns the record store backing the service.
func (s *Service) Store() *repository.Store { return s.store }

// MaxListLimit returns the largest accepted page size.
func (s *Service) MaxListLimit() int { return s.maxListLimit }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"dedupeSize":   s.dedupeSize,
		"dedupeLength": s.deduper.Size(),
		"storage":      s.store.Driver(),
	}

	if counts, err := s.store.Counts(ctx); err == nil {
		records := make(map[string]int, len(counts))
		for kind, n := range counts {
			records[string(kind)] = n
		}
		stats["records"] = records
	} else {
		s.logger.Warn(ctx, "count records", logger.Error(err))
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["processed"] = s.pool.Processed()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.pool.Size())
	}

	return stats
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	return s.deduper.Size()
}

// startSpan opens a span named op carrying attrs.
func (s *Service) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, op, trace.WithAttributes(attrs...))
}

// endSpan records err on span, if any, and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
