// Package worker scores queued submissions and writes the results back.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/hrdesk/internal/adapters/mq/queue"
	"github.com/okian/hrdesk/internal/domain/scoring"
	"github.com/okian/hrdesk/pkg/logger"
	"github.com/okian/hrdesk/pkg/metrics"
)

const (
	workerShutdownTimeout = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Submission abstracts what workers read off the queue.
type Submission = queue.Submission

// Updater resolves what a submission scores against and stores the outcome.
type Updater interface {
	// ScoringInput returns the criteria and scores to aggregate for s.
	ScoringInput(ctx context.Context, s Submission) (scoring.Input, error)
	// ApplyScore stores the computed result for s.
	ApplyScore(ctx context.Context, s Submission, res scoring.Result) error
}

// Queue defines how workers receive submissions.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Submission
}

// Worker processes submissions until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled, Shutdown is called,
	// or the queue is closed and drained.
	Run(ctx context.Context)

	// Shutdown stops the worker after the submission in flight.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing submissions.
type InMemoryWorker struct {
	queue   Queue
	scorer  scoring.Scorer
	updater Updater
	name    string

	// processed is shared with the owning pool, if any.
	processed *atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, scorer scoring.Scorer, updater Updater, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		scorer:    scorer,
		updater:   updater,
		name:      "worker",
		processed: new(atomic.Int64),
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named("worker")
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	items := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case s, ok := <-items:
			if !ok {
				return
			}
			if err := w.Process(ctx, s); err != nil {
				w.logger.Error(ctx, "error processing submission", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stop()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) stop() {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
}

// Process scores a single submission and stores the result.
func (w *InMemoryWorker) Process(ctx context.Context, s Submission) error { //nolint:gocritic // hugeParam: passed by value for channel semantics
	start := time.Now()
	metrics.AddWorkerActive(1)
	defer func() {
		metrics.AddWorkerActive(-1)
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()
	if !s.ReceivedAt.IsZero() {
		metrics.RecordQueueProcessingLatency(float64(start.Sub(s.ReceivedAt).Microseconds()) / 1000)
	}

	in, err := w.updater.ScoringInput(ctx, s)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "resolve_error")
		return fmt.Errorf("resolve submission %s: %w", s.SubmissionID, err)
	}

	scoreStart := time.Now()
	res, err := w.scorer.Score(ctx, in)
	metrics.RecordScoringLatency(float64(time.Since(scoreStart).Microseconds()) / 1000)
	if err != nil {
		metrics.RecordScoringError()
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "scoring_error")
		metrics.RecordErrorByType("scoring_error", "high")
		return fmt.Errorf("score submission %s: %w", s.SubmissionID, err)
	}

	if err := w.updater.ApplyScore(ctx, s, res); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "update_error")
		metrics.RecordErrorByType("update_error", "high")
		return fmt.Errorf("store score for submission %s: %w", s.SubmissionID, err)
	}

	metrics.RecordEvaluationScored(res.OverallScore)
	w.processed.Add(1)
	w.logger.Debug(ctx, "submission scored",
		logger.String("submission_id", s.SubmissionID),
		logger.String("evaluation_id", s.EvaluationID),
		logger.Float64("overall_score", res.OverallScore),
	)
	return nil
}

// Pool manages multiple workers reading from one queue.
type Pool struct {
	workers   []*InMemoryWorker
	queue     Queue
	processed atomic.Int64
	logger    logger.Logger
}

// NewPool creates a new worker pool. workerCount < 1 uses runtime.NumCPU().
func NewPool(workerCount int, q Queue, scorer scoring.Scorer, updater Updater, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
	}
	scratch := &InMemoryWorker{}
	for _, opt := range opts {
		opt(scratch)
	}
	p.logger = scratch.logger
	if p.logger == nil {
		p.logger = logger.Get()
	}
	p.logger = p.logger.Named("worker-pool")

	for i := 0; i < workerCount; i++ {
		w := NewInMemoryWorker(q, scorer, updater, append(opts, WithName("worker-"+strconv.Itoa(i)))...)
		w.processed = &p.processed
		p.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns the number of submissions scored and stored.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Stop stops every worker after its in-flight submission without draining
// the queue.
func (p *Pool) Stop() {
	for _, w := range p.workers {
		w.stop()
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown closes the queue and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut int
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut++
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	if timedOut > 0 {
		p.Stop()
		return fmt.Errorf("%d workers did not drain: %w", timedOut, shutdownCtx.Err())
	}
	return nil
}
