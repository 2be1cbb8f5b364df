package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/hrdesk/internal/adapters/mq/queue"
	worker "github.com/okian/hrdesk/internal/adapters/mq/worker"
	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/internal/domain/scoring"
	logging "github.com/okian/hrdesk/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

var reviewCriteria = []model.Criterion{
	{ID: "1", Weight: 25},
	{ID: "2", Weight: 20},
	{ID: "3", Weight: 20},
	{ID: "4", Weight: 15},
	{ID: "5", Weight: 20},
}

type mockQueue struct {
	ch chan queue.Submission
}

func newMockQueue() *mockQueue {
	return &mockQueue{ch: make(chan queue.Submission, 64)}
}

func (mq *mockQueue) Dequeue(context.Context) <-chan queue.Submission { return mq.ch }

func (mq *mockQueue) Close() error {
	close(mq.ch)
	return nil
}

func (mq *mockQueue) add(s queue.Submission) { mq.ch <- s } //nolint:gocritic // hugeParam

// mockUpdater resolves every submission against reviewCriteria and records
// the stored results by evaluation id.
type mockUpdater struct {
	mu         sync.Mutex
	results    map[string]scoring.Result
	resolveErr map[string]error
	applyErr   map[string]error
}

func newMockUpdater() *mockUpdater {
	return &mockUpdater{
		results:    make(map[string]scoring.Result),
		resolveErr: make(map[string]error),
		applyErr:   make(map[string]error),
	}
}

func (m *mockUpdater) ScoringInput(_ context.Context, s queue.Submission) (scoring.Input, error) { //nolint:gocritic // hugeParam
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.resolveErr[s.EvaluationID]; err != nil {
		return scoring.Input{}, err
	}
	return scoring.Input{EvaluationID: s.EvaluationID, Criteria: reviewCriteria, Scores: s.Scores}, nil
}

func (m *mockUpdater) ApplyScore(_ context.Context, s queue.Submission, res scoring.Result) error { //nolint:gocritic // hugeParam
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.applyErr[s.EvaluationID]; err != nil {
		return err
	}
	m.results[s.EvaluationID] = res
	return nil
}

func (m *mockUpdater) result(evaluationID string) (scoring.Result, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.results[evaluationID]
	return r, ok
}

func (m *mockUpdater) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.results)
}

type failingScorer struct{}

func (failingScorer) Score(context.Context, scoring.Input) (scoring.Result, error) {
	return scoring.Result{}, errors.New("scorer unavailable")
}

func sampleSubmission(evaluationID string) queue.Submission {
	return queue.Submission{
		SubmissionID: "sub-" + evaluationID,
		EvaluationID: evaluationID,
		Scores: []model.Score{
			{CriterionID: "1", Value: 4},
			{CriterionID: "2", Value: 5},
			{CriterionID: "3", Value: 4},
			{CriterionID: "4", Value: 3},
			{CriterionID: "5", Value: 4},
		},
		ReceivedAt: time.Now(),
	}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a new InMemoryWorker", t, func() {
		convey.So(logging.Init(), convey.ShouldBeNil)
		q := newMockQueue()
		updater := newMockUpdater()
		w := worker.NewInMemoryWorker(q, scoring.NewWeightedScorer(), updater, worker.WithName("test-worker"))

		convey.Convey("When processing a full submission directly", func() {
			err := w.Process(context.Background(), sampleSubmission("eval-1"))

			convey.Convey("Then the aggregated score is stored", func() {
				convey.So(err, convey.ShouldBeNil)
				res, ok := updater.result("eval-1")
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(res.OverallScore, convey.ShouldEqual, 4.1)
				convey.So(res.Scored, convey.ShouldEqual, 5)
			})
		})

		convey.Convey("When the submission cannot be resolved", func() {
			updater.resolveErr["eval-2"] = errors.New("evaluation not found")
			err := w.Process(context.Background(), sampleSubmission("eval-2"))

			convey.Convey("Then nothing is stored and the error is returned", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "evaluation not found")
				_, ok := updater.result("eval-2")
				convey.So(ok, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When storing the result fails", func() {
			storeErr := errors.New("store down")
			updater.applyErr["eval-3"] = storeErr
			err := w.Process(context.Background(), sampleSubmission("eval-3"))

			convey.Convey("Then the store error is wrapped", func() {
				convey.So(errors.Is(err, storeErr), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When running and receiving submissions from the queue", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go w.Run(ctx)

			q.add(sampleSubmission("eval-4"))

			convey.Convey("Then they are scored asynchronously", func() {
				convey.So(waitFor(func() bool { _, ok := updater.result("eval-4"); return ok }), convey.ShouldBeTrue)
			})

			convey.Convey("And shutdown completes", func() {
				shutdownCtx, done := context.WithTimeout(context.Background(), time.Second)
				defer done()
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			stopped := make(chan struct{})
			go func() {
				w.Run(ctx)
				close(stopped)
			}()
			cancel()

			convey.Convey("Then the worker stops", func() {
				select {
				case <-stopped:
				case <-time.After(time.Second):
					convey.So("worker did not stop", convey.ShouldBeEmpty)
				}
			})
		})

		convey.Convey("When the queue channel is closed", func() {
			stopped := make(chan struct{})
			go func() {
				w.Run(context.Background())
				close(stopped)
			}()
			_ = q.Close()

			convey.Convey("Then the worker stops", func() {
				select {
				case <-stopped:
				case <-time.After(time.Second):
					convey.So("worker did not stop", convey.ShouldBeEmpty)
				}
			})
		})
	})
}

func TestInMemoryWorker_ScoringError(t *testing.T) {
	convey.Convey("Given a worker whose scorer fails", t, func() {
		convey.So(logging.Init(), convey.ShouldBeNil)
		updater := newMockUpdater()
		w := worker.NewInMemoryWorker(newMockQueue(), failingScorer{}, updater)

		convey.Convey("Then submissions are not stored", func() {
			err := w.Process(context.Background(), sampleSubmission("eval-1"))
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(updater.count(), convey.ShouldEqual, 0)
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a worker pool on a real queue", t, func() {
		convey.So(logging.Init(), convey.ShouldBeNil)
		q := queue.NewInMemoryQueue(queue.WithCapacity(500))
		updater := newMockUpdater()

		convey.Convey("When created with a non-positive count", func() {
			p := worker.NewPool(0, q, scoring.NewWeightedScorer(), updater)

			convey.Convey("Then it falls back to one worker per CPU", func() {
				convey.So(p.Size(), convey.ShouldBeGreaterThan, 0)
			})
		})

		convey.Convey("When many submissions are enqueued concurrently", func() {
			p := worker.NewPool(8, q, scoring.NewWeightedScorer(), updater)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			p.Start(ctx)

			const total = 200
			var wg sync.WaitGroup
			for i := 0; i < total; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_ = q.Enqueue(ctx, sampleSubmission(fmt.Sprintf("eval-%03d", i)))
				}(i)
			}
			wg.Wait()

			convey.Convey("Then shutdown drains every queued submission", func() {
				convey.So(p.Shutdown(context.Background()), convey.ShouldBeNil)
				convey.So(updater.count(), convey.ShouldEqual, total)
				convey.So(p.Processed(), convey.ShouldEqual, total)
				res, _ := updater.result("eval-042")
				convey.So(res.OverallScore, convey.ShouldEqual, 4.1)
			})
		})

		convey.Convey("When the pool is stopped", func() {
			p := worker.NewPool(2, q, scoring.NewWeightedScorer(), updater)
			p.Start(context.Background())
			p.Stop()

			convey.Convey("Then later submissions are not processed", func() {
				_ = q.Enqueue(context.Background(), sampleSubmission("late"))
				time.Sleep(20 * time.Millisecond)
				convey.So(updater.count(), convey.ShouldEqual, 0)
			})
		})
	})
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
