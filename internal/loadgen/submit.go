package loadgen

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/hrdesk/internal/domain/types"
	"github.com/okian/hrdesk/pkg/logger"
)

// submitScores submits every job's scores concurrently using a worker pool.
func submitScores(ctx context.Context, client *HTTPClient, cfg *Config, jobs []Job, stats *Stats) error {
	logger.Get().Info(ctx, "submitting scores",
		logger.Int("evaluations", len(jobs)),
		logger.Int("workers", cfg.Workers),
		logger.Bool("sync", cfg.Sync))

	var submitted atomic.Int64
	// counts is read-only after construction; only the counters change.
	counts := make(map[string]*atomic.Int64)
	for _, o := range []string{outcomeAccepted, outcomeScored, outcomeDuplicate, outcomeThrottled, outcomeFailed} {
		counts[o] = new(atomic.Int64)
	}
	count := func(o string) int { return int(counts[o].Load()) }

	var lastReport atomic.Int64
	reportInterval := time.Second

	jobChan := make(chan int, cfg.Workers*WorkerChannelMultiplier) // indices into jobs
	var wg sync.WaitGroup

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobChan {
				if ctx.Err() != nil {
					continue
				}
				outcome := submitWithRetry(ctx, client, cfg, jobs[idx])
				jobs[idx].Outcome = outcome
				submitted.Add(1)
				counts[outcome].Add(1)

				now := time.Now().UnixNano()
				last := lastReport.Load()
				if time.Duration(now-last) >= reportInterval && lastReport.CompareAndSwap(last, now) && cfg.Verbose {
					logger.Get().Info(ctx, "submission progress",
						logger.Int("submitted", int(submitted.Load())),
						logger.Int("total", len(jobs)))
				}
			}
		}()
	}

	go func() {
		defer close(jobChan)
		for idx := range jobs {
			select {
			case <-ctx.Done():
				return
			case jobChan <- idx:
			}
		}
	}()

	wg.Wait()

	stats.Submitted = int(submitted.Load())
	stats.Accepted = count(outcomeAccepted)
	stats.Scored = count(outcomeScored)
	stats.Duplicate = count(outcomeDuplicate)
	stats.Throttled = count(outcomeThrottled)
	stats.Failed = count(outcomeFailed)

	logger.Get().Info(ctx, "score submission completed",
		logger.Int("accepted", stats.Accepted),
		logger.Int("scored", stats.Scored),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("throttled", stats.Throttled),
		logger.Int("failed", stats.Failed))

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("submission interrupted: %w", err)
	}
	return nil
}

// applied reports whether a submission outcome means the scores reached the server.
func applied(outcome string) bool {
	switch outcome {
	case outcomeAccepted, outcomeScored, outcomeDuplicate:
		return true
	default:
		return false
	}
}

// submitWithRetry submits one job, retrying with the same submission id while
// the server answers 429.
func submitWithRetry(ctx context.Context, client *HTTPClient, cfg *Config, job Job) string {
	path := evaluationsPath + "/" + job.EvaluationID + "/submit"
	if cfg.Sync {
		path += "?sync=true"
	}
	req := types.SubmitRequest{SubmissionID: job.SubmissionID, Scores: job.Scores}

	backoff := retryBackoff
	for attempt := 0; ; attempt++ {
		outcome := submitSingle(ctx, client, path, req)
		if outcome != outcomeThrottled || attempt >= maxRetries {
			if outcome != outcomeAccepted && outcome != outcomeScored && cfg.Verbose {
				logger.Get().Warn(ctx, "submission not applied",
					logger.String("evaluationID", job.EvaluationID),
					logger.String("outcome", outcome))
			}
			return outcome
		}
		select {
		case <-ctx.Done():
			return outcomeFailed
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// submitSingle submits once and classifies the response.
func submitSingle(ctx context.Context, client *HTTPClient, path string, req types.SubmitRequest) string {
	status, body, err := client.Do(ctx, http.MethodPost, path, req, nil)
	if err != nil {
		return outcomeFailed
	}

	switch status {
	case statusAccepted:
		return outcomeAccepted
	case statusOK:
		var res types.SubmitResult
		if err := json.Unmarshal(body, &res); err != nil {
			return outcomeFailed
		}
		if res.Duplicate || res.Status == types.SubmitDuplicate {
			return outcomeDuplicate
		}
		if res.Status == types.SubmitStale {
			return outcomeFailed
		}
		return outcomeScored
	case statusTooManyRequests:
		return outcomeThrottled
	default:
		return outcomeFailed
	}
}
