package loadgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/internal/domain/types"
	"github.com/okian/hrdesk/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	outputPermission    = 0600
)

// ErrVerification is returned when stored scores disagree with the local result.
var ErrVerification = errors.New("score verification failed")

// Run executes the complete load run and returns its statistics.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Wait <= 0 {
		cfg.Wait = DefaultWait
	}

	logger.Get().Info(ctx, "starting load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("evaluations", cfg.Evaluations),
		logger.Int("workers", cfg.Workers),
		logger.Float64("rate", cfg.Rate),
		logger.Duration("timeout", cfg.Timeout),
		logger.String("formID", cfg.FormID),
		logger.Bool("sync", cfg.Sync))

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout, cfg.Rate, cfg.Workers)

	// Step 1: Check service health
	if err := client.Get(ctx, healthPath, statusOK, nil); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Load the form and the employees to review
	var form model.EvaluationForm
	if err := client.Get(ctx, formsPath+"/"+cfg.FormID, statusOK, &form); err != nil {
		return stats, fmt.Errorf("load evaluation form: %w", err)
	}
	var employees types.ListResult[model.Employee]
	if err := client.Get(ctx, employeesPath+"?limit="+strconv.Itoa(maxPageSize), statusOK, &employees); err != nil {
		return stats, fmt.Errorf("load employees: %w", err)
	}

	// Step 3: Create draft evaluations
	jobs, err := createEvaluations(ctx, client, cfg, form, employees.Items, stats)
	if err != nil {
		return stats, fmt.Errorf("evaluation creation failed: %w", err)
	}

	// Step 4: Submit scores concurrently
	if err := submitScores(ctx, client, cfg, jobs, stats); err != nil {
		return stats, fmt.Errorf("score submission failed: %w", err)
	}

	// Step 5: Wait for scoring and verify stored results
	mismatches, err := verifyScores(ctx, client, cfg, jobs, stats)
	if err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}

	if cfg.OutputFile != "" {
		if err := saveJobsToFile(ctx, cfg.OutputFile, jobs); err != nil {
			logger.Get().Warn(ctx, "failed to save submissions to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	if len(mismatches) > 0 {
		return stats, fmt.Errorf("%w: %d of %d evaluations", ErrVerification, len(mismatches), len(jobs))
	}
	logger.Get().Info(ctx, "load run completed successfully")
	return stats, nil
}

// saveJobsToFile writes the generated submissions as a JSON array.
func saveJobsToFile(ctx context.Context, filename string, jobs []Job) error {
	if len(jobs) == 0 {
		return fmt.Errorf("no submissions to save")
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal submissions: %w", err)
	}
	if err := os.WriteFile(filename, data, outputPermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	logger.Get().Info(ctx, "submissions saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(stats *Stats) {
	var successRate, perSecond float64

	if stats.Submitted > 0 {
		successRate = float64(stats.Accepted+stats.Scored) / float64(stats.Submitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("evaluationsCreated", stats.EvaluationsCreated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("scored", stats.Scored),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("throttled", stats.Throttled),
		logger.Int("failed", stats.Failed),
		logger.Int("verified", stats.Verified),
		logger.Int("mismatched", stats.Mismatched),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("submissionsPerSecond", perSecond))
}
