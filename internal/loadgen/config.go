package loadgen

import (
	"time"

	"github.com/okian/hrdesk/internal/domain/model"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL     string        // Base URL of the service
	Evaluations int           // Number of evaluations to create and score
	FormID      string        // Evaluation form used for every created evaluation
	PeriodID    string        // Optional period attached to created evaluations
	Workers     int           // Number of concurrent workers
	Rate        float64       // Max requests per second across workers, <= 0 disables
	Timeout     time.Duration // HTTP request timeout
	Wait        time.Duration // How long to wait for the queue to drain
	Sync        bool          // Submit with ?sync=true
	OutputFile  string        // Output file for generated submissions
	LogFile     string        // Log file for run output
	Verbose     bool          // Enable verbose logging
}

// Job is one evaluation created by the run and the scores submitted for it.
type Job struct {
	EvaluationID string        `json:"evaluation_id"`
	EmployeeID   string        `json:"employee_id"`
	SubmissionID string        `json:"submission_id"`
	Scores       []model.Score `json:"scores"`
	Expected     float64       `json:"expected_score"`
	Outcome      string        `json:"outcome,omitempty"`
}

// Mismatch records an evaluation whose stored score differs from the local result.
type Mismatch struct {
	EvaluationID string
	Status       string
	Expected     float64
	Stored       float64
}

// Stats holds run statistics.
type Stats struct {
	EvaluationsCreated int
	Submitted          int
	Accepted           int
	Scored             int
	Duplicate          int
	Throttled          int
	Failed             int
	Verified           int
	Mismatched         int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
