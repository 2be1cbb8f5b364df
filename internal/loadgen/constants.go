package loadgen

import "time"

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	DefaultWait          = 30 * time.Second
	PollInterval         = 250 * time.Millisecond
	PercentageMultiplier = 100
	maxPageSize          = 100
	maxRetries           = 5
	retryBackoff         = 50 * time.Millisecond
)

// Submission outcomes counted by the runner.
const (
	outcomeAccepted  = "accepted"
	outcomeScored    = "scored"
	outcomeDuplicate = "duplicate"
	outcomeThrottled = "throttled"
	outcomeFailed    = "failed"
)

// HTTP status code constants.
const (
	statusOK              = 200
	statusCreated         = 201
	statusAccepted        = 202
	statusTooManyRequests = 429
)

// API paths.
const (
	healthPath      = "/healthz"
	employeesPath   = "/api/v1/employees"
	formsPath       = "/api/v1/evaluation-forms"
	evaluationsPath = "/api/v1/evaluations"
)
