package loadgen

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/okian/hrdesk/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "loadgen_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	log.SetOutput(io.MultiWriter(os.Stdout, file))
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the load generator.
func ShowHelp() {
	os.Stdout.WriteString(`HR Desk Load Generator
======================

Creates evaluations on a running server, submits random reviewer scores
concurrently and checks every stored overall score against a local
computation.

Usage:
  go run ./cmd/loadgen [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -evaluations int
        Number of evaluations to create and score (default 1000)
  -form string
        Evaluation form id (default "form-annual")
  -period string
        Evaluation period id attached to created evaluations (default "period-2024")
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -rate float
        Max requests per second, 0 for unlimited (default 0)
  -timeout duration
        HTTP request timeout (default 30s)
  -wait duration
        How long to wait for queued submissions to be scored (default 30s)
  -sync
        Score submissions synchronously
  -output string
        Output file for generated submissions (default: none)
  -log string
        Log file for run output (default: loadgen_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  go run ./cmd/loadgen -evaluations 5000 -workers 16
  go run ./cmd/loadgen -url http://localhost:8080 -rate 200 -verbose
`)
}
