package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/hrdesk/internal/loadgen"
	"github.com/okian/hrdesk/pkg/logger"
)

// Default configuration constants.
const (
	defaultEvaluations = 1000
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultRunTimeout  = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9080", "Base URL of the service")
		evaluations = flag.Int("evaluations", defaultEvaluations, "Number of evaluations to create and score")
		formID      = flag.String("form", "form-annual", "Evaluation form id")
		periodID    = flag.String("period", "period-2024", "Evaluation period id attached to created evaluations")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		rps         = flag.Float64("rate", 0, "Max requests per second, 0 for unlimited")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		wait        = flag.Duration("wait", loadgen.DefaultWait, "How long to wait for queued submissions to be scored")
		syncMode    = flag.Bool("sync", false, "Score submissions synchronously")
		outputFile  = flag.String("output", "", "Output file for generated submissions")
		logFile     = flag.String("log", "", "Log file for run output (default: loadgen_TIMESTAMP.log)")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadgen.ShowHelp()
		return
	}

	if err := loadgen.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := &loadgen.Config{
		BaseURL:     *baseURL,
		Evaluations: *evaluations,
		FormID:      *formID,
		PeriodID:    *periodID,
		Workers:     *workers,
		Rate:        *rps,
		Timeout:     *timeout,
		Wait:        *wait,
		Sync:        *syncMode,
		OutputFile:  *outputFile,
		LogFile:     *logFile,
		Verbose:     *verbose,
	}

	if _, err := loadgen.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Load run failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}
