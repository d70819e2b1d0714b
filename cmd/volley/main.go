package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/volleyhq/volley/internal/config"
	"github.com/volleyhq/volley/internal/httpclient"
	"github.com/volleyhq/volley/internal/metrics"
	"github.com/volleyhq/volley/internal/output"
	"github.com/volleyhq/volley/internal/runner"
	"github.com/volleyhq/volley/internal/threshold"
	"github.com/volleyhq/volley/internal/tracing"
)

const (
	progressInterval = time.Second
	baseRetryDelay   = 100 * time.Millisecond
	maxRetryDelay    = 5 * time.Second
	shutdownTimeout  = 5 * time.Second
)

type stderrFailureLogger struct {
	mu sync.Mutex
}

type jitterSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	if cfg.CPUs > 0 {
		runtime.GOMAXPROCS(cfg.CPUs)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		_ = provider.Shutdown(shutdownCtx)
	}()

	builder, err := httpclient.NewRequestBuilder(cfg)
	if err != nil {
		return err
	}
	client, err := httpclient.NewClient(cfg)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector()

	requester := &httpRequester{
		client:       client,
		builder:      builder,
		collector:    collector,
		tracer:       provider.Tracer(),
		propagate:    provider.ShouldPropagate(),
		failOnStatus: cfg.FailOnStatus,
	}

	var wrapped runner.Requester = requester
	if cfg.LogErrors {
		wrapped = runner.WithLogging(wrapped, &stderrFailureLogger{})
	}
	if cfg.Retries > 0 {
		wrapped = runner.WithRetry(wrapped, newRetryPolicy(cfg.Retries))
	}

	r := runner.New(runner.Options{
		Concurrency:   cfg.Concurrency,
		TotalRequests: cfg.Total,
		Duration:      cfg.Duration,
		RatePerSecond: cfg.Rate,
		Requester:     wrapped,
	})

	var progress *output.ProgressReporter
	if !cfg.JSONOutput && cfg.Output != config.OutputCSV {
		progress = output.NewProgressReporter(collector, progressInterval, os.Stdout)
		progress.Start()
	}

	// Mark the actual start time so elapsed-based rates exclude setup.
	collector.Start()
	result := r.Run(ctx)

	if progress != nil {
		progress.Stop()
		fmt.Fprintln(os.Stdout)
	}

	stats := collector.Stats(result.Duration)

	if err := renderReport(cfg, stats, collector.LatencyBrackets()); err != nil {
		return err
	}

	results := threshold.Evaluate(thresholds, stats)
	for _, res := range results {
		fmt.Fprintln(os.Stderr, res.Message)
	}
	if !threshold.AllPassed(results) {
		return fmt.Errorf("one or more thresholds failed")
	}

	if result.Errors > 0 {
		return fmt.Errorf("%d requests failed", result.Errors)
	}
	return nil
}

func renderReport(cfg *config.Config, stats metrics.Stats, brackets []metrics.Bracket) error {
	if cfg.JSONOutput {
		return output.PrintJSONReport(os.Stdout, stats)
	}
	if cfg.Output == config.OutputCSV {
		if cfg.OutputFile != "" {
			return output.WriteCSVFile(cfg.OutputFile, stats, brackets)
		}
		return output.WriteCSV(os.Stdout, stats, brackets)
	}
	output.PrintReport(os.Stdout, stats)
	if cfg.OutputFile != "" {
		return output.WriteCSVFile(cfg.OutputFile, stats, brackets)
	}
	return nil
}

func (l *stderrFailureLogger) LogFailure(err error) {
	if err == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(os.Stderr, "[volley] request failed: %v\n", err)
}

func newRetryPolicy(retries int) runner.RetryPolicy {
	source := &jitterSource{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}

	return runner.RetryPolicy{
		MaxAttempts: retries + 1,
		ShouldRetry: func(err error) bool {
			if err == nil {
				return false
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return false
			}

			var httpErr *runner.HTTPError
			if errors.As(err, &httpErr) {
				if httpErr.StatusCode == http.StatusTooManyRequests {
					return true
				}
				return httpErr.StatusCode >= 500
			}

			return true
		},
		DelayFunc: func(attempt int, err error) time.Duration {
			if attempt < 1 {
				attempt = 1
			}
			backoff := time.Duration(1<<uint(attempt-1)) * baseRetryDelay
			if backoff > maxRetryDelay {
				backoff = maxRetryDelay
			}
			return backoff + source.jitter(backoff/2)
		},
	}
}

func (j *jitterSource) jitter(max time.Duration) time.Duration {
	if j == nil || max <= 0 {
		return 0
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return time.Duration(j.rnd.Int63n(int64(max)))
}
