package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/volleyhq/volley/internal/config"
	"github.com/volleyhq/volley/internal/httpclient"
	"github.com/volleyhq/volley/internal/metrics"
	"github.com/volleyhq/volley/internal/runner"
)

func newTestRequester(t *testing.T, cfg *config.Config) (*httpRequester, *metrics.Collector) {
	t.Helper()
	builder, err := httpclient.NewRequestBuilder(cfg)
	if err != nil {
		t.Fatalf("NewRequestBuilder() error = %v", err)
	}
	client, err := httpclient.NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	collector := metrics.NewCollector()
	return &httpRequester{
		client:       client,
		builder:      builder,
		collector:    collector,
		failOnStatus: cfg.FailOnStatus,
	}, collector
}

func testConfig(target string) *config.Config {
	return &config.Config{
		TargetURL:   target,
		Method:      "GET",
		Total:       1,
		Concurrency: 1,
		Timeout:     5 * time.Second,
	}
}

func TestRequesterRecordsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hello world"))
	}))
	defer srv.Close()

	req, collector := newTestRequester(t, testConfig(srv.URL))
	if err := req.Do(context.Background()); err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	stats := collector.Stats(time.Second)
	if stats.Total != 1 || stats.Successes != 1 {
		t.Fatalf("stats = %+v, want one success", stats)
	}
	if stats.StatusCodes[200] != 1 {
		t.Fatalf("status codes = %v, want one 200", stats.StatusCodes)
	}
	if stats.BytesRead != int64(len("hello world")) {
		t.Fatalf("bytes read = %d, want %d", stats.BytesRead, len("hello world"))
	}
}

func TestRequesterNonSuccessStatusIsNotFailureByDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	req, collector := newTestRequester(t, testConfig(srv.URL))
	if err := req.Do(context.Background()); err != nil {
		t.Fatalf("Do() error = %v, want nil for tracked status", err)
	}

	stats := collector.Stats(time.Second)
	if stats.Successes != 1 || stats.Failures != 0 {
		t.Fatalf("stats = %+v, want tracked 500 as transport success", stats)
	}
	if stats.StatusCodes[500] != 1 {
		t.Fatalf("status codes = %v, want one 500", stats.StatusCodes)
	}
}

func TestRequesterFailOnStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("overloaded"))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.FailOnStatus = true
	req, collector := newTestRequester(t, cfg)

	err := req.Do(context.Background())
	var httpErr *runner.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Do() error = %v, want *runner.HTTPError", err)
	}
	if httpErr.StatusCode != 503 {
		t.Fatalf("status = %d, want 503", httpErr.StatusCode)
	}
	if httpErr.Body != "overloaded" {
		t.Fatalf("body snippet = %q, want %q", httpErr.Body, "overloaded")
	}

	stats := collector.Stats(time.Second)
	if stats.Failures != 1 {
		t.Fatalf("failures = %d, want 1", stats.Failures)
	}
	if stats.StatusCodes[503] != 1 {
		t.Fatalf("status codes = %v, want one 503", stats.StatusCodes)
	}
}

func TestRequesterConnectionErrorIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := srv.URL
	srv.Close() // nothing listens anymore

	req, collector := newTestRequester(t, testConfig(target))
	if err := req.Do(context.Background()); err == nil {
		t.Fatal("Do() against closed server should fail")
	}

	stats := collector.Stats(time.Second)
	if stats.Failures != 1 {
		t.Fatalf("failures = %d, want 1", stats.Failures)
	}
	if stats.Errors[metrics.KindConnection] != 1 {
		t.Fatalf("errors = %v, want one connection error", stats.Errors)
	}
}

func TestRequesterTimeoutRecordedAsTimeoutFailure(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&hits, 1) == 1 {
			// Stall the first request until the client gives up on it.
			<-r.Context().Done()
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Timeout = 100 * time.Millisecond
	req, collector := newTestRequester(t, cfg)

	if err := req.Do(context.Background()); err == nil {
		t.Fatal("Do() against a stalled server should time out")
	}

	stats := collector.Stats(time.Second)
	if stats.Failures != 1 {
		t.Fatalf("failures = %d, want 1", stats.Failures)
	}
	if stats.Errors[metrics.KindTimeout] != 1 {
		t.Fatalf("errors = %v, want one timeout", stats.Errors)
	}

	// A timed-out attempt must not poison the requester for later attempts.
	if err := req.Do(context.Background()); err != nil {
		t.Fatalf("Do() after timeout error = %v", err)
	}
	stats = collector.Stats(time.Second)
	if stats.Successes != 1 {
		t.Fatalf("successes = %d, want 1 after recovery", stats.Successes)
	}
}

func TestRequesterCancelledAttemptNotRecorded(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	req, collector := newTestRequester(t, testConfig(srv.URL))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := req.Do(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do() error = %v, want context.Canceled", err)
	}

	stats := collector.Stats(time.Second)
	if stats.Total != 0 {
		t.Fatalf("cancelled attempt was recorded: %+v", stats)
	}
}
