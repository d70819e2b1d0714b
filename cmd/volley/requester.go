package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/volleyhq/volley/internal/httpclient"
	"github.com/volleyhq/volley/internal/metrics"
	"github.com/volleyhq/volley/internal/runner"
	"github.com/volleyhq/volley/internal/tracing"
)

const maxLoggedBodyBytes = 1024

// httpRequester implements runner.Requester. Each Do builds a fresh
// request, executes it, drains the body, and folds the outcome into the
// collector.
type httpRequester struct {
	client       *http.Client
	builder      *httpclient.RequestBuilder
	collector    *metrics.Collector
	tracer       trace.Tracer
	propagate    bool
	failOnStatus bool
}

// Do executes one HTTP request and records its outcome. A cancelled
// attempt is not recorded; it never happened as far as the report is
// concerned.
func (r *httpRequester) Do(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()

	req, err := r.builder.Build(ctx)
	if err != nil {
		r.collector.Record(metrics.Outcome{Latency: time.Since(start), Err: err})
		return err
	}

	var span trace.Span
	if r.tracer != nil {
		var spanCtx context.Context
		spanCtx, span = tracing.StartRequestSpan(ctx, r.tracer, req.Method, req.URL.String())
		if r.propagate {
			tracing.InjectHTTPHeaders(spanCtx, req.Header)
		}
		req = req.WithContext(spanCtx)
	}

	resp, err := r.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		if span != nil {
			tracing.EndSpan(span, err)
		}
		if errors.Is(err, context.Canceled) {
			return err
		}
		r.collector.Record(metrics.Outcome{Latency: latency, Err: err})
		return err
	}
	defer resp.Body.Close()

	var resultErr error
	var bytesRead int64
	if r.failOnStatus && resp.StatusCode >= 400 {
		snippet, readErr := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBodyBytes))
		bytesRead = int64(len(snippet))
		if readErr != nil {
			resultErr = readErr
		} else {
			resultErr = &runner.HTTPError{
				StatusCode: resp.StatusCode,
				Body:       strings.TrimSpace(string(snippet)),
			}
		}
		n, _ := io.Copy(io.Discard, resp.Body)
		bytesRead += n
	} else {
		bytesRead, _ = io.Copy(io.Discard, resp.Body)
	}

	if span != nil {
		tracing.EndSpan(span, resultErr, attribute.Int("http.response.status_code", resp.StatusCode))
	}

	r.collector.Record(metrics.Outcome{
		Latency:    latency,
		StatusCode: resp.StatusCode,
		BytesRead:  bytesRead,
		Err:        resultErr,
	})
	return resultErr
}
