package runner

import (
	"context"
	"fmt"
	"time"
)

// HTTPError reports a response whose status the run is configured to treat
// as a failure. The body snippet is capped by whoever constructs it.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// FailureLogger receives every failed attempt that passes through
// WithLogging.
type FailureLogger interface {
	LogFailure(err error)
}

// RetryPolicy controls how WithRetry re-issues failed attempts.
type RetryPolicy struct {
	MaxAttempts int              // total attempts, including the first
	ShouldRetry func(error) bool // nil retries every error
	// DelayFunc returns the pause before the next attempt; attempt is
	// 1-based. A nil func or non-positive delay retries immediately.
	DelayFunc func(attempt int, err error) time.Duration
}

type retryRequester struct {
	inner  Requester
	policy RetryPolicy
}

// WithRetry decorates req so failed attempts are re-issued per policy.
// A policy without headroom for a second attempt returns req unchanged.
func WithRetry(req Requester, policy RetryPolicy) Requester {
	if policy.MaxAttempts <= 1 {
		return req
	}
	return &retryRequester{inner: req, policy: policy}
}

func (r *retryRequester) Do(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := r.inner.Do(ctx)
		if err == nil {
			return nil
		}
		if attempt >= r.policy.MaxAttempts {
			return err
		}
		if r.policy.ShouldRetry != nil && !r.policy.ShouldRetry(err) {
			return err
		}

		if r.policy.DelayFunc == nil {
			continue
		}
		delay := r.policy.DelayFunc(attempt, err)
		if delay <= 0 {
			continue
		}
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

type loggingRequester struct {
	inner  Requester
	logger FailureLogger
}

// WithLogging decorates req so every failure reaches logger. Successes
// pass through silently.
func WithLogging(req Requester, logger FailureLogger) Requester {
	if logger == nil {
		return req
	}
	return &loggingRequester{inner: req, logger: logger}
}

func (l *loggingRequester) Do(ctx context.Context) error {
	err := l.inner.Do(ctx)
	if err != nil {
		l.logger.LogFailure(err)
	}
	return err
}
