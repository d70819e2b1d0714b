// Package runner implements the request-dispatch engine for volley.
//
// The runner turns a run configuration (total requests, concurrency, rate
// limit) into a fixed pool of worker goroutines. Each worker repeatedly
// claims one unit from a shared request budget, waits for a rate-limiter
// permit, and executes one request through the [Requester] interface:
//
//	type Requester interface {
//		Do(ctx context.Context) error
//	}
//
// # Basic Usage
//
//	opts := runner.Options{
//		Concurrency:   10,
//		TotalRequests: 1000,
//		RatePerSecond: 100,
//		Requester:     myRequester,
//	}
//	r := runner.New(opts)
//	result := r.Run(ctx)
//
// # Guarantees
//
// At most TotalRequests attempts are ever issued; the budget claim is an
// atomic countdown, so no unit is claimed twice and none is lost. Cancelling
// the context passed to Run unblocks every worker at its next suspension
// point (budget claim, rate-limiter wait, in-flight request) and Run returns
// after all workers have joined.
//
// # Pacing
//
// Two arrival models are supported: [ArrivalModelUniform] spaces requests
// evenly through a token bucket, [ArrivalModelPoisson] samples exponential
// inter-arrival delays for bursty, realistic traffic.
//
// # Middleware
//
// Requesters compose with [WithRetry] (backoff between attempts) and
// [WithLogging] (failure logging).
package runner
