package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Result captures execution summary.
type Result struct {
	Total    int64         // attempts actually issued
	Errors   int64         // attempts that returned an error
	Duration time.Duration // wall-clock time of the run
}

// Runner coordinates a fixed pool of workers draining a shared request
// budget under rate limiting.
type Runner struct {
	opt     Options
	arrival arrivalController
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{opt: opt, arrival: newArrivalController(opt)}
}

// Run executes the configured load and blocks until every worker has
// terminated, either because the budget is exhausted or because ctx was
// cancelled. Cancellation propagates to workers blocked on the budget
// claim, the rate-limiter wait, and in-flight requests.
func (r *Runner) Run(ctx context.Context) Result {
	start := time.Now()
	var issued int64
	var errs int64

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if r.opt.Duration > 0 {
		deadlineCtx, deadlineCancel := context.WithTimeout(ctx, r.opt.Duration)
		ctx = deadlineCtx
		defer deadlineCancel()
	}

	bud := newBudget(r.opt.TotalRequests)

	var wg sync.WaitGroup
	wg.Add(r.opt.Concurrency)
	for i := 0; i < r.opt.Concurrency; i++ {
		go func() {
			defer wg.Done()
			r.work(ctx, bud, &issued, &errs)
		}()
	}
	wg.Wait()

	return Result{
		Total:    atomic.LoadInt64(&issued),
		Errors:   atomic.LoadInt64(&errs),
		Duration: time.Since(start),
	}
}

// work is one worker's loop: claim a unit, wait for a pacing permit,
// execute the request, repeat. A failed request never terminates the
// worker; only budget exhaustion or cancellation does.
func (r *Runner) work(ctx context.Context, bud *budget, issued, errs *int64) {
	for {
		if ctx.Err() != nil {
			return
		}
		if !bud.Claim() {
			return
		}
		if r.arrival != nil {
			if err := r.arrival.Wait(ctx); err != nil {
				// Cancelled while waiting for a permit; the claimed
				// unit is abandoned, never double-issued.
				return
			}
		}
		if r.opt.Requester == nil {
			atomic.AddInt64(issued, 1)
			continue
		}
		err := r.opt.Requester.Do(ctx)
		if err != nil && errors.Is(err, context.Canceled) {
			// Run-level cancellation surfaced mid-request. Not a
			// request failure; end this worker's loop.
			return
		}
		atomic.AddInt64(issued, 1)
		if err != nil {
			atomic.AddInt64(errs, 1)
		}
	}
}
