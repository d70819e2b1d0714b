package runner

import "sync/atomic"

// budget is the shared countdown of requests remaining to issue. Workers
// claim one unit at a time; exactly the initial count of claims ever
// succeed, no unit is handed out twice.
type budget struct {
	remaining int64
	unlimited bool
}

func newBudget(total int) *budget {
	if total <= 0 {
		return &budget{unlimited: true}
	}
	return &budget{remaining: int64(total)}
}

// Claim reserves one unit of work. It returns false once the budget is
// exhausted; an unlimited budget always grants.
func (b *budget) Claim() bool {
	if b.unlimited {
		return true
	}
	for {
		current := atomic.LoadInt64(&b.remaining)
		if current <= 0 {
			return false
		}
		if atomic.CompareAndSwapInt64(&b.remaining, current, current-1) {
			return true
		}
	}
}

// Remaining reports how many unclaimed units are left. Unlimited budgets
// report -1.
func (b *budget) Remaining() int64 {
	if b.unlimited {
		return -1
	}
	return atomic.LoadInt64(&b.remaining)
}
