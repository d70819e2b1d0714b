package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestCollectorRecordsSuccessAndFailure(t *testing.T) {
	c := NewCollector()

	c.Record(Outcome{Latency: 10 * time.Millisecond, StatusCode: 200, BytesRead: 128})
	c.Record(Outcome{Latency: 20 * time.Millisecond, StatusCode: 404, BytesRead: 64})
	c.Record(Outcome{Latency: 5 * time.Millisecond, Err: errors.New("dial refused")})

	stats := c.Stats(time.Second)
	if stats.Total != 3 {
		t.Fatalf("expected total 3, got %d", stats.Total)
	}
	// A received 404 is a transport success; only the dial error fails.
	if stats.Successes != 2 || stats.Failures != 1 {
		t.Fatalf("expected 2 successes / 1 failure, got %d/%d", stats.Successes, stats.Failures)
	}
	if stats.StatusCodes[200] != 1 || stats.StatusCodes[404] != 1 {
		t.Fatalf("status histogram wrong: %v", stats.StatusCodes)
	}
	if stats.BytesRead != 192 {
		t.Fatalf("expected 192 bytes read, got %d", stats.BytesRead)
	}
	if stats.MinLatency != 5*time.Millisecond {
		t.Fatalf("min latency wrong: %s", stats.MinLatency)
	}
	if stats.MaxLatency != 20*time.Millisecond {
		t.Fatalf("max latency wrong: %s", stats.MaxLatency)
	}
	if stats.RequestsPerSec != 3 {
		t.Fatalf("expected 3 rps over 1s, got %f", stats.RequestsPerSec)
	}
	if stats.RunID == "" {
		t.Fatal("expected a run id")
	}
}

func TestCollectorConcurrentRecordLosesNothing(t *testing.T) {
	const workers = 50
	const perWorker = 200

	c := NewCollector()
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(n int) {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if j%10 == 0 {
					c.Record(Outcome{Latency: time.Millisecond, Err: errors.New("x")})
				} else {
					c.Record(Outcome{Latency: time.Millisecond, StatusCode: 200, BytesRead: 1})
				}
			}
		}(i)
	}
	wg.Wait()

	stats := c.Stats(time.Second)
	if stats.Total != workers*perWorker {
		t.Fatalf("lost updates: total=%d want=%d", stats.Total, workers*perWorker)
	}
	if stats.Failures != workers*perWorker/10 {
		t.Fatalf("failure count wrong: %d", stats.Failures)
	}
	if stats.Successes+stats.Failures != stats.Total {
		t.Fatalf("success+failure != total: %d+%d != %d", stats.Successes, stats.Failures, stats.Total)
	}
}

func TestCollectorPercentiles(t *testing.T) {
	c := NewCollector()
	for i := 1; i <= 100; i++ {
		c.Record(Outcome{Latency: time.Duration(i) * time.Millisecond, StatusCode: 200})
	}

	stats := c.Stats(time.Second)
	// HDR histogram holds approximate values; allow 5% slack.
	within := func(got time.Duration, want time.Duration) bool {
		diff := got - want
		if diff < 0 {
			diff = -diff
		}
		return diff <= want/20+time.Millisecond
	}
	if !within(stats.P50Latency, 50*time.Millisecond) {
		t.Fatalf("p50 off: %s", stats.P50Latency)
	}
	if !within(stats.P90Latency, 90*time.Millisecond) {
		t.Fatalf("p90 off: %s", stats.P90Latency)
	}
	if !within(stats.P99Latency, 99*time.Millisecond) {
		t.Fatalf("p99 off: %s", stats.P99Latency)
	}
	if stats.MeanLatency <= 0 {
		t.Fatal("mean not computed")
	}
}

func TestCollectorLatencyBrackets(t *testing.T) {
	c := NewCollector()
	if got := c.LatencyBrackets(); got != nil {
		t.Fatalf("expected nil brackets for empty collector, got %v", got)
	}

	for i := 1; i <= 50; i++ {
		c.Record(Outcome{Latency: time.Duration(i) * time.Millisecond, StatusCode: 200})
	}
	brackets := c.LatencyBrackets()
	if len(brackets) == 0 {
		t.Fatal("expected brackets")
	}
	for i := 1; i < len(brackets); i++ {
		if brackets[i].Latency < brackets[i-1].Latency {
			t.Fatalf("brackets not monotonic at %d: %v", i, brackets)
		}
	}
}

func TestCollectorStartResetsClock(t *testing.T) {
	c := NewCollector()
	time.Sleep(10 * time.Millisecond)
	c.Start()
	c.Record(Outcome{Latency: time.Millisecond, StatusCode: 200})

	stats := c.Stats(time.Millisecond)
	if stats.RequestsPerSec < 500 {
		t.Fatalf("elapsed-based rate looks wrong: %f", stats.RequestsPerSec)
	}
}
