package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/oklog/ulid/v2"
)

// Outcome is the result of one completed request attempt. A received
// response of any status code (including 4xx/5xx) is a transport-level
// success; Err is set only when no usable response came back.
type Outcome struct {
	Latency    time.Duration
	StatusCode int   // 0 when no response was received
	BytesRead  int64 // response body bytes drained
	Err        error // transport failure, nil on success
}

// Failed reports whether the outcome counts as a failure.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Collector records per-request outcomes in a thread-safe manner.
type Collector struct {
	mu           sync.Mutex
	runID        string
	hist         *hdrhistogram.Histogram
	successes    int64
	failures     int64
	minLatency   time.Duration
	maxLatency   time.Duration
	sumLatency   time.Duration
	bytesRead    int64
	statusCounts map[int]int64
	errorsByKind map[ErrorKind]int64
	start        time.Time
}

// Stats represents aggregated metrics for a run.
type Stats struct {
	RunID          string        `json:"run_id"`
	Total          int64         `json:"total"`
	Successes      int64         `json:"successes"`
	Failures       int64         `json:"failures"`
	MinLatency     time.Duration `json:"-"`
	MaxLatency     time.Duration `json:"-"`
	MeanLatency    time.Duration `json:"-"`
	P50Latency     time.Duration `json:"-"`
	P90Latency     time.Duration `json:"-"`
	P95Latency     time.Duration `json:"-"`
	P99Latency     time.Duration `json:"-"`
	Duration       time.Duration `json:"-"`
	RequestsPerSec float64       `json:"requests_per_sec"`
	BytesRead      int64         `json:"bytes_read"`
	BytesPerSec    float64       `json:"bytes_per_sec"`

	// JSON-friendly millisecond fields.
	MinLatencyMs  float64 `json:"min_latency_ms"`
	MaxLatencyMs  float64 `json:"max_latency_ms"`
	MeanLatencyMs float64 `json:"mean_latency_ms"`
	P50LatencyMs  float64 `json:"p50_latency_ms"`
	P90LatencyMs  float64 `json:"p90_latency_ms"`
	P95LatencyMs  float64 `json:"p95_latency_ms"`
	P99LatencyMs  float64 `json:"p99_latency_ms"`
	DurationMs    float64 `json:"duration_ms"`

	StatusCodes map[int]int64     `json:"status_codes,omitempty"`
	Errors      map[ErrorKind]int `json:"errors,omitempty"`
}

func NewCollector() *Collector {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	h := hdrhistogram.New(1, 60_000_000, 3)
	return &Collector{
		runID:        ulid.Make().String(),
		hist:         h,
		statusCounts: make(map[int]int64),
		errorsByKind: make(map[ErrorKind]int64),
		start:        time.Now(),
	}
}

// RunID returns the unique identifier minted for this run.
func (c *Collector) RunID() string {
	return c.runID
}

// Start marks the actual beginning of the run. The collector may be
// constructed earlier than the first request; resetting the start time
// keeps elapsed-based rates accurate.
func (c *Collector) Start() {
	c.mu.Lock()
	c.start = time.Now()
	c.mu.Unlock()
}

// Record folds a single outcome into the running statistics. Safe for
// concurrent use by any number of workers.
func (c *Collector) Record(o Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if o.Latency > 0 {
		us := o.Latency.Microseconds()
		if us < c.hist.LowestTrackableValue() {
			us = c.hist.LowestTrackableValue()
		}
		if us > c.hist.HighestTrackableValue() {
			us = c.hist.HighestTrackableValue()
		}
		_ = c.hist.RecordValue(us)
	}
	c.sumLatency += o.Latency

	if c.minLatency == 0 || o.Latency < c.minLatency {
		c.minLatency = o.Latency
	}
	if o.Latency > c.maxLatency {
		c.maxLatency = o.Latency
	}

	c.bytesRead += o.BytesRead

	if o.StatusCode > 0 {
		c.statusCounts[o.StatusCode]++
	}

	if o.Err == nil {
		c.successes++
	} else {
		c.failures++
		c.errorsByKind[ClassifyError(o.Err)]++
	}
}

// Stats computes and returns aggregated statistics for the given elapsed
// wall time. Derived fields (percentiles, rates) are computed here, not
// continuously.
func (c *Collector) Stats(elapsed time.Duration) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.successes + c.failures
	stats := Stats{
		RunID:      c.runID,
		Total:      total,
		Successes:  c.successes,
		Failures:   c.failures,
		MinLatency: c.minLatency,
		MaxLatency: c.maxLatency,
		BytesRead:  c.bytesRead,
	}

	if total > 0 {
		stats.MeanLatency = time.Duration(int64(c.sumLatency) / total)
	}

	if c.hist.TotalCount() > 0 {
		stats.P50Latency = time.Duration(c.hist.ValueAtQuantile(50)) * time.Microsecond
		stats.P90Latency = time.Duration(c.hist.ValueAtQuantile(90)) * time.Microsecond
		stats.P95Latency = time.Duration(c.hist.ValueAtQuantile(95)) * time.Microsecond
		stats.P99Latency = time.Duration(c.hist.ValueAtQuantile(99)) * time.Microsecond
	}

	stats.MinLatencyMs = float64(stats.MinLatency) / float64(time.Millisecond)
	stats.MaxLatencyMs = float64(stats.MaxLatency) / float64(time.Millisecond)
	stats.MeanLatencyMs = float64(stats.MeanLatency) / float64(time.Millisecond)
	stats.P50LatencyMs = float64(stats.P50Latency) / float64(time.Millisecond)
	stats.P90LatencyMs = float64(stats.P90Latency) / float64(time.Millisecond)
	stats.P95LatencyMs = float64(stats.P95Latency) / float64(time.Millisecond)
	stats.P99LatencyMs = float64(stats.P99Latency) / float64(time.Millisecond)

	stats.Duration = elapsed
	stats.DurationMs = float64(elapsed) / float64(time.Millisecond)
	if elapsed > 0 && total > 0 {
		stats.RequestsPerSec = float64(total) / elapsed.Seconds()
	}
	if elapsed > 0 && c.bytesRead > 0 {
		stats.BytesPerSec = float64(c.bytesRead) / elapsed.Seconds()
	}

	if len(c.statusCounts) > 0 {
		stats.StatusCodes = make(map[int]int64, len(c.statusCounts))
		for code, count := range c.statusCounts {
			stats.StatusCodes[code] = count
		}
	}
	if len(c.errorsByKind) > 0 {
		stats.Errors = make(map[ErrorKind]int, len(c.errorsByKind))
		for kind, count := range c.errorsByKind {
			stats.Errors[kind] = int(count)
		}
	}

	return stats
}

// LatencyBrackets exposes cumulative histogram brackets for export. Each
// bracket is the upper latency bound of a quantile.
func (c *Collector) LatencyBrackets() []Bracket {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hist.TotalCount() == 0 {
		return nil
	}
	quantiles := []float64{10, 25, 50, 75, 90, 95, 99, 99.9, 100}
	brackets := make([]Bracket, 0, len(quantiles))
	for _, q := range quantiles {
		brackets = append(brackets, Bracket{
			Quantile: q,
			Latency:  time.Duration(c.hist.ValueAtQuantile(q)) * time.Microsecond,
		})
	}
	return brackets
}

// Bracket is one row of the exported latency distribution.
type Bracket struct {
	Quantile float64
	Latency  time.Duration
}
