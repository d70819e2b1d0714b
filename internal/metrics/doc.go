// Package metrics aggregates per-request outcomes into run statistics.
//
// A [Collector] is the single shared sink for all workers: every completed
// attempt is recorded as an [Outcome] (latency, status code, bytes read,
// transport error). Latencies feed an HDR histogram so p50/p90/p99 are
// available for arbitrarily long runs without retaining individual samples.
//
// [Collector.Stats] produces an immutable snapshot; callers that need the
// final report must take it after the runner has joined all workers, which
// guarantees every outcome happened-before the snapshot.
//
// Transport failures are bucketed by [ErrorKind] (timeout, connection, DNS,
// TLS, ...) rather than raw Go type names, so reports stay readable.
package metrics
