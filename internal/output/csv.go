package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/gofrs/flock"

	"github.com/volleyhq/volley/internal/metrics"
)

// WriteCSV renders the latency distribution, status codes and error kinds
// as CSV rows to w.
func WriteCSV(w io.Writer, stats metrics.Stats, brackets []metrics.Bracket) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"section", "key", "value"}); err != nil {
		return err
	}

	summary := [][]string{
		{"summary", "run_id", stats.RunID},
		{"summary", "total", strconv.FormatInt(stats.Total, 10)},
		{"summary", "successes", strconv.FormatInt(stats.Successes, 10)},
		{"summary", "failures", strconv.FormatInt(stats.Failures, 10)},
		{"summary", "duration_ms", strconv.FormatFloat(stats.DurationMs, 'f', 3, 64)},
		{"summary", "requests_per_sec", strconv.FormatFloat(stats.RequestsPerSec, 'f', 3, 64)},
		{"summary", "bytes_read", strconv.FormatInt(stats.BytesRead, 10)},
		{"summary", "mean_latency_ms", strconv.FormatFloat(stats.MeanLatencyMs, 'f', 3, 64)},
	}
	if err := writer.WriteAll(summary); err != nil {
		return err
	}

	for _, b := range brackets {
		row := []string{
			"latency",
			strconv.FormatFloat(b.Quantile, 'f', -1, 64),
			strconv.FormatFloat(float64(b.Latency.Microseconds())/1000, 'f', 3, 64),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	for _, row := range metrics.FlattenStatusCodes(stats.StatusCodes) {
		if err := writer.Write([]string{"status", strconv.Itoa(row.Code), strconv.FormatInt(row.Count, 10)}); err != nil {
			return err
		}
	}
	for _, row := range metrics.FlattenErrorKinds(stats.Errors) {
		if err := writer.Write([]string{"error", string(row.Kind), strconv.Itoa(row.Count)}); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteCSVFile writes the CSV report to path, holding a file lock so
// concurrent invocations sharing an output path do not interleave rows.
func WriteCSVFile(path string, stats metrics.Stats, brackets []metrics.Bracket) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock output file: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := WriteCSV(file, stats, brackets); err != nil {
		return err
	}
	return file.Sync()
}
