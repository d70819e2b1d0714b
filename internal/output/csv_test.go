package output

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/volleyhq/volley/internal/metrics"
)

func TestWriteCSVSections(t *testing.T) {
	c := metrics.NewCollector()
	for i := 1; i <= 20; i++ {
		c.Record(metrics.Outcome{Latency: time.Duration(i) * time.Millisecond, StatusCode: 200, BytesRead: 10})
	}
	stats := c.Stats(time.Second)

	var buf bytes.Buffer
	if err := WriteCSV(&buf, stats, c.LatencyBrackets()); err != nil {
		t.Fatal(err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) < 10 {
		t.Fatalf("expected header+summary+latency+status rows, got %d", len(records))
	}

	sections := map[string]int{}
	for _, rec := range records[1:] {
		sections[rec[0]]++
	}
	if sections["summary"] == 0 || sections["latency"] == 0 || sections["status"] == 0 {
		t.Fatalf("missing sections: %v", sections)
	}
}

func TestWriteCSVFile(t *testing.T) {
	c := metrics.NewCollector()
	c.Record(metrics.Outcome{Latency: time.Millisecond, StatusCode: 200})
	stats := c.Stats(time.Second)

	path := filepath.Join(t.TempDir(), "report.csv")
	if err := WriteCSVFile(path, stats, c.LatencyBrackets()); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("empty CSV file")
	}
}
