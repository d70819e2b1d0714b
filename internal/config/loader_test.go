package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load([]string{"http://localhost:9999/"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TargetURL != "http://localhost:9999/" {
		t.Fatalf("target wrong: %q", cfg.TargetURL)
	}
	if cfg.Total != 200 || cfg.Concurrency != 50 {
		t.Fatalf("defaults wrong: n=%d c=%d", cfg.Total, cfg.Concurrency)
	}
	if cfg.Timeout != 20*time.Second {
		t.Fatalf("default timeout wrong: %s", cfg.Timeout)
	}
	if cfg.Method != "GET" {
		t.Fatalf("default method wrong: %q", cfg.Method)
	}
}

func TestLoadFlags(t *testing.T) {
	cfg, err := NewLoader().Load([]string{
		"-n", "500",
		"-c", "25",
		"-q", "100",
		"-t", "5s",
		"-m", "post",
		"-H", "Accept: application/json",
		"-H", "X-Trace: abc",
		"-d", `{"k":"v"}`,
		"-T", "application/json",
		"-a", "user:s3cr3t",
		"--disable-keepalive",
		"--fail-on-status",
		"http://localhost:9999/api",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Total != 500 || cfg.Concurrency != 25 || cfg.Rate != 100 {
		t.Fatalf("load shape wrong: %+v", cfg)
	}
	if cfg.Method != "POST" {
		t.Fatalf("method not uppercased: %q", cfg.Method)
	}
	if len(cfg.Headers) != 2 {
		t.Fatalf("expected 2 headers, got %v", cfg.Headers)
	}
	// Header order must match the command line.
	if cfg.Headers[0].Name != "Accept" || cfg.Headers[1].Name != "X-Trace" {
		t.Fatalf("header order lost: %v", cfg.Headers)
	}
	if cfg.BasicAuth == nil || cfg.BasicAuth.Username != "user" || cfg.BasicAuth.Password != "s3cr3t" {
		t.Fatalf("basic auth wrong: %+v", cfg.BasicAuth)
	}
	if !cfg.DisableKeepAlive || !cfg.FailOnStatus {
		t.Fatal("bool flags not applied")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded config should validate: %v", err)
	}
}

func TestLoadHelp(t *testing.T) {
	_, err := NewLoader().Load([]string{"--help"})
	if !errors.Is(err, ErrHelpRequested) {
		t.Fatalf("expected ErrHelpRequested, got %v", err)
	}
}

func TestLoadNoArgsShowsHelp(t *testing.T) {
	_, err := NewLoader().Load(nil)
	if !errors.Is(err, ErrHelpRequested) {
		t.Fatalf("expected ErrHelpRequested, got %v", err)
	}
}

func TestLoadConfigFileWithFlagOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "volley.yaml")
	content := `
target: http://localhost:8080/
total: 1000
concurrency: 10
rate: 50
timeout: 3s
headers:
  - "Accept: text/plain"
auth: "alice:wonder"
tracing:
  endpoint: localhost:4317
  protocol: grpc
  sample_rate: 0.5
  propagate: true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewLoader().Load([]string{"--config", path, "-c", "20"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TargetURL != "http://localhost:8080/" {
		t.Fatalf("target from file wrong: %q", cfg.TargetURL)
	}
	if cfg.Total != 1000 || cfg.Rate != 50 || cfg.Timeout != 3*time.Second {
		t.Fatalf("file values wrong: %+v", cfg)
	}
	// CLI flag overrides the file value.
	if cfg.Concurrency != 20 {
		t.Fatalf("flag override lost: c=%d", cfg.Concurrency)
	}
	if len(cfg.Headers) != 1 || cfg.Headers[0].Name != "Accept" {
		t.Fatalf("file headers wrong: %v", cfg.Headers)
	}
	if cfg.BasicAuth == nil || cfg.BasicAuth.Username != "alice" {
		t.Fatalf("file auth wrong: %+v", cfg.BasicAuth)
	}
	if !cfg.Tracing.Enabled() || !cfg.Tracing.ShouldPropagate() || cfg.Tracing.SampleRate != 0.5 {
		t.Fatalf("tracing section wrong: %+v", cfg.Tracing)
	}
}

func TestParseHeader(t *testing.T) {
	cases := []struct {
		raw     string
		name    string
		value   string
		wantErr bool
	}{
		{"Accept: text/html", "Accept", "text/html", false},
		{"X-Empty:", "X-Empty", "", false},
		{"Authorization: Bearer a:b:c", "Authorization", "Bearer a:b:c", false},
		{"novalue", "", "", true},
		{": broken", "", "", true},
	}
	for _, tc := range cases {
		h, err := ParseHeader(tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("expected error for %q", tc.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: %v", tc.raw, err)
		}
		if h.Name != tc.name || h.Value != tc.value {
			t.Fatalf("%q parsed to %+v", tc.raw, h)
		}
	}
}

func TestParseBasicAuth(t *testing.T) {
	creds, err := ParseBasicAuth("bob:pw:with:colons")
	if err != nil {
		t.Fatal(err)
	}
	if creds.Username != "bob" || creds.Password != "pw:with:colons" {
		t.Fatalf("wrong split: %+v", creds)
	}
	if _, err := ParseBasicAuth("nopassword"); err == nil {
		t.Fatal("expected error for missing colon")
	}
}
