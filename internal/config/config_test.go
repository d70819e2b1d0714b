package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		TargetURL:   "http://localhost:8080/",
		Method:      "GET",
		Total:       200,
		Concurrency: 50,
		Timeout:     20 * time.Second,
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{"missing target", func(c *Config) { c.TargetURL = "" }, "target URL is required"},
		{"bad scheme", func(c *Config) { c.TargetURL = "ftp://host/file" }, "scheme"},
		{"bad method", func(c *Config) { c.Method = "TRACE" }, "method"},
		{"concurrency above total", func(c *Config) { c.Total = 10; c.Concurrency = 20 }, "concurrency cannot exceed total"},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, "concurrency must be >= 1"},
		{"negative rate", func(c *Config) { c.Rate = -1 }, "rate must be >= 0"},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, "timeout must be >= 0"},
		{"no total no duration", func(c *Config) { c.Total = 0 }, "total must be >= 1"},
		{"body conflict", func(c *Config) { c.Body = "x"; c.BodyFile = "f.txt" }, "mutually exclusive"},
		{"header crlf", func(c *Config) { c.Headers = []Header{{Name: "X-Bad\r\n", Value: "v"}} }, "line breaks"},
		{"empty auth user", func(c *Config) { c.BasicAuth = &Credentials{} }, "username"},
		{"bad output", func(c *Config) { c.Output = "xml" }, "output mode"},
		{"bad sample rate", func(c *Config) {
			c.Tracing = TracingConfig{Endpoint: "localhost:4317", SampleRate: 2}
		}, "sample_rate"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Fatalf("error %q does not mention %q", err, tc.wantSub)
			}
		})
	}
}

func TestValidateDurationModeAllowsZeroTotal(t *testing.T) {
	cfg := validConfig()
	cfg.Total = 0
	cfg.Duration = 30 * time.Second
	if err := cfg.Validate(); err != nil {
		t.Fatalf("duration-bounded run should not require a total: %v", err)
	}
}

func TestValidationErrorCollectsAllIssues(t *testing.T) {
	cfg := Config{}
	err := cfg.Validate()
	verr, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(verr.Issues()) < 3 {
		t.Fatalf("expected several issues, got %v", verr.Issues())
	}
}
