package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// SupportedMethods is the set of HTTP methods volley will issue.
var SupportedMethods = map[string]bool{
	"GET":     true,
	"POST":    true,
	"PUT":     true,
	"DELETE":  true,
	"HEAD":    true,
	"OPTIONS": true,
}

// Header is one request header. Headers keep their command-line order.
type Header struct {
	Name  string
	Value string
}

// Credentials hold HTTP basic-auth username and password.
type Credentials struct {
	Username string
	Password string
}

// OutputMode selects how the final report is rendered.
type OutputMode string

const (
	OutputSummary OutputMode = "summary"
	OutputCSV     OutputMode = "csv"
)

// TracingConfig configures optional OpenTelemetry trace export.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Propagate   bool    `mapstructure:"propagate"`
	Insecure    bool    `mapstructure:"insecure"`
}

// Enabled reports whether trace export is configured.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != ""
}

// ShouldPropagate reports whether W3C trace headers should be injected into
// outgoing requests.
func (t TracingConfig) ShouldPropagate() bool {
	return t.Propagate
}

// Config is the fully parsed run configuration. It is immutable for the
// duration of a run; the engine only reads it.
type Config struct {
	TargetURL string `mapstructure:"target"`
	Method    string `mapstructure:"method"`

	Headers     []Header `mapstructure:"-"`
	Accept      string   `mapstructure:"accept"`
	ContentType string   `mapstructure:"content_type"`
	HostHeader  string   `mapstructure:"host"`

	Body     string `mapstructure:"body"`
	BodyFile string `mapstructure:"body_file"`

	BasicAuth *Credentials `mapstructure:"-"`
	ProxyAddr string       `mapstructure:"proxy"`

	Total       int           `mapstructure:"total"`
	Concurrency int           `mapstructure:"concurrency"`
	Rate        int           `mapstructure:"rate"`
	Duration    time.Duration `mapstructure:"duration"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Retries     int           `mapstructure:"retries"`

	DisableCompression bool `mapstructure:"disable_compression"`
	DisableKeepAlive   bool `mapstructure:"disable_keepalive"`
	EnableHTTP2        bool `mapstructure:"h2"`
	CPUs               int  `mapstructure:"cpus"`

	// FailOnStatus counts 4xx/5xx responses as failures instead of
	// transport-level successes with a tracked status code.
	FailOnStatus bool `mapstructure:"fail_on_status"`

	Output     OutputMode `mapstructure:"output"`
	OutputFile string     `mapstructure:"output_file"`
	JSONOutput bool       `mapstructure:"json_output"`
	LogErrors  bool       `mapstructure:"log_errors"`

	Thresholds []string      `mapstructure:"thresholds"`
	Tracing    TracingConfig `mapstructure:"tracing"`

	ConfigFile string `mapstructure:"-"`
}

// ValidationError aggregates everything wrong with a Config so the user
// sees all issues at once.
type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

// Validate checks the configuration before the engine starts. A failed
// validation is fatal to the run; the engine never sees an invalid Config.
func (c Config) Validate() error {
	var issues []string

	target := strings.TrimSpace(c.TargetURL)
	if target == "" {
		issues = append(issues, "target URL is required")
	} else if u, err := url.Parse(target); err != nil {
		issues = append(issues, fmt.Sprintf("target URL is invalid: %v", err))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		issues = append(issues, fmt.Sprintf("target URL scheme %q is not supported", u.Scheme))
	}

	method := strings.ToUpper(strings.TrimSpace(c.Method))
	if !SupportedMethods[method] {
		issues = append(issues, fmt.Sprintf("method %q is not supported", c.Method))
	}

	if c.Total < 0 {
		issues = append(issues, "total must be >= 0")
	}
	if c.Total == 0 && c.Duration == 0 {
		issues = append(issues, "total must be >= 1 when no duration is set")
	}
	if c.Concurrency < 1 {
		issues = append(issues, "concurrency must be >= 1")
	}
	if c.Total > 0 && c.Concurrency > c.Total {
		issues = append(issues, "concurrency cannot exceed total requests")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.Duration < 0 {
		issues = append(issues, "duration must be >= 0")
	}
	if c.Retries < 0 {
		issues = append(issues, "retries must be >= 0")
	}
	if c.CPUs < 0 {
		issues = append(issues, "cpus must be >= 0")
	}

	if strings.TrimSpace(c.Body) != "" && strings.TrimSpace(c.BodyFile) != "" {
		issues = append(issues, "body and body file are mutually exclusive")
	}

	for _, h := range c.Headers {
		if strings.TrimSpace(h.Name) == "" {
			issues = append(issues, "header name cannot be empty")
		}
		if strings.ContainsAny(h.Name, "\r\n") || strings.ContainsAny(h.Value, "\r\n") {
			issues = append(issues, fmt.Sprintf("header %q contains line breaks", h.Name))
		}
	}

	if c.BasicAuth != nil && c.BasicAuth.Username == "" {
		issues = append(issues, "basic auth username cannot be empty")
	}

	switch c.Output {
	case "", OutputSummary, OutputCSV:
	default:
		issues = append(issues, fmt.Sprintf("output mode %q is not supported (use summary or csv)", c.Output))
	}

	if c.Tracing.Enabled() {
		switch strings.ToLower(c.Tracing.Protocol) {
		case "", "grpc", "http":
		default:
			issues = append(issues, fmt.Sprintf("tracing protocol %q is not supported", c.Tracing.Protocol))
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			issues = append(issues, "tracing sample_rate must be between 0.0 and 1.0")
		}
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}
