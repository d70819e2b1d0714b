package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "volley [flags] <url>",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set. Short
// names follow the hey/ab lineage of load tools.
func configureFlags(flags *pflag.FlagSet) {
	// Load shape
	flags.IntP("total", "n", 200, "Total number of requests to send")
	flags.IntP("concurrency", "c", 50, "Number of concurrent workers")
	flags.IntP("rate", "q", 0, "Requests per second limit across all workers (0 means unlimited)")
	flags.DurationP("duration", "z", 0, "Run until this duration elapses instead of a fixed total (e.g. 30s)")
	flags.DurationP("timeout", "t", 20*time.Second, "Per-request timeout (0 means no timeout)")
	flags.Int("retries", 0, "Number of retries per failed request")

	// Request shape
	flags.StringP("method", "m", "GET", "HTTP method (GET, POST, PUT, DELETE, HEAD, OPTIONS)")
	flags.StringArrayP("header", "H", nil, `Custom header as "Name: value"; repeat for multiple headers`)
	flags.StringP("body", "d", "", "Inline request body payload")
	flags.StringP("body-file", "D", "", "Path to file containing the request body")
	flags.StringP("accept", "A", "", "Accept header value")
	flags.StringP("content-type", "T", "text/html", "Content-Type header for request bodies")
	flags.StringP("auth", "a", "", `Basic authentication as "username:password"`)
	flags.StringP("proxy", "x", "", "HTTP proxy address as host:port")
	flags.String("host", "", "Host header override")

	// Transport
	flags.Bool("disable-compression", false, "Disable response compression negotiation")
	flags.Bool("disable-keepalive", false, "Disable keep-alive; each request opens a fresh TCP connection")
	flags.Bool("h2", false, "Enable HTTP/2")
	flags.Int("cpus", 0, "Number of CPU cores to use (0 means all)")

	// Semantics
	flags.Bool("fail-on-status", false, "Count 4xx/5xx responses as failures instead of successes")

	// Output
	flags.StringP("output", "o", "", "Output type: summary (default) or csv")
	flags.String("output-file", "", "Write the report to this file instead of stdout")
	flags.Bool("json-output", false, "Emit JSON formatted output")
	flags.Bool("log-errors", false, "Log each failed request to stderr")

	// Assertions and config file
	flags.StringSlice("threshold", nil, "Performance thresholds (repeatable, e.g. 'latency:p99 < 500')")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}
