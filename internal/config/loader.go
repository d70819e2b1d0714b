package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and an optional configuration file to
// produce a Config. Flag values override file values; the target URL is the
// positional argument.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}

	cfg := &Config{
		Method:      "GET",
		Total:       200,
		Concurrency: 50,
		Timeout:     20 * time.Second,
		ContentType: "text/html",
		ConfigFile:  configPath,
	}

	if configPath != "" {
		cfgViper := viper.New()
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
		if err := applyConfigSettings(cfg, cfgViper.AllSettings()); err != nil {
			return nil, err
		}
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	if target := strings.TrimSpace(strings.Join(flagSet.Args(), " ")); target != "" {
		cfg.TargetURL = target
	}

	cfg.Method = strings.ToUpper(strings.TrimSpace(cfg.Method))
	cfg.TargetURL = strings.TrimSpace(cfg.TargetURL)
	cfg.BodyFile = strings.TrimSpace(cfg.BodyFile)

	return cfg, nil
}

// ParseHeader parses one "Name: value" header argument.
func ParseHeader(raw string) (Header, error) {
	idx := strings.Index(raw, ":")
	if idx <= 0 {
		return Header{}, fmt.Errorf("invalid header %q (expected \"Name: value\")", raw)
	}
	name := strings.TrimSpace(raw[:idx])
	value := strings.TrimSpace(raw[idx+1:])
	if name == "" {
		return Header{}, fmt.Errorf("invalid header %q (empty name)", raw)
	}
	return Header{Name: name, Value: value}, nil
}

// ParseBasicAuth parses a "username:password" credential pair.
func ParseBasicAuth(raw string) (*Credentials, error) {
	idx := strings.Index(raw, ":")
	if idx <= 0 {
		return nil, fmt.Errorf("invalid auth %q (expected \"username:password\")", raw)
	}
	return &Credentials{
		Username: raw[:idx],
		Password: raw[idx+1:],
	}, nil
}

// applyConfigSettings applies settings from a config file to the Config.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	stringFields := []struct {
		keys []string
		dst  *string
	}{
		{[]string{"target", "url"}, &cfg.TargetURL},
		{[]string{"method"}, &cfg.Method},
		{[]string{"body"}, &cfg.Body},
		{[]string{"bodyfile", "body_file", "body-file"}, &cfg.BodyFile},
		{[]string{"accept"}, &cfg.Accept},
		{[]string{"contenttype", "content_type", "content-type"}, &cfg.ContentType},
		{[]string{"host"}, &cfg.HostHeader},
		{[]string{"proxy"}, &cfg.ProxyAddr},
		{[]string{"outputfile", "output_file", "output-file"}, &cfg.OutputFile},
	}
	for _, f := range stringFields {
		raw, ok := lookupSetting(settings, f.keys...)
		if !ok {
			continue
		}
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", f.keys[0], err)
		}
		if val != "" {
			*f.dst = val
		}
	}

	intFields := []struct {
		keys []string
		dst  *int
	}{
		{[]string{"total"}, &cfg.Total},
		{[]string{"concurrency"}, &cfg.Concurrency},
		{[]string{"rate"}, &cfg.Rate},
		{[]string{"retries"}, &cfg.Retries},
		{[]string{"cpus"}, &cfg.CPUs},
	}
	for _, f := range intFields {
		raw, ok := lookupSetting(settings, f.keys...)
		if !ok {
			continue
		}
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", f.keys[0], err)
		}
		*f.dst = val
	}

	durationFields := []struct {
		keys []string
		dst  *time.Duration
	}{
		{[]string{"duration"}, &cfg.Duration},
		{[]string{"timeout"}, &cfg.Timeout},
	}
	for _, f := range durationFields {
		raw, ok := lookupSetting(settings, f.keys...)
		if !ok {
			continue
		}
		val, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", f.keys[0], err)
		}
		*f.dst = val
	}

	boolFields := []struct {
		keys []string
		dst  *bool
	}{
		{[]string{"disablecompression", "disable_compression", "disable-compression"}, &cfg.DisableCompression},
		{[]string{"disablekeepalive", "disable_keepalive", "disable-keepalive"}, &cfg.DisableKeepAlive},
		{[]string{"h2", "http2"}, &cfg.EnableHTTP2},
		{[]string{"failonstatus", "fail_on_status", "fail-on-status"}, &cfg.FailOnStatus},
		{[]string{"jsonoutput", "json_output", "json-output"}, &cfg.JSONOutput},
		{[]string{"logerrors", "log_errors", "log-errors"}, &cfg.LogErrors},
	}
	for _, f := range boolFields {
		raw, ok := lookupSetting(settings, f.keys...)
		if !ok {
			continue
		}
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", f.keys[0], err)
		}
		*f.dst = val
	}

	if raw, ok := lookupSetting(settings, "headers"); ok {
		headers, err := asOrderedHeaders(raw)
		if err != nil {
			return fmt.Errorf("headers: %w", err)
		}
		cfg.Headers = append(cfg.Headers, headers...)
	}

	if raw, ok := lookupSetting(settings, "auth", "basicauth", "basic_auth"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("auth: %w", err)
		}
		if val != "" {
			creds, err := ParseBasicAuth(val)
			if err != nil {
				return err
			}
			cfg.BasicAuth = creds
		}
	}

	if raw, ok := lookupSetting(settings, "output"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("output: %w", err)
		}
		cfg.Output = OutputMode(strings.ToLower(strings.TrimSpace(val)))
	}

	if raw, ok := lookupSetting(settings, "thresholds", "threshold"); ok {
		vals, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
		cfg.Thresholds = append(cfg.Thresholds, vals...)
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		if err := applyTracingSettings(&cfg.Tracing, raw); err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
	}

	return nil
}

func applyTracingSettings(dst *TracingConfig, raw interface{}) error {
	section, err := toStringKeyMap(raw)
	if err != nil {
		return err
	}
	if v, ok := lookupSetting(section, "endpoint"); ok {
		if dst.Endpoint, err = asString(v); err != nil {
			return fmt.Errorf("endpoint: %w", err)
		}
	}
	if v, ok := lookupSetting(section, "protocol"); ok {
		if dst.Protocol, err = asString(v); err != nil {
			return fmt.Errorf("protocol: %w", err)
		}
	}
	if v, ok := lookupSetting(section, "servicename", "service_name", "service-name"); ok {
		if dst.ServiceName, err = asString(v); err != nil {
			return fmt.Errorf("service_name: %w", err)
		}
	}
	if v, ok := lookupSetting(section, "samplerate", "sample_rate", "sample-rate"); ok {
		if dst.SampleRate, err = asFloat64(v); err != nil {
			return fmt.Errorf("sample_rate: %w", err)
		}
	}
	if v, ok := lookupSetting(section, "propagate"); ok {
		if dst.Propagate, err = asBool(v); err != nil {
			return fmt.Errorf("propagate: %w", err)
		}
	}
	if v, ok := lookupSetting(section, "insecure"); ok {
		if dst.Insecure, err = asBool(v); err != nil {
			return fmt.Errorf("insecure: %w", err)
		}
	}
	return nil
}

// applyFlagOverrides applies command-line flag values to the config,
// overriding values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	var err error

	stringFlag := func(name string, dst *string) {
		if err != nil || !fs.Changed(name) {
			return
		}
		var val string
		if val, err = fs.GetString(name); err == nil {
			*dst = val
		}
	}
	intFlag := func(name string, dst *int) {
		if err != nil || !fs.Changed(name) {
			return
		}
		var val int
		if val, err = fs.GetInt(name); err == nil {
			*dst = val
		}
	}
	durationFlag := func(name string, dst *time.Duration) {
		if err != nil || !fs.Changed(name) {
			return
		}
		var val time.Duration
		if val, err = fs.GetDuration(name); err == nil {
			*dst = val
		}
	}
	boolFlag := func(name string, dst *bool) {
		if err != nil || !fs.Changed(name) {
			return
		}
		var val bool
		if val, err = fs.GetBool(name); err == nil {
			*dst = val
		}
	}

	intFlag("total", &cfg.Total)
	intFlag("concurrency", &cfg.Concurrency)
	intFlag("rate", &cfg.Rate)
	intFlag("retries", &cfg.Retries)
	intFlag("cpus", &cfg.CPUs)
	durationFlag("duration", &cfg.Duration)
	durationFlag("timeout", &cfg.Timeout)
	stringFlag("method", &cfg.Method)
	stringFlag("body", &cfg.Body)
	stringFlag("body-file", &cfg.BodyFile)
	stringFlag("accept", &cfg.Accept)
	stringFlag("content-type", &cfg.ContentType)
	stringFlag("host", &cfg.HostHeader)
	stringFlag("proxy", &cfg.ProxyAddr)
	stringFlag("output-file", &cfg.OutputFile)
	boolFlag("disable-compression", &cfg.DisableCompression)
	boolFlag("disable-keepalive", &cfg.DisableKeepAlive)
	boolFlag("h2", &cfg.EnableHTTP2)
	boolFlag("fail-on-status", &cfg.FailOnStatus)
	boolFlag("json-output", &cfg.JSONOutput)
	boolFlag("log-errors", &cfg.LogErrors)
	if err != nil {
		return err
	}

	if fs.Changed("header") {
		raw, err := fs.GetStringArray("header")
		if err != nil {
			return err
		}
		for _, item := range raw {
			header, err := ParseHeader(item)
			if err != nil {
				return err
			}
			cfg.Headers = append(cfg.Headers, header)
		}
	}

	if fs.Changed("auth") {
		raw, err := fs.GetString("auth")
		if err != nil {
			return err
		}
		creds, err := ParseBasicAuth(raw)
		if err != nil {
			return err
		}
		cfg.BasicAuth = creds
	}

	if fs.Changed("output") {
		raw, err := fs.GetString("output")
		if err != nil {
			return err
		}
		cfg.Output = OutputMode(strings.ToLower(strings.TrimSpace(raw)))
	}

	if fs.Changed("threshold") {
		raw, err := fs.GetStringSlice("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = append(cfg.Thresholds, raw...)
	}

	return nil
}
