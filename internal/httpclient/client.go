package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/http2"

	"github.com/volleyhq/volley/internal/config"
)

// RequestBuilder prepares one *http.Request per attempt from an immutable
// run configuration. Safe for concurrent use: all state is read-only after
// construction.
type RequestBuilder struct {
	method     string
	target     string
	headers    []config.Header
	hostHeader string
	basicAuth  *config.Credentials
	body       BodySource
}

func NewRequestBuilder(cfg *config.Config) (*RequestBuilder, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	target := strings.TrimSpace(cfg.TargetURL)
	if target == "" {
		return nil, errors.New("target URL is required")
	}

	method := strings.ToUpper(strings.TrimSpace(cfg.Method))
	if method == "" {
		method = http.MethodGet
	}

	bodySource, err := NewBodySource(cfg)
	if err != nil {
		return nil, err
	}

	headers := make([]config.Header, 0, len(cfg.Headers)+2)
	for _, h := range cfg.Headers {
		name := strings.TrimSpace(h.Name)
		if name == "" || strings.ContainsAny(name, "\r\n") || strings.ContainsAny(h.Value, "\r\n") {
			return nil, fmt.Errorf("invalid header %q", h.Name)
		}
		headers = append(headers, config.Header{Name: http.CanonicalHeaderKey(name), Value: h.Value})
	}

	if cfg.Accept != "" && !hasHeader(headers, "Accept") {
		headers = append(headers, config.Header{Name: "Accept", Value: cfg.Accept})
	}
	if length, _ := bodySource.ContentLength(); length > 0 && cfg.ContentType != "" && !hasHeader(headers, "Content-Type") {
		headers = append(headers, config.Header{Name: "Content-Type", Value: cfg.ContentType})
	}

	return &RequestBuilder{
		method:     method,
		target:     target,
		headers:    headers,
		hostHeader: strings.TrimSpace(cfg.HostHeader),
		basicAuth:  cfg.BasicAuth,
		body:       bodySource,
	}, nil
}

func hasHeader(headers []config.Header, name string) bool {
	for _, h := range headers {
		if http.CanonicalHeaderKey(h.Name) == name {
			return true
		}
	}
	return false
}

// Build produces a fresh request bound to ctx, with a new body reader so
// attempts never share read state.
func (b *RequestBuilder) Build(ctx context.Context) (*http.Request, error) {
	if b == nil {
		return nil, errors.New("builder cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	reader, err := b.body.NewReader()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, b.method, b.target, reader)
	if err != nil {
		_ = reader.Close()
		return nil, err
	}

	for _, h := range b.headers {
		req.Header.Add(h.Name, h.Value)
	}

	if length, ok := b.body.ContentLength(); ok {
		req.ContentLength = length
	}
	req.GetBody = func() (io.ReadCloser, error) {
		return b.body.NewReader()
	}

	if b.basicAuth != nil {
		req.SetBasicAuth(b.basicAuth.Username, b.basicAuth.Password)
	}
	if b.hostHeader != "" {
		req.Host = b.hostHeader
	}

	return req, nil
}

// NewClient constructs the *http.Client used for all requests of a run,
// applying the transport policies from the configuration.
func NewClient(cfg *config.Config) (*http.Client, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	timeout := cfg.Timeout
	if timeout < 0 {
		timeout = 0
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DisableCompression:    cfg.DisableCompression,
		DisableKeepAlives:     cfg.DisableKeepAlive,
	}

	if proxy := strings.TrimSpace(cfg.ProxyAddr); proxy != "" {
		proxyURL, err := parseProxyAddr(proxy)
		if err != nil {
			return nil, err
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	if cfg.EnableHTTP2 {
		if err := http2.ConfigureTransport(transport); err != nil {
			return nil, fmt.Errorf("configure http2: %w", err)
		}
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}, nil
}

// parseProxyAddr accepts either a full URL or a bare host:port.
func parseProxyAddr(addr string) (*url.URL, error) {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	proxyURL, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("proxy address: %w", err)
	}
	if proxyURL.Host == "" {
		return nil, fmt.Errorf("proxy address %q has no host", addr)
	}
	return proxyURL, nil
}
