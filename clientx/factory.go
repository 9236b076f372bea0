package clientx

import (
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"go.eggybyte.com/clientpool/clientx/internal"
	"go.eggybyte.com/clientpool/core/errors"
)

// Factory builds the client for one network path. proxy is nil when the path
// goes direct. A Factory must be safe for concurrent use; it may be called
// more than once for the same path when callers race.
type Factory func(proxy *url.URL) (*http.Client, error)

// FactoryOptions configures clients built by NewFactory.
type FactoryOptions struct {
	Timeout             time.Duration // Whole-request timeout (default: 0, none)
	DialTimeout         time.Duration // TCP connect timeout (default: 30s)
	KeepAlive           time.Duration // TCP keep-alive period (default: 30s)
	MaxIdleConns        int           // Idle connections across all hosts (default: 100)
	MaxIdleConnsPerHost int           // Idle connections per host (default: 10)
	IdleConnTimeout     time.Duration // Idle connection lifetime (default: 90s)
	TLSHandshakeTimeout time.Duration // TLS handshake timeout (default: 10s)
	MaxRetries          int           // Retry attempts on 5xx or transport errors (default: 0)
	RetryBackoff        time.Duration // Initial backoff, doubled per attempt (default: 100ms)
	EnableCircuit       bool          // Enable circuit breaker (default: false)
	CircuitThreshold    uint32        // Consecutive failures before opening (default: 5)
	CircuitOpenTimeout  time.Duration // Time spent open before probing (default: 60s)

	roundTripper  http.RoundTripper
	transportHook func(*http.Transport)
}

// FactoryOption is a functional option for configuring the default factory.
type FactoryOption func(*FactoryOptions)

// WithTimeout sets the client timeout.
func WithTimeout(d time.Duration) FactoryOption {
	return func(o *FactoryOptions) {
		o.Timeout = d
	}
}

// WithDialTimeout sets the TCP connect timeout.
func WithDialTimeout(d time.Duration) FactoryOption {
	return func(o *FactoryOptions) {
		o.DialTimeout = d
	}
}

// WithIdleConns sets the idle pool sizes.
func WithIdleConns(total, perHost int) FactoryOption {
	return func(o *FactoryOptions) {
		o.MaxIdleConns = total
		o.MaxIdleConnsPerHost = perHost
	}
}

// WithIdleConnTimeout sets how long an idle connection is kept.
func WithIdleConnTimeout(d time.Duration) FactoryOption {
	return func(o *FactoryOptions) {
		o.IdleConnTimeout = d
	}
}

// WithTLSHandshakeTimeout sets the TLS handshake timeout.
func WithTLSHandshakeTimeout(d time.Duration) FactoryOption {
	return func(o *FactoryOptions) {
		o.TLSHandshakeTimeout = d
	}
}

// WithRetry sets the maximum retry attempts.
func WithRetry(maxRetries int) FactoryOption {
	return func(o *FactoryOptions) {
		o.MaxRetries = maxRetries
	}
}

// WithRetryBackoff sets the initial retry backoff.
func WithRetryBackoff(d time.Duration) FactoryOption {
	return func(o *FactoryOptions) {
		o.RetryBackoff = d
	}
}

// WithCircuitBreaker enables or disables the circuit breaker.
func WithCircuitBreaker(enabled bool) FactoryOption {
	return func(o *FactoryOptions) {
		o.EnableCircuit = enabled
	}
}

// WithCircuitThreshold sets the consecutive failure count that opens the breaker.
func WithCircuitThreshold(n uint32) FactoryOption {
	return func(o *FactoryOptions) {
		o.CircuitThreshold = n
	}
}

// WithRoundTripper replaces the network transport. The decompression and
// user-agent layers still wrap it. Proxy and pool settings are ignored.
func WithRoundTripper(rt http.RoundTripper) FactoryOption {
	return func(o *FactoryOptions) {
		o.roundTripper = rt
	}
}

// WithTransportHook registers a function that may adjust each new
// *http.Transport before use. It is not called when WithRoundTripper is set.
func WithTransportHook(hook func(*http.Transport)) FactoryOption {
	return func(o *FactoryOptions) {
		o.transportHook = hook
	}
}

func defaultFactoryOptions() FactoryOptions {
	return FactoryOptions{
		DialTimeout:         30 * time.Second,
		KeepAlive:           30 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		RetryBackoff:        100 * time.Millisecond,
		CircuitThreshold:    5,
		CircuitOpenTimeout:  60 * time.Second,
	}
}

// DefaultFactory builds clients with NewFactory's defaults.
var DefaultFactory = NewFactory()

// NewFactory returns a Factory whose clients:
//   - decompress gzip, deflate, br and zstd responses unless the caller sets Accept-Encoding
//   - return redirect responses instead of following them
//   - send no User-Agent unless the caller sets one
//   - use proxy only when it is non-nil, ignoring the environment
//   - keep no cookie jar, so Set-Cookie reaches the caller untouched
//
// Each call of the returned Factory creates a fresh transport and connection pool.
func NewFactory(opts ...FactoryOption) Factory {
	options := defaultFactoryOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return func(proxy *url.URL) (*http.Client, error) {
		return options.build(proxy)
	}
}

func (o FactoryOptions) build(proxy *url.URL) (*http.Client, error) {
	if proxy != nil {
		if err := ValidateProxyURL(proxy); err != nil {
			return nil, err
		}
		cp := *proxy
		proxy = &cp
	}

	var rt http.RoundTripper
	if o.roundTripper != nil {
		rt = o.roundTripper
	} else {
		rt = o.newTransport(proxy)
	}

	if o.MaxRetries > 0 || o.EnableCircuit {
		var cb *gobreaker.CircuitBreaker
		if o.EnableCircuit {
			cb = internal.NewCircuitBreaker(breakerName(proxy), o.CircuitThreshold, o.CircuitOpenTimeout)
		}
		rt = internal.NewRetryTransport(rt, o.MaxRetries, o.RetryBackoff, cb)
	}

	return &http.Client{
		Timeout:   o.Timeout,
		Transport: internal.NewNoUserAgentTransport(internal.NewDecompressTransport(rt)),
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}, nil
}

func (o FactoryOptions) newTransport(proxy *url.URL) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   o.DialTimeout,
		KeepAlive: o.KeepAlive,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          o.MaxIdleConns,
		MaxIdleConnsPerHost:   o.MaxIdleConnsPerHost,
		IdleConnTimeout:       o.IdleConnTimeout,
		TLSHandshakeTimeout:   o.TLSHandshakeTimeout,
		ExpectContinueTimeout: time.Second,
		DisableCompression:    true,
	}
	if proxy != nil {
		transport.Proxy = http.ProxyURL(proxy)
		transport.ProxyConnectHeader = internal.ProxyConnectHeader()
	}

	if o.transportHook != nil {
		o.transportHook(transport)
	}
	return transport
}

func breakerName(proxy *url.URL) string {
	if proxy == nil {
		return "direct"
	}
	return proxy.Redacted()
}

// ValidateProxyURL reports whether proxy can be used by the default factory.
// Supported schemes are http, https, socks5 and socks5h.
func ValidateProxyURL(proxy *url.URL) error {
	const op = "clientx.ValidateProxyURL"

	if proxy == nil {
		return errors.New(errors.CodeInvalidArgument, op, "proxy is nil")
	}
	switch strings.ToLower(proxy.Scheme) {
	case "http", "https", "socks5", "socks5h":
	default:
		return errors.New(errors.CodeInvalidArgument, op, "unsupported proxy scheme "+strconv.Quote(proxy.Scheme))
	}
	if proxy.Hostname() == "" {
		return errors.New(errors.CodeInvalidArgument, op, "proxy host is empty")
	}
	return nil
}
