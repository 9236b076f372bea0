package identity

import (
	"net/url"

	"golang.org/x/net/http/httpproxy"

	"go.eggybyte.com/clientpool/core/errors"
)

// ProxySelector chooses the proxy for a target URL.
// A nil result means the request goes direct. Implementations must be
// deterministic and safe for concurrent use.
type ProxySelector interface {
	ProxyFor(target *url.URL) *url.URL
}

// ProxySelectorFunc adapts a function to ProxySelector.
type ProxySelectorFunc func(target *url.URL) *url.URL

// ProxyFor calls f(target).
func (f ProxySelectorFunc) ProxyFor(target *url.URL) *url.URL {
	return f(target)
}

// Direct returns a selector that never proxies.
func Direct() ProxySelector {
	return ProxySelectorFunc(func(*url.URL) *url.URL { return nil })
}

// Fixed returns a selector that sends every request through proxy.
// A nil proxy behaves like Direct.
func Fixed(proxy *url.URL) ProxySelector {
	return ProxySelectorFunc(func(*url.URL) *url.URL { return proxy })
}

// FromEnvironment builds a selector from HTTP_PROXY, HTTPS_PROXY and NO_PROXY
// (and their lower-case forms).
func FromEnvironment() (ProxySelector, error) {
	return FromProxyConfig(httpproxy.FromEnvironment())
}

// FromProxyConfig builds a selector from an httpproxy configuration.
// Proxy addresses are validated here so the returned selector never fails;
// hosts matched by NoProxy, and loopback targets, go direct.
func FromProxyConfig(cfg *httpproxy.Config) (ProxySelector, error) {
	const op = "identity.FromProxyConfig"

	if cfg == nil {
		return Direct(), nil
	}
	if err := validateProxy(cfg.HTTPProxy); err != nil {
		return nil, errors.Wrapf(errors.CodeInvalidArgument, op, err, "HTTP proxy %q", cfg.HTTPProxy)
	}
	if err := validateProxy(cfg.HTTPSProxy); err != nil {
		return nil, errors.Wrapf(errors.CodeInvalidArgument, op, err, "HTTPS proxy %q", cfg.HTTPSProxy)
	}

	proxyFunc := cfg.ProxyFunc()
	return ProxySelectorFunc(func(target *url.URL) *url.URL {
		proxy, err := proxyFunc(target)
		if err != nil {
			return nil
		}
		return proxy
	}), nil
}

// validateProxy mirrors the parsing httpproxy applies to proxy strings,
// including the implicit http:// prefix for bare host:port values.
func validateProxy(proxy string) error {
	if proxy == "" {
		return nil
	}

	u, err := url.Parse(proxy)
	if err != nil || !knownProxyScheme(u.Scheme) {
		u, err = url.Parse("http://" + proxy)
		if err != nil {
			return err
		}
	}
	if u.Host == "" {
		return errors.New(errors.CodeInvalidArgument, "", "proxy address has no host")
	}
	return nil
}

func knownProxyScheme(scheme string) bool {
	switch scheme {
	case "http", "https", "socks5", "socks5h":
		return true
	default:
		return false
	}
}
