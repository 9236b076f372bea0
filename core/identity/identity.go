// Package identity derives the network identity of an outbound request.
//
// Overview:
//   - Responsibility: Map (proxy selector, target URL) to a stable identity value
//   - Key Types: ID for the hashed identity, Route for a full resolution, ProxySelector
//   - Concurrency Model: All functions are pure and safe for concurrent use
//   - Error Semantics: Resolution is total and never fails
//   - Performance Notes: One xxhash64 per resolution, no allocation beyond the canonical string
//
// Two requests share an identity when they take the same network path: through
// the same proxy, or directly to the same origin (scheme, host and port).
// Identities are 64-bit hashes; distinct paths may collide and no attempt is
// made to detect that.
//
// Usage:
//
//	sel := identity.Fixed(proxyURL)
//	route := identity.ResolveRoute(sel, target)
//	fmt.Println(route.ID, route.Redacted())
package identity

import (
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	proxyPrefix  = "proxy "
	directPrefix = "direct "
)

// ID is the hashed network identity of a request path.
type ID uint64

// String renders the identity as 16 lower-case hex digits.
func (id ID) String() string {
	s := strconv.FormatUint(uint64(id), 16)
	if len(s) < 16 {
		s = strings.Repeat("0", 16-len(s)) + s
	}
	return s
}

// Route is the result of resolving one request path.
type Route struct {
	ID      ID       // Hash of Address
	Proxy   *url.URL // Effective proxy, nil when the request goes direct
	Address string   // Canonical path string the ID was derived from
}

// Direct reports whether the route bypasses any proxy.
func (r Route) Direct() bool {
	return r.Proxy == nil
}

// Redacted returns the canonical address with any proxy password masked.
func (r Route) Redacted() string {
	if r.Proxy == nil || r.Proxy.User == nil {
		return r.Address
	}
	if _, ok := r.Proxy.User.Password(); !ok {
		return r.Address
	}
	masked := *r.Proxy
	masked.User = url.UserPassword(r.Proxy.User.Username(), "xxxxx")
	return proxyPrefix + canonical(&masked, true)
}

// Resolve returns the identity of the path a request to target takes when
// proxies are chosen by sel. A nil selector means no proxy.
func Resolve(sel ProxySelector, target *url.URL) ID {
	return ResolveRoute(sel, target).ID
}

// ResolveRoute resolves the full route for target. The selector is consulted
// exactly once. When it yields a proxy the identity is derived from the proxy
// address; otherwise it is derived from the target origin.
func ResolveRoute(sel ProxySelector, target *url.URL) Route {
	var proxy *url.URL
	if sel != nil && target != nil {
		if p := sel.ProxyFor(target); p != nil {
			cp := *p
			proxy = &cp
		}
	}

	var address string
	if proxy != nil {
		address = proxyPrefix + canonical(proxy, true)
	} else {
		address = directPrefix + canonical(target, false)
	}

	return Route{
		ID:      ID(xxhash.Sum64String(address)),
		Proxy:   proxy,
		Address: address,
	}
}

// canonical renders scheme, optional userinfo, lower-cased host and explicit
// port. Paths, queries and fragments never take part in the identity.
func canonical(u *url.URL, withUser bool) string {
	if u == nil {
		return ""
	}

	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if port == "" {
		port = defaultPort(scheme)
	}

	hostport := host
	if port != "" {
		hostport = net.JoinHostPort(host, port)
	}

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	if withUser && u.User != nil {
		b.WriteString(u.User.String())
		b.WriteByte('@')
	}
	b.WriteString(hostport)
	return b.String()
}

func defaultPort(scheme string) string {
	switch scheme {
	case "http", "ws":
		return "80"
	case "https", "wss":
		return "443"
	case "socks5", "socks5h":
		return "1080"
	default:
		return ""
	}
}
