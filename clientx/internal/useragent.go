package internal

import "net/http"

// NoUserAgentTransport keeps net/http from adding its default User-Agent.
// A request that already names a User-Agent is sent as is.
type NoUserAgentTransport struct {
	base http.RoundTripper
}

// NewNoUserAgentTransport wraps base.
func NewNoUserAgentTransport(base http.RoundTripper) *NoUserAgentTransport {
	return &NoUserAgentTransport{base: base}
}

// RoundTrip implements http.RoundTripper.
func (t *NoUserAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if _, ok := req.Header["User-Agent"]; ok {
		return t.base.RoundTrip(req)
	}
	outReq := req.Clone(req.Context())
	if outReq.Header == nil {
		outReq.Header = make(http.Header)
	}
	// An empty value present in the map suppresses the default on HTTP/1 and HTTP/2.
	outReq.Header["User-Agent"] = []string{""}
	return t.base.RoundTrip(outReq)
}

// CloseIdleConnections forwards to the wrapped transport.
func (t *NoUserAgentTransport) CloseIdleConnections() {
	closeIdle(t.base)
}

// ProxyConnectHeader returns the header set for CONNECT requests to an HTTPS
// proxy, which would otherwise carry the default User-Agent as well.
func ProxyConnectHeader() http.Header {
	return http.Header{"User-Agent": []string{""}}
}
