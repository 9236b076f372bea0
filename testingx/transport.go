package testingx

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"go.eggybyte.com/clientpool/core/identity"
)

// RoundTripFunc adapts a function to http.RoundTripper.
type RoundTripFunc func(*http.Request) (*http.Response, error)

// RoundTrip implements http.RoundTripper.
func (f RoundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// RecordingTransport answers requests with a handler and keeps a copy of
// every request it saw.
type RecordingTransport struct {
	handler RoundTripFunc

	mu       sync.Mutex
	requests []*http.Request
}

// NewRecordingTransport creates a transport that delegates to handler.
// A nil handler answers 200 with an empty body.
func NewRecordingTransport(handler RoundTripFunc) *RecordingTransport {
	if handler == nil {
		handler = func(req *http.Request) (*http.Response, error) {
			return NewResponse(req, http.StatusOK, nil, ""), nil
		}
	}
	return &RecordingTransport{handler: handler}
}

// RoundTrip implements http.RoundTripper.
func (t *RecordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.Lock()
	t.requests = append(t.requests, req.Clone(req.Context()))
	t.mu.Unlock()
	return t.handler(req)
}

// Requests returns the recorded requests in arrival order.
func (t *RecordingTransport) Requests() []*http.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*http.Request, len(t.requests))
	copy(out, t.requests)
	return out
}

// Last returns the most recent request, or nil.
func (t *RecordingTransport) Last() *http.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.requests) == 0 {
		return nil
	}
	return t.requests[len(t.requests)-1]
}

// NewResponse builds a response for req with the given status, headers and body.
func NewResponse(req *http.Request, status int, header http.Header, body string) *http.Response {
	if header == nil {
		header = make(http.Header)
	}
	return &http.Response{
		Status:        http.StatusText(status),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}

// StaticSelector routes hosts through fixed proxies; unlisted hosts go direct.
// Keys are target host names without port.
type StaticSelector map[string]*url.URL

// ProxyFor implements identity.ProxySelector.
func (s StaticSelector) ProxyFor(target *url.URL) *url.URL {
	if target == nil {
		return nil
	}
	return s[target.Hostname()]
}

// CountingSelector wraps a selector and counts how often it is consulted.
type CountingSelector struct {
	Next identity.ProxySelector

	mu    sync.Mutex
	calls int
}

// ProxyFor implements identity.ProxySelector.
func (s *CountingSelector) ProxyFor(target *url.URL) *url.URL {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.Next == nil {
		return nil
	}
	return s.Next.ProxyFor(target)
}

// Calls returns the number of ProxyFor invocations.
func (s *CountingSelector) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
