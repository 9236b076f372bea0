// Package internal provides the transport layers stacked under pooled clients.
package internal

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// RetryTransport implements http.RoundTripper with retry logic and circuit breaker.
type RetryTransport struct {
	base       http.RoundTripper
	maxRetries int
	backoff    time.Duration
	cb         *gobreaker.CircuitBreaker
}

// NewRetryTransport creates a new retry transport with the given configuration.
// A nil breaker disables circuit breaking.
func NewRetryTransport(base http.RoundTripper, maxRetries int, backoff time.Duration, cb *gobreaker.CircuitBreaker) *RetryTransport {
	return &RetryTransport{
		base:       base,
		maxRetries: maxRetries,
		backoff:    backoff,
		cb:         cb,
	}
}

// NewCircuitBreaker creates a breaker that opens after more than threshold
// consecutive failures and probes again after openTimeout.
func NewCircuitBreaker(name string, threshold uint32, openTimeout time.Duration) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > threshold
		},
	})
}

// serverError carries a 5xx response through the breaker as a failure.
type serverError struct {
	resp *http.Response
}

func (e *serverError) Error() string {
	return fmt.Sprintf("server responded %d", e.resp.StatusCode)
}

// RoundTrip implements http.RoundTripper with retry and circuit breaker.
// 5xx responses count as breaker failures but are still returned to the caller.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.cb == nil {
		return t.roundTripWithRetry(req)
	}

	result, err := t.cb.Execute(func() (interface{}, error) {
		resp, err := t.roundTripWithRetry(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return nil, &serverError{resp: resp}
		}
		return resp, nil
	})

	var se *serverError
	if errors.As(err, &se) {
		return se.resp, nil
	}
	if err != nil {
		return nil, err
	}
	return result.(*http.Response), nil
}

// CloseIdleConnections forwards to the wrapped transport.
func (t *RetryTransport) CloseIdleConnections() {
	closeIdle(t.base)
}

// roundTripWithRetry performs the request with retry logic.
// Requests whose body cannot be rewound are sent once.
func (t *RetryTransport) roundTripWithRetry(req *http.Request) (*http.Response, error) {
	maxRetries := t.maxRetries
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		maxRetries = 0
	}

	var lastResp *http.Response
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		attemptReq := req
		if attempt > 0 {
			attemptReq = req.Clone(req.Context())
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				attemptReq.Body = body
			}
		}

		resp, err := t.base.RoundTrip(attemptReq)

		// Success or non-retryable error
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}

		lastResp = resp
		lastErr = err

		if attempt == maxRetries {
			break
		}

		// Close failed response body to prevent resource leak
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}

		timer := time.NewTimer(t.backoff * time.Duration(1<<uint(attempt)))
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}

	return lastResp, lastErr
}

type idleCloser interface {
	CloseIdleConnections()
}

func closeIdle(rt http.RoundTripper) {
	if c, ok := rt.(idleCloser); ok {
		c.CloseIdleConnections()
	}
}
