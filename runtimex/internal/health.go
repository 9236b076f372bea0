package internal

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HealthChecker defines the interface for health checks.
// Implementations should perform quick checks and honor context deadlines.
type HealthChecker interface {
	// Name returns the name of the health check.
	Name() string
	// Check performs the health check and returns an error if unhealthy.
	Check(ctx context.Context) error
}

// CheckHealth runs every checker and returns "name: error" for each failure.
func CheckHealth(ctx context.Context, checkers []HealthChecker) []string {
	var failures []string
	for _, checker := range checkers {
		if err := checker.Check(ctx); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", checker.Name(), err))
		}
	}
	return failures
}

// HealthHandler answers 200 "OK" when all checks pass and 503 with the
// failures, one per line, otherwise. Each request gets timeout for all checks.
func HealthHandler(checkers []HealthChecker, timeout time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		failures := CheckHealth(ctx, checkers)
		if len(failures) > 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(strings.Join(failures, "\n") + "\n"))
			return
		}
		w.Write([]byte("OK"))
	})
}
