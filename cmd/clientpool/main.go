// Package main provides the clientpool CLI entry point.
//
// Overview:
//   - Responsibility: Resolve request identities and probe targets through a client registry
//   - Key Types: Cobra command tree rooted at newRootCmd
//   - Concurrency Model: Sequential command execution; probe may serve metrics concurrently
//   - Error Semantics: Non-zero exit code with the error printed to stderr
//   - Performance Notes: One registry per invocation
//
// Usage:
//
//	clientpool identity --proxy http://proxy:3128 https://api.example.com
//	clientpool probe --metrics-addr :9090 https://api.example.com/healthz
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(&app{}).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Command failed: %v\n", err)
		os.Exit(1)
	}
}
