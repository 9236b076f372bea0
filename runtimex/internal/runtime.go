// Package internal contains the runtime implementation.
package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.eggybyte.com/clientpool/core/log"
)

// Server is one named endpoint managed by the runtime.
type Server struct {
	Name     string
	Addr     string
	Listener net.Listener // Used instead of Addr when set
	Handler  http.Handler
}

// Runtime binds, serves and shuts down a set of endpoints.
type Runtime struct {
	logger          log.Logger
	shutdownTimeout time.Duration
	ready           func(name string, addr net.Addr)

	servers []*http.Server
	names   []string
	errCh   chan error
	wg      sync.WaitGroup
}

// NewRuntime creates a new runtime instance.
func NewRuntime(logger log.Logger, shutdownTimeout time.Duration, ready func(string, net.Addr)) *Runtime {
	return &Runtime{
		logger:          logger,
		shutdownTimeout: shutdownTimeout,
		ready:           ready,
	}
}

// Start binds every endpoint before serving any of them, so a bad address
// fails without leaving other endpoints running.
func (r *Runtime) Start(servers []Server) error {
	listeners := make([]net.Listener, 0, len(servers))
	for _, s := range servers {
		ln := s.Listener
		if ln == nil {
			var err error
			ln, err = net.Listen("tcp", s.Addr)
			if err != nil {
				for _, l := range listeners {
					l.Close()
				}
				return fmt.Errorf("%s server listen on %s: %w", s.Name, s.Addr, err)
			}
		}
		listeners = append(listeners, ln)
	}

	r.errCh = make(chan error, len(servers))
	for i, s := range servers {
		srv := &http.Server{Handler: s.Handler, ReadHeaderTimeout: 5 * time.Second}
		r.servers = append(r.servers, srv)
		r.names = append(r.names, s.Name)

		ln := listeners[i]
		r.logger.Info("starting server", log.Str("server", s.Name), log.Str("addr", ln.Addr().String()))
		if r.ready != nil {
			r.ready(s.Name, ln.Addr())
		}

		r.wg.Add(1)
		go func(name string) {
			defer r.wg.Done()
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				r.logger.Error(err, "server failed", log.Str("server", name))
				r.errCh <- fmt.Errorf("%s server: %w", name, err)
			}
		}(s.Name)
	}
	return nil
}

// Wait blocks until ctx is done or a server fails.
func (r *Runtime) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case err := <-r.errCh:
		return err
	}
}

// Stop gracefully shuts down every server within the shutdown timeout.
func (r *Runtime) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, r.shutdownTimeout)
	defer cancel()

	var errs []error
	for i, srv := range r.servers {
		r.logger.Info("stopping server", log.Str("server", r.names[i]))
		if err := srv.Shutdown(shutdownCtx); err != nil {
			r.logger.Error(err, "server shutdown failed", log.Str("server", r.names[i]))
			errs = append(errs, fmt.Errorf("%s server shutdown: %w", r.names[i], err))
		}
	}
	r.wg.Wait()

	r.logger.Info("runtime stopped")
	return errors.Join(errs...)
}
