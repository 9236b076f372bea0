package clientx

import (
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"go.eggybyte.com/clientpool/core/errors"
	"go.eggybyte.com/clientpool/core/identity"
	"go.eggybyte.com/clientpool/core/log"
)

const opGetClient = "clientx.GetClient"

// Registry caches one *http.Client per network identity.
// Entries are inserted once and never replaced or removed.
type Registry struct {
	clients sync.Map // identity.ID -> *http.Client
	size    atomic.Int64
	flights singleflight.Group
	factory atomic.Pointer[Factory]

	logger  log.Logger
	metrics *Metrics
}

// Option is a functional option for configuring a Registry.
type Option func(*Registry)

// WithFactory sets the initial factory. nil keeps DefaultFactory.
func WithFactory(f Factory) Option {
	return func(r *Registry) {
		if f != nil {
			r.factory.Store(&f)
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger log.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics enables instrument recording. nil disables it.
func WithMetrics(m *Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// New creates an empty registry using DefaultFactory unless overridden.
func New(opts ...Option) *Registry {
	r := &Registry{logger: log.Nop()}
	f := DefaultFactory
	r.factory.Store(&f)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetClient returns the client for the path a request to target takes when
// proxies are chosen by sel. Every caller that resolves to the same identity
// receives the same handle, including callers racing on a cold key.
//
// A factory failure is wrapped with CodeUnavailable and is not cached; the
// next call for the same identity tries again. A factory that returns a nil
// client yields CodeInternal.
func (r *Registry) GetClient(sel identity.ProxySelector, target *url.URL) (*http.Client, error) {
	route := identity.ResolveRoute(sel, target)

	if c, ok := r.clients.Load(route.ID); ok {
		r.metrics.recordLookup(true)
		return c.(*http.Client), nil
	}
	r.metrics.recordLookup(false)

	v, err, _ := r.flights.Do(route.ID.String(), func() (any, error) {
		return r.construct(route)
	})
	if err != nil {
		return nil, err
	}
	return v.(*http.Client), nil
}

// construct builds and stores a client for route. It runs at most once at a
// time per identity.
func (r *Registry) construct(route identity.Route) (*http.Client, error) {
	if c, ok := r.clients.Load(route.ID); ok {
		return c.(*http.Client), nil
	}

	logger := r.logger.With(log.Str("identity", route.ID.String()), log.Str("route", route.Redacted()))
	factory := *r.factory.Load()

	client, err := factory(route.Proxy)
	if err != nil {
		r.metrics.recordConstruction(outcomeFailed)
		logger.Error(err, "client construction failed")
		return nil, errors.Wrap(errors.CodeUnavailable, opGetClient, err)
	}
	if client == nil {
		r.metrics.recordConstruction(outcomeFailed)
		err := errors.New(errors.CodeInternal, opGetClient, "factory returned nil client")
		logger.Error(err, "client construction failed")
		return nil, err
	}

	actual, loaded := r.clients.LoadOrStore(route.ID, client)
	if loaded {
		r.metrics.recordConstruction(outcomeDiscarded)
		logger.Warn("discarding duplicate client")
		client.CloseIdleConnections()
		return actual.(*http.Client), nil
	}

	n := r.size.Add(1)
	r.metrics.recordConstruction(outcomeStored)
	logger.Debug("client constructed", log.Bool("direct", route.Direct()), log.Int("pool_size", int(n)))
	return client, nil
}

// SetFactory replaces the factory used for identities not yet cached.
// Cached clients are kept. nil restores DefaultFactory.
func (r *Registry) SetFactory(f Factory) {
	if f == nil {
		f = DefaultFactory
	}
	r.factory.Store(&f)
}

// Len returns the number of cached clients.
func (r *Registry) Len() int {
	return int(r.size.Load())
}

// Lookup returns the cached client for id without constructing one.
func (r *Registry) Lookup(id identity.ID) (*http.Client, bool) {
	c, ok := r.clients.Load(id)
	if !ok {
		return nil, false
	}
	return c.(*http.Client), true
}

var defaultRegistry = New()

// Default returns the process-wide registry used by the package-level functions.
func Default() *Registry {
	return defaultRegistry
}

// GetClient returns a client from the process-wide registry.
func GetClient(sel identity.ProxySelector, target *url.URL) (*http.Client, error) {
	return defaultRegistry.GetClient(sel, target)
}

// SetFactory replaces the factory of the process-wide registry.
func SetFactory(f Factory) {
	defaultRegistry.SetFactory(f)
}
