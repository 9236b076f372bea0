// Package clientx caches HTTP clients by network identity.
//
// # Overview
//
// A Registry hands out one *http.Client per network path: the proxy a request
// is routed through, or the target origin when it goes direct. Requests that
// share a path share a client and so share its connection pool. Clients are
// built on first use by a swappable Factory; the default factory produces
// clients that decompress responses, never follow redirects, send no
// User-Agent and keep no cookies.
//
// # Features
//
//   - Lock-free hits, per-identity collapsing of concurrent misses
//   - Exactly one stored client per identity, first writer wins
//   - Atomically swappable factory; cached clients are never rebuilt
//   - Optional retry and circuit breaking on the default factory
//   - OpenTelemetry metrics for lookups, constructions and Connect calls
//   - A process-wide registry behind GetClient and SetFactory
//
// # Usage
//
//	sel, err := identity.FromEnvironment()
//	if err != nil { return err }
//	client, err := clientx.GetClient(sel, target)
//	if err != nil { return err }
//	resp, err := client.Get(target.String())
//
// Clients are shared; callers must not mutate their fields.
package clientx
