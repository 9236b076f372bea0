// Package testingx provides testing helpers and fakes for clientpool modules.
//
// # Overview
//
// testingx contains small utilities to speed up unit tests: a mock logger
// with capture and assertions, in-memory HTTP transports, and proxy selectors
// with fixed answers.
//
// # Features
//
//   - MockLogger with in-memory capture and assertions
//   - RoundTripFunc and RecordingTransport for network-free clients
//   - StaticSelector and CountingSelector for proxy routing
//   - Error assertion helpers for core/errors codes
//
// # Usage
//
//	logger := testingx.NewMockLogger(t)
//	rt := testingx.NewRecordingTransport(nil)
//	sel := testingx.StaticSelector{"api.example.com": testingx.MustParseURL(t, "http://proxy:3128")}
//
// # Layer
//
// testingx is an auxiliary package for tests only and depends on core packages.
package testingx
