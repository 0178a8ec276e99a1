// ABOUTME: Package api assembles the gateway: store, registry, bus, and servers
// ABOUTME: Serves the users API and the SML adapter over HTTP, health over gRPC

// Package api wires every component into one Server.
//
// New builds the store, the operation registry with all built-in packs, the
// event bus, the workflow runner, and the HTTP and gRPC servers. The registry
// is locked before New returns. Run starts the listeners, publishes the boot
// event, and blocks until the context is canceled, then shuts down within
// the configured timeout.
//
// HTTP routes:
//
//	GET  /health              liveness
//	GET  /health/ready        registry locked and store reachable
//	GET  /metrics             Prometheus metrics, when enabled
//	POST /api/auth/login      users API (see package users)
//	GET  /api/sml/meta        registry snapshot for the caller
//	GET  /api/sml/list        child segments under ?path=
//	GET  /api/sml/resolve     what ?path= names
//	POST /api/sml/execute     run an operation
//	GET  /api/sml/docs        rendered operation reference
package api
