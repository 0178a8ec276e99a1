// Package metrics exposes Prometheus instrumentation for sml-gateway.
//
// A Collector owns a private registry so tests and multiple servers in one
// process never collide on the default registerer. Metrics:
//
//	sml_operation_executions_total{path,outcome}
//	sml_operation_duration_seconds{path}
//	wrapped_calls_total{component,method,outcome}
//
// Handler serves the registry in the Prometheus text format.
package metrics
