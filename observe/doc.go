// Package observe provides observability primitives for cached command runs.
//
// It is a pure instrumentation library: no execution, no transport, no I/O
// beyond exporter setup. The runner wraps each run with Middleware, which
// emits one span, one set of metrics and one log line per run.
package observe
