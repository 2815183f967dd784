// Package observe provides observability primitives for memoization
// registries.
//
// It is a pure instrumentation library: it never touches cached values and
// performs no I/O beyond exporter setup. A registry receives a Middleware
// (usually built with MiddlewareFromObserver) and reports lookups, computes
// and evictions through it.
//
// # Telemetry
//
// Metrics:
//
//   - memo.lookups            counter, attribute memo.result=hit|miss
//   - memo.computes           counter, attribute memo.storage=weak|strong
//   - memo.compute.panics     counter
//   - memo.compute.duration_ms histogram
//   - memo.evictions          counter, attribute memo.reason
//
// Spans are emitted per factory invocation, named memo.compute.<registry id>.
//
// Logs are structured JSON lines. Key values are never logged; only the
// length of the key sequence is.
package observe
