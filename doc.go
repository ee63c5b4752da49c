// Package busybee provides a demonstration HTTP service that
// exercises itself.
//
// The package has two cores: an instrumentation middleware that turns
// every request into exactly one access log record (correlation ID,
// latency tier, status, sizes), and a background traffic generator
// that continuously issues randomized requests against the service's
// own routes.  Both run under a shared Environment that implements
// context-based goroutine management and graceful shutdown.
package busybee
