// Package middleware holds the echo middleware wrapped around every script route:
// request ids, request-scoped logging, tracing, rate limiting, panic recovery and
// the global error handler that renders failures as envelopes.
package middleware
