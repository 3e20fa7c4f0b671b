// Package errs defines the errors raised by the HTTP host itself.
//
// Scripts answer expected outcomes with envelopes; errs covers what happens
// around them (unknown routes, unreadable bodies, throttling) so the global
// error handler can render every failure in the same envelope shape.
package errs
