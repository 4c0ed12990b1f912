// Package transport defines the request pipeline and the HTTP middleware
// chain shared by every route of the bookstore service.
//
// # Pipeline
//
// A route is a [HandlerFunc] preceded by zero or more [Stage] values
// (authentication, authorization, validation). [Pipeline] runs the stages in
// order; the first stage that returns an error short-circuits the request,
// and that error, like any error returned by the handler, goes to the
// [ErrorHandler].
//
// # Central error handling
//
// [ErrorHandler] is the only place where storage failures and unexpected
// errors are translated into the client-facing error taxonomy, the only
// place errors are logged, and the only writer of error bodies.
//
// # Middleware
//
// HTTP middleware wraps the whole mux: panic recovery, request ID
// assignment (X-Request-ID), access logging via log/slog, and request body
// capture for error diagnostics.
package transport
