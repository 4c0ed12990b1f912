// Package auth provides request authentication and role authorization for
// the bookstore service.
//
// Authentication uses a chain-of-responsibility pattern with three-outcome
// voting: each authenticator returns Yes (identity found), No (credentials
// invalid), or Abstain (no credentials it can handle). When every
// authenticator abstains the request carries no usable credentials and is
// rejected with TOKEN_MISSING.
//
// Both checks are exposed as pipeline stages: [Authenticate] attaches the
// verified [Identity] to the request context, [Authorize] gates a route on
// the caller's role. Failures are returned as *api.APIError values and are
// rendered by the central error handler, never written here.
package auth
