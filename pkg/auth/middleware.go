package auth

import (
	"errors"
	"net/http"

	"github.com/rhuss/bookstore/pkg/api"
	"github.com/rhuss/bookstore/pkg/debug"
	"github.com/rhuss/bookstore/pkg/observability"
)

// Stage is the signature of a request pipeline stage. It matches
// transport.Stage without importing it.
type Stage = func(*http.Request) (*http.Request, error)

// Authenticate returns a stage that runs the chain and, on success, attaches
// the identity to the request context.
func Authenticate(chain *AuthChain) Stage {
	return func(r *http.Request) (*http.Request, error) {
		result := chain.Authenticate(r.Context(), r)

		if result.Decision == No {
			apiErr := authError(result.Err)
			debug.Log(r.Context(), debug.Auth, "authentication failed",
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
				"code", apiErr.Code,
				"error", result.Err,
			)
			observability.AuthFailuresTotal.WithLabelValues(apiErr.Code).Inc()
			return nil, apiErr
		}

		if result.Decision != Yes || result.Identity == nil || result.Identity.Subject == "" {
			debug.Log(r.Context(), debug.Auth, "authenticator returned no usable identity", "path", r.URL.Path)
			return nil, api.NewInternal(http.StatusInternalServerError,
				"internal authentication error", api.CodeUnexpected, nil)
		}

		debug.Log(r.Context(), debug.Auth, "authentication succeeded",
			"subject", result.Identity.Subject,
			"role", result.Identity.Role,
			"path", r.URL.Path,
		)

		return r.WithContext(SetIdentity(r.Context(), result.Identity)), nil
	}
}

// Authorize returns a stage that admits only callers holding one of roles.
// An empty role set admits any authenticated caller. A request without an
// identity means Authenticate was not wired before this stage.
func Authorize(roles ...api.Role) Stage {
	return func(r *http.Request) (*http.Request, error) {
		id := IdentityFromContext(r.Context())
		if id == nil || id.Role == "" {
			observability.AuthFailuresTotal.WithLabelValues(api.CodeAuthRequired).Inc()
			return nil, api.NewUnauthorizedError(
				"Authentication required before authorization", api.CodeAuthRequired)
		}

		if len(roles) > 0 && !id.HasRole(roles...) {
			debug.Log(r.Context(), debug.Auth, "authorization denied",
				"subject", id.Subject,
				"role", id.Role,
				"required", roles,
				"path", r.URL.Path,
			)
			observability.AuthFailuresTotal.WithLabelValues(api.CodeForbidden).Inc()
			return nil, api.NewForbiddenError(
				"Forbidden: You do not have permission to access this resource").WithCause(ErrForbidden)
		}

		return r, nil
	}
}

// authError maps a chain failure onto the client-facing error.
func authError(err error) *api.APIError {
	if err == nil || errors.Is(err, ErrTokenMissing) {
		return api.NewUnauthorizedError("Authentication token required", api.CodeTokenMissing).WithCause(err)
	}
	return api.NewUnauthorizedError("Authentication token is invalid or expired", api.CodeTokenInvalid).WithCause(err)
}
