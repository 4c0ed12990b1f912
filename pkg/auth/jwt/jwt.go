// Package jwt issues and verifies HS256-signed bearer tokens and provides an
// authenticator that plugs the verifier into an auth.AuthChain.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/rhuss/bookstore/pkg/api"
	"github.com/rhuss/bookstore/pkg/auth"
)

// DefaultTTL is the token lifetime used when none is configured.
const DefaultTTL = time.Hour

// Sentinel errors.
var (
	ErrMissingSecret = errors.New("jwt: signing secret is not configured")
	ErrTokenIssuance = errors.New("jwt: token issuance failed")
)

// Config holds the token service configuration.
type Config struct {
	// Secret is the HMAC signing key (required).
	Secret string

	// Issuer is written to and, if set, required in the iss claim.
	Issuer string

	// TTL is the default token lifetime. Default: 1 hour.
	TTL time.Duration
}

// claims is the token payload.
type claims struct {
	Email string   `json:"email"`
	Role  api.Role `json:"role"`
	jwtlib.RegisteredClaims
}

// Service issues and verifies tokens with a single shared secret.
type Service struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// New creates a token service. It fails with ErrMissingSecret when no
// secret is configured; the process must not start without one.
func New(cfg Config) (*Service, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &Service{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		now:    time.Now,
	}, nil
}

// Issue signs a token for id. A non-positive ttl uses the configured default.
func (s *Service) Issue(id auth.Identity, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.ttl
	}
	now := s.now()

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims{
		Email: id.Email,
		Role:  id.Role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   id.Subject,
			Issuer:    s.issuer,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTokenIssuance, err)
	}
	return signed, nil
}

// Verify returns the identity carried by a valid token, or nil when the
// token is expired, malformed, wrongly signed, uses an algorithm other than
// HS256, or has no subject.
func (s *Service) Verify(token string) *auth.Identity {
	var c claims
	parsed, err := jwtlib.ParseWithClaims(token, &c, func(*jwtlib.Token) (any, error) {
		return s.secret, nil
	}, s.parserOptions()...)
	if err != nil || !parsed.Valid {
		slog.Debug("token verification failed", "error", err)
		return nil
	}
	if c.Subject == "" {
		return nil
	}
	return &auth.Identity{Subject: c.Subject, Email: c.Email, Role: c.Role}
}

// parserOptions builds JWT parser options based on the configuration.
func (s *Service) parserOptions() []jwtlib.ParserOption {
	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(s.issuer))
	}
	return opts
}

// Authenticator validates bearer tokens with a Service.
type Authenticator struct {
	service *Service
}

// NewAuthenticator wraps s for use in an auth.AuthChain.
func NewAuthenticator(s *Service) *Authenticator {
	return &Authenticator{service: s}
}

// Authenticate extracts a bearer token from the Authorization header and
// verifies it.
//
// Decision outcomes:
//   - Abstain: no Authorization header, not a Bearer scheme, or empty token
//   - No: bearer token present but invalid
//   - Yes: valid token with populated Identity
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.AuthResult {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return auth.AuthResult{Decision: auth.Abstain}
	}

	tokenStr := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if tokenStr == "" {
		return auth.AuthResult{Decision: auth.Abstain}
	}

	identity := a.service.Verify(tokenStr)
	if identity == nil {
		return auth.AuthResult{
			Decision: auth.No,
			Err:      auth.ErrUnauthenticated,
		}
	}

	return auth.AuthResult{
		Decision: auth.Yes,
		Identity: identity,
	}
}
