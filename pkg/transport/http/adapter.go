package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rhuss/bookstore/pkg/api"
	"github.com/rhuss/bookstore/pkg/auth"
	"github.com/rhuss/bookstore/pkg/auth/jwt"
	"github.com/rhuss/bookstore/pkg/auth/password"
	"github.com/rhuss/bookstore/pkg/observability"
	"github.com/rhuss/bookstore/pkg/storage"
	"github.com/rhuss/bookstore/pkg/transport"
	"github.com/rhuss/bookstore/pkg/validate"
)

// BookSearcher looks up book metadata by free-text query.
type BookSearcher interface {
	Search(ctx context.Context, query string) ([]api.BookRecord, error)
}

// Deps are the collaborators the routes need. All are required except
// Logger.
type Deps struct {
	Store  storage.Store
	Tokens *jwt.Service
	Hasher *password.Hasher
	Books  BookSearcher
	Logger *slog.Logger
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	// Hardened hides diagnostic traces of unexpected errors from clients.
	Hardened bool

	// MetricsPath exposes Prometheus metrics when non-empty.
	MetricsPath string
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{MetricsPath: "/metrics"}
}

// Adapter serves the bookstore API over HTTP. It owns the route table and
// the central error handler every route reports to.
type Adapter struct {
	deps      Deps
	config    Config
	logger    *slog.Logger
	errors    *transport.ErrorHandler
	validator *validate.Validator
	authn     transport.Stage
	mux       *http.ServeMux

	// dummyHash is verified against when a login names an unknown email,
	// so both failure paths cost one hash verification.
	dummyHash string
}

// NewAdapter creates an HTTP adapter and registers all routes.
func NewAdapter(deps Deps, cfg Config) *Adapter {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &Adapter{
		deps:      deps,
		config:    cfg,
		logger:    logger,
		errors:    transport.NewErrorHandler(logger, cfg.Hardened),
		validator: validate.New(),
		authn:     auth.Authenticate(auth.NewChain(jwt.NewAuthenticator(deps.Tokens))),
		mux:       http.NewServeMux(),
	}

	if h, err := deps.Hasher.Hash("dummy-password-for-timing"); err == nil {
		a.dummyHash = h
	} else {
		logger.Warn("dummy hash unavailable", slog.String("error", err.Error()))
	}

	a.routes()
	return a
}

func (a *Adapter) routes() {
	admin := []transport.Stage{a.authn, auth.Authorize(api.RoleAdmin)}

	a.handle("POST /api/auth/login", a.handleLogin, a.validator.Request(loginSchema))
	a.handle("POST /api/users", a.handleCreateUser, a.validator.Request(createUserSchema))

	a.handle("GET /api/catalog/lookup", a.handleLookup,
		append(admin, a.validator.Request(lookupSchema))...)

	a.handle("POST /api/catalog/authors", a.handleCreateAuthor,
		append(admin, a.validator.Request(createAuthorSchema))...)
	a.handle("GET /api/catalog/authors", a.handleListAuthors)
	a.handle("GET /api/catalog/authors/{authorId}", a.handleGetAuthor,
		a.validator.Request(authorIDSchema))
	a.handle("PATCH /api/catalog/authors/{authorId}", a.handleUpdateAuthor,
		append(admin, a.validator.Request(updateAuthorSchema))...)
	a.handle("DELETE /api/catalog/authors/{authorId}", a.handleDeleteAuthor,
		append(admin, a.validator.Request(authorIDSchema))...)

	a.handle("POST /api/catalog/books", a.handleCreateBook,
		append(admin, a.validator.Request(createBookSchema))...)

	a.mux.HandleFunc("GET /api/heartbeat", a.handleHeartbeat)
	a.handle("GET /healthz", a.handleHealth)
	if a.config.MetricsPath != "" {
		a.mux.Handle("GET "+a.config.MetricsPath, promhttp.Handler())
	}

	// Anything else, including a known path with the wrong method.
	a.mux.Handle("/", transport.Pipeline(a.errors, func(w http.ResponseWriter, r *http.Request) error {
		return api.New(http.StatusNotFound, "Not Found - "+r.URL.Path, api.CodeRouteNotFound)
	}))
}

func (a *Adapter) handle(pattern string, h transport.HandlerFunc, stages ...transport.Stage) {
	a.mux.Handle(pattern, transport.Pipeline(a.errors, h, stages...))
}

// Handler returns the http.Handler for this adapter wrapped in the default
// middleware: request ID, access logging, body capture, metrics and
// recovery. Recovery sits directly on the mux so a recovered panic is
// handled with the request ID, captured body and matched route in scope.
func (a *Adapter) Handler() http.Handler {
	return transport.Chain(
		transport.RequestID(),
		transport.Logging(a.logger),
		transport.CaptureBody(validate.MaxBodyBytes),
		observability.MetricsMiddleware,
		transport.Recovery(a.errors),
	)(a.mux)
}
