// Command server runs the bookstore catalog API.
//
// Configuration is read from an optional YAML file (--config,
// BOOKSTORE_CONFIG, ./config.yaml or /etc/bookstore/config.yaml) and from
// environment variables:
//
//	PORT                       - Listen port (default: 3000)
//	JWT_SECRET                 - Token signing secret (required)
//	JWT_TTL                    - Token lifetime (default: 1h)
//	GOOGLE_BOOKS_API_KEY       - Google Books API key (optional)
//	GOOGLE_BOOKS_BASE_URL      - Override of the volumes endpoint
//	APP_ENV, NODE_ENV          - "production" hides internal error details
//	LOG_LEVEL, LOG_FORMAT      - debug|info|warn|error, json|text
//	BOOKSTORE_DEBUG            - Debug categories: auth, books, storage, all
//	BOOKSTORE_STORAGE          - "memory" or "postgres" (default: "memory")
//	DATABASE_URL               - PostgreSQL DSN
//	BOOKSTORE_MIGRATE_ON_START - Apply migrations at startup (default: true)
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rhuss/bookstore/pkg/auth/jwt"
	"github.com/rhuss/bookstore/pkg/auth/password"
	"github.com/rhuss/bookstore/pkg/books"
	"github.com/rhuss/bookstore/pkg/config"
	"github.com/rhuss/bookstore/pkg/debug"
	"github.com/rhuss/bookstore/pkg/observability"
	"github.com/rhuss/bookstore/pkg/storage"
	"github.com/rhuss/bookstore/pkg/storage/memory"
	"github.com/rhuss/bookstore/pkg/storage/postgres"
	transporthttp "github.com/rhuss/bookstore/pkg/transport/http"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.Logging.Level, cfg.LogFormat(), os.Stdout)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	slog.SetDefault(logger)
	debug.Init(cfg.Logging.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	tokens, err := jwt.New(jwt.Config{
		Secret: cfg.Auth.JWTSecret,
		Issuer: cfg.Auth.Issuer,
		TTL:    cfg.Auth.TokenTTL,
	})
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	if cfg.Books.APIKey == "" {
		logger.Warn("GOOGLE_BOOKS_API_KEY not set, book lookup will be unavailable")
	}
	bookClient := books.New(books.Config{
		APIKey:     cfg.Books.APIKey,
		BaseURL:    cfg.Books.BaseURL,
		MaxResults: cfg.Books.MaxResults,
		Timeout:    cfg.Books.Timeout,
	})

	adapterCfg := transporthttp.DefaultConfig()
	adapterCfg.Hardened = cfg.Hardened()
	adapterCfg.MetricsPath = ""
	if cfg.Observability.Metrics.Enabled {
		adapterCfg.MetricsPath = cfg.Observability.Metrics.Path
	}

	adapter := transporthttp.NewAdapter(transporthttp.Deps{
		Store:  store,
		Tokens: tokens,
		Hasher: password.New(password.DefaultParams()),
		Books:  bookClient,
		Logger: logger,
	}, adapterCfg)

	srv := transporthttp.NewServer(adapter,
		transporthttp.WithAddr(":"+strconv.Itoa(cfg.Server.Port)),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithLogger(logger),
	)

	logger.Info("bookstore configured",
		slog.String("environment", cfg.Server.Environment),
		slog.Bool("hardened", cfg.Hardened()),
		slog.String("storage", cfg.Storage.Type),
		slog.Int("port", cfg.Server.Port),
	)

	return srv.Run(ctx)
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Storage.Type {
	case "postgres":
		pg, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Storage.Postgres.DSN,
			MaxConns:       cfg.Storage.Postgres.MaxConns,
			MigrateOnStart: cfg.Storage.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		logger.Info("storage enabled", slog.String("type", "postgres"),
			slog.Bool("migrate_on_start", cfg.Storage.Postgres.MigrateOnStart))
		return pg, nil
	default:
		logger.Info("storage enabled", slog.String("type", "memory"))
		return memory.New(), nil
	}
}
