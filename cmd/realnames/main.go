package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hfi/wiki-realnames/internal/api"
	"github.com/hfi/wiki-realnames/internal/audit"
	"github.com/hfi/wiki-realnames/internal/config"
	"github.com/hfi/wiki-realnames/internal/rewriter"
	"github.com/hfi/wiki-realnames/internal/server"
	"github.com/hfi/wiki-realnames/internal/storage"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	if command == "version" {
		fmt.Printf("Wiki Real Names %s\n", Version)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		fmt.Printf("Build Time: %s\n", BuildTime)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.Logging, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "serve":
		err = serve(ctx, cfg, logger)
	case "migrate":
		err = migrate(ctx, cfg, logger)
	default:
		err = fmt.Errorf("unknown command %q (want serve, migrate or version)", command)
	}
	if err != nil {
		logger.Error().Err(err).Str("command", command).Msg("exiting")
		os.Exit(1)
	}
}

func newLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Str("service", "wiki-realnames").Logger()
}

func migrate(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	switch cfg.Storage.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("driver %q has no schema to migrate", cfg.Storage.Driver)
	}

	store, err := storage.OpenSQLStore(ctx, storage.Dialect(cfg.Storage.Driver), cfg.Storage.DSN, "")
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return err
	}
	logger.Info().Str("driver", cfg.Storage.Driver).Msg("migrations applied")
	return nil
}

func serve(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	logger.Info().Str("version", Version).Str("listen", cfg.Server.Listen).Msg("Wiki Real Names starting")

	backends, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer backends.Close()

	if cfg.Session.Secret == "" {
		logger.Warn().Msg("session.secret is empty, every request is rendered for an anonymous viewer")
	}
	viewers := api.NewSessionViewers(api.NewCookieStore(cfg.Session.Secret), cfg.Session.Name, logger)

	handler := api.NewHandler(api.Deps{
		Accounts: backends.Accounts,
		Pages:    backends.Pages,
		Viewers:  viewers,
		Options: rewriter.Options{
			Policy:             cfg.RealNames.Policy,
			URLs:               cfg.Wiki,
			TalkLinkText:       cfg.RealNames.TalkLinkText,
			UserNotExistMarker: cfg.RealNames.UserNotExistMarker,
		},
		Audit:  audit.NewLogger(logger, cfg.Logging.Audit.Enabled, cfg.Logging.Audit.Level),
		Logger: logger,
	})

	var mgmt *server.Server
	if cfg.Metrics.Enabled {
		mgmtCfg := server.DefaultConfig()
		mgmtCfg.Addr = ":" + strconv.Itoa(cfg.Metrics.Port)
		mgmtCfg.MetricsPath = cfg.Metrics.Endpoint
		mgmtCfg.Version = Version
		mgmt = server.New(mgmtCfg, logger)
		mgmt.RegisterHealthCheck("storage", backends.Ping)

		go func() {
			logger.Info().Str("addr", mgmt.Addr()).Msg("management server listening")
			if err := mgmt.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("management server failed")
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           handler.Routes(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("rewrite API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("rewrite API failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if mgmt != nil {
		if err := mgmt.Stop(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("management server shutdown")
		}
	}
	return srv.Shutdown(shutdownCtx)
}
