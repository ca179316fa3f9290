package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/roofix-au/siteserver/internal/analytics"
	"github.com/roofix-au/siteserver/internal/auth"
	"github.com/roofix-au/siteserver/internal/config"
	"github.com/roofix-au/siteserver/internal/content"
	"github.com/roofix-au/siteserver/internal/geocode"
	"github.com/roofix-au/siteserver/internal/mailer"
	"github.com/roofix-au/siteserver/internal/ratelimit"
	"github.com/roofix-au/siteserver/internal/router"
	"github.com/roofix-au/siteserver/internal/server"
	"github.com/roofix-au/siteserver/internal/store"
	"github.com/roofix-au/siteserver/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the yaml config file")
	flag.Parse()

	logger := defaultLogger()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	if _, err := telemetry.SetupMetrics("siteserver"); err != nil {
		logger.Error("metrics setup", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.New()
	st := store.New(cfg.Store, logger)
	cache := content.New(cfg.Content, st, clk, logger)
	reporter := analytics.New(cfg.Analytics, logger)

	stats := telemetry.New(ctx, cfg.Telemetry, logger, cache)
	defer func() { _ = stats.Close() }()

	srv := server.New(cfg, server.Deps{
		Logger:   logger,
		Access:   zerolog.New(os.Stdout).With().Timestamp().Logger(),
		Router:   router.New(cfg.Hosts),
		Cache:    cache,
		Store:    st,
		Limiter:  ratelimit.New(clk),
		Verifier: auth.NewVerifier(cfg.Auth),
		Sender:   mailer.New(cfg.Mailer, logger),
		Suggest:  geocode.New(cfg.Geocode),
		Reporter: reporter,
		Realtime: analytics.NewRealtimeCache(cfg.Content, reporter, clk, logger),
	})

	if err := srv.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func defaultLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	h := slog.NewJSONHandler(os.Stdout, opts)

	log := slog.New(h).With(
		slog.String("service", "siteserver"),
	)
	slog.SetDefault(log)

	return log
}
