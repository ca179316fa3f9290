// Package telemetry emits a periodic cache stats line for operators.
package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/roofix-au/siteserver/internal/config"
	"github.com/roofix-au/siteserver/internal/content"
)

type Logger interface {
	Interval() time.Duration
	Close() error
}

type Logs struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      *config.TelemetryCfg
	logger   *slog.Logger
	cache    content.Cacher
	interval time.Duration
}

func New(ctx context.Context, cfg *config.TelemetryCfg, logger *slog.Logger, cache content.Cacher) *Logs {
	ctx, cancel := context.WithCancel(ctx)
	return (&Logs{
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		logger:   logger,
		cache:    cache,
		interval: cfg.StatsLogsInterval.Std(),
	}).run()
}

func (l *Logs) Interval() time.Duration {
	return l.interval
}

func (l *Logs) Close() error {
	l.cancel()
	return nil
}

func (l *Logs) run() *Logs {
	if l.cfg != nil && l.cfg.StatsLogsEnabled {
		go l.loop()
	}
	return l
}

type snapshot struct {
	hits, misses, fetchErrors, dropped int64
}

func (l *Logs) loop() {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	var prev snapshot

	for {
		select {
		case <-l.ctx.Done():
			return

		case <-ticker.C:
			var cur snapshot
			cur.hits, cur.misses, cur.fetchErrors, cur.dropped = l.cache.Stats()

			l.logger.Info("content_cache",
				"interval", l.interval.String(),
				"hits", cur.hits-prev.hits,
				"misses", cur.misses-prev.misses,
				"fetch_errors", cur.fetchErrors-prev.fetchErrors,
				"dropped_records", cur.dropped-prev.dropped,
			)
			prev = cur
		}
	}
}
