// Package server wires the HTTP surface: public content and form
// endpoints, and the bearer-authenticated control-centre API.
package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/roofix-au/siteserver/internal/analytics"
	"github.com/roofix-au/siteserver/internal/auth"
	"github.com/roofix-au/siteserver/internal/config"
	"github.com/roofix-au/siteserver/internal/content"
	"github.com/roofix-au/siteserver/internal/geocode"
	"github.com/roofix-au/siteserver/internal/mailer"
	"github.com/roofix-au/siteserver/internal/ratelimit"
	"github.com/roofix-au/siteserver/internal/router"
	"github.com/roofix-au/siteserver/internal/store"
)

type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	access   zerolog.Logger
	routes   *router.Router
	cache    content.Cacher
	store    store.Store
	limiter  *ratelimit.Limiter
	verifier *auth.Verifier
	sender   mailer.Sender
	suggest  geocode.Suggester
	reporter analytics.Reporter
	realtime *analytics.RealtimeCache
}

type Deps struct {
	Logger   *slog.Logger
	Access   zerolog.Logger
	Router   *router.Router
	Cache    content.Cacher
	Store    store.Store
	Limiter  *ratelimit.Limiter
	Verifier *auth.Verifier
	Sender   mailer.Sender
	Suggest  geocode.Suggester
	Reporter analytics.Reporter
	Realtime *analytics.RealtimeCache
}

func New(cfg *config.Config, d Deps) *Server {
	return &Server{
		cfg:      cfg,
		logger:   d.Logger,
		access:   d.Access,
		routes:   d.Router,
		cache:    d.Cache,
		store:    d.Store,
		limiter:  d.Limiter,
		verifier: d.Verifier,
		sender:   d.Sender,
		suggest:  d.Suggest,
		reporter: d.Reporter,
		realtime: d.Realtime,
	}
}

// Handler assembles the middleware chain. The host router runs first:
// its decisions depend on the original host and path, before anything
// else has a chance to touch the request.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/content/collections/{name}", s.handleCollection)
	mux.HandleFunc("GET /api/content/pages/{key}", s.handlePage)
	mux.HandleFunc("POST /api/contact", s.handleContact)
	mux.HandleFunc("POST /api/events/conversion", s.handleConversion)
	mux.HandleFunc("GET /api/geocode", s.handleGeocode)

	admin := http.NewServeMux()
	admin.HandleFunc("GET /control-centre/api/pages/{key}", s.handleAdminGetPage)
	admin.HandleFunc("PUT /control-centre/api/pages/{key}", s.handleAdminPutPage)
	admin.HandleFunc("PUT /control-centre/api/documents/{id}", s.handleAdminPutDocument)
	admin.HandleFunc("GET /control-centre/api/analytics/realtime", s.handleAdminRealtime)
	admin.HandleFunc("POST /control-centre/api/analytics/report", s.handleAdminReport)
	mux.Handle("/control-centre/api/", s.verifier.RequireEditor(admin))

	var h http.Handler = mux
	if s.cfg.Server.Gzip {
		h = gziphandler.GzipHandler(h)
	}
	h = s.accessLog(h)
	return s.routes.Middleware(h)
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	chain := hlog.NewHandler(s.access)(
		hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
			hlog.FromRequest(r).Info().
				Str("method", r.Method).
				Str("host", r.Host).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("size", size).
				Dur("duration", duration).
				Msg("request")
		})(next))
	return chain
}

// Run serves until ctx is cancelled, then drains within the shutdown
// timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	s.logger.Info("listening", "addr", s.cfg.Server.Addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout.Std())
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
