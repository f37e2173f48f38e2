// Package server exposes the regproxy HTTP surface: the Docker Registry v2
// facade, the health endpoint, the event feed and the static web UI.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"github.com/spf13/afero"

	"github.com/regproxy/regproxy/pkg/config"
	"github.com/regproxy/regproxy/pkg/events"
	"github.com/regproxy/regproxy/pkg/proxy"
	"github.com/regproxy/regproxy/pkg/xlog"
)

// healthDebounceDelay coalesces bursts of health probes into one upstream
// ping.
const healthDebounceDelay = 2 * time.Second

// Server wires the proxy, the event feed and the static UI into one HTTP
// handler.
type Server struct {
	cfg    config.Config
	proxy  *proxy.Proxy
	events *events.Queue
	static afero.Fs
	engine *gin.Engine
	health *healthState
}

// Option configures a Server.
type Option func(*Server)

// WithProxy sets the registry proxy backing the /v2/ surface.
func WithProxy(p *proxy.Proxy) Option {
	return func(s *Server) { s.proxy = p }
}

// WithEventQueue sets the feed backing /api/events.
func WithEventQueue(q *events.Queue) Option {
	return func(s *Server) { s.events = q }
}

// WithStaticFS sets the filesystem serving the web UI.
func WithStaticFS(fsys afero.Fs) Option {
	return func(s *Server) { s.static = fsys }
}

// New creates a Server for the given configuration.
func New(cfg config.Config, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		proxy:  proxy.New(),
		events: events.NewQueue(events.DefaultCapacity),
	}
	for _, apply := range opts {
		apply(s)
	}
	s.health = newHealthState(s.proxy, healthDebounceDelay)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())
	s.engine = engine
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", s.handleHealthz)
	s.engine.GET("/api/events", s.handleEvents)
	s.engine.GET("/api/stats", s.handleStats)

	// A single wildcard route carries the whole /v2/ surface. Registering
	// "/v2/" next to "/v2/*rest" conflicts in gin's route tree, so the ping
	// endpoint is dispatched inside handleV2.
	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut} {
		s.engine.Handle(method, "/v2/*rest", s.handleV2)
	}

	if s.static != nil {
		s.engine.GET("/", s.handleStatic)
		s.engine.NoRoute(s.handleStatic)
	}
}

// Handler returns the root HTTP handler with response compression applied.
func (s *Server) Handler() http.Handler {
	return gzhttp.GzipHandler(s.engine)
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	xlog.C(ctx).Info("server started", "address", srv.Addr)

	// Warm the health state so the first /healthz does not block.
	s.health.warm(ctx)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.health.stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		xlog.C(ctx).Error("server shutdown failed", "error", err)
		return err
	}
	xlog.C(ctx).Info("server stopped")
	return nil
}
