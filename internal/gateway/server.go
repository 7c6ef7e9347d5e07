package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/sahhacare/sahha/internal/health"
	"github.com/sahhacare/sahha/internal/observe"
)

const shutdownGrace = 10 * time.Second

// ServerConfig configures the gateway HTTP server.
type ServerConfig struct {
	// ListenAddr is the TCP address to listen on.
	ListenAddr string

	// DefaultLanguage is used when a client's hello carries no language.
	DefaultLanguage string

	// AllowedOrigins restricts WebSocket origins. Empty allows the
	// server's own host only.
	AllowedOrigins []string

	// TLSCertFile and TLSKeyFile enable HTTPS when both are set.
	TLSCertFile string
	TLSKeyFile  string
}

// Server exposes the conversation WebSocket at /session together with
// health probes and the Prometheus scrape endpoint.
type Server struct {
	cfg     ServerConfig
	factory SessionFactory
	health  *health.Handler
	metrics *observe.Metrics

	httpSrv *http.Server
}

// NewServer creates a Server. checkers feed the /readyz probe.
func NewServer(cfg ServerConfig, factory SessionFactory, metrics *observe.Metrics, checkers ...health.Checker) *Server {
	s := &Server{
		cfg:     cfg,
		factory: factory,
		health:  health.New(checkers...),
		metrics: metrics,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /session", s.handleSession)
	mux.Handle("GET /metrics", promhttp.Handler())
	s.health.Register(mux)

	var handler http.Handler = mux
	if metrics != nil {
		handler = observe.Middleware(metrics)(mux)
	}
	s.httpSrv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Run serves until ctx is cancelled, then drains with a grace period.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("gateway listening", "addr", s.cfg.ListenAddr, "tls", s.cfg.TLSCertFile != "")
		var err error
		if s.cfg.TLSCertFile != "" && s.cfg.TLSKeyFile != "" {
			err = s.httpSrv.ListenAndServeTLS(s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
		} else {
			err = s.httpSrv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// handleSession upgrades to WebSocket and runs one conversation connection.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.cfg.AllowedOrigins,
	})
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}

	c := &conn{ws: ws}
	slog.Info("client connected", "remote", r.RemoteAddr)

	if err := c.run(r.Context(), s.factory, s.cfg.DefaultLanguage); err != nil &&
		!errors.Is(err, context.Canceled) {
		slog.Warn("connection ended with error", "remote", r.RemoteAddr, "error", err)
		ws.Close(websocket.StatusInternalError, "session error")
		return
	}

	slog.Info("client disconnected", "remote", r.RemoteAddr)
	ws.Close(websocket.StatusNormalClosure, "bye")
}
