package origin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crawlkit/origind/internal/errs"
	"github.com/crawlkit/origind/internal/lifecycle"
	"github.com/crawlkit/origind/internal/logging"
	"github.com/crawlkit/origind/internal/metrics"
)

// Config controls the origin HTTP listener.
type Config struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Server owns the routing table and serves resolved content over HTTP. Mount
// registration is safe while requests are being handled.
type Server struct {
	cfg      Config
	logger   *zap.Logger
	table    *Table
	resolver *Resolver
	fsys     FS

	tracker  lifecycle.Tracker
	httpSrv  *http.Server
	listener net.Listener
	serveErr chan error
}

// NewServer constructs a Server with the standard middleware stack.
func NewServer(cfg Config, fsys FS, logger *zap.Logger) *Server {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	// Port 0 binds an ephemeral port; the configured default comes from the
	// config layer.
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if fsys == nil {
		fsys = OSFS()
	}

	table := NewTable()
	s := &Server{
		cfg:      cfg,
		logger:   logging.OrNop(logger),
		table:    table,
		resolver: NewResolver(table, fsys),
		fsys:     fsys,
		serveErr: make(chan error, 1),
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Handle("/*", http.HandlerFunc(s.serve))

	s.httpSrv = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the router for httptest-driven tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// RegisterMount adds (urlPath -> localPath) under hostname. Registration with
// a missing local path still succeeds; the caller gets a diagnostic through
// the log and the returned flag.
func (s *Server) RegisterMount(hostname, urlPath, localPath string) (exists bool) {
	exists = true
	if _, err := s.fsys.Stat(localPath); err != nil {
		exists = false
		s.logger.Warn("mount local path not found",
			zap.String("host", hostname),
			zap.String("url_path", urlPath),
			zap.String("local_path", localPath),
		)
	}
	s.table.Add(hostname, Mount{URLPath: urlPath, LocalPath: localPath})
	metrics.SetMountsRegistered(s.table.MountCount())
	s.logger.Info("mount registered",
		zap.String("host", hostname),
		zap.String("url_path", urlPath),
		zap.String("local_path", localPath),
	)
	return exists
}

// Mounts returns a copy of every host's registered mounts.
func (s *Server) Mounts() map[string][]Mount {
	out := make(map[string][]Mount)
	for _, host := range s.table.Hosts() {
		out[host] = s.table.Snapshot(host)
	}
	return out
}

// Resolver returns the resolution engine, for callers that need outcomes
// without going through HTTP.
func (s *Server) Resolver() *Resolver {
	return s.resolver
}

// Addr returns the bound listen address, valid once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start binds the listener and begins accepting connections. A bind failure
// is fatal and carries the origin-server-start kind.
func (s *Server) Start(_ context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errs.Wrap(errs.KindOriginServerStart, fmt.Errorf("listen %s: %w", addr, err))
	}
	s.listener = ln
	if !s.tracker.MarkRunning() {
		ln.Close() //nolint:errcheck // refusing a double start
		return errs.New(errs.KindOriginServerStart, "origin server already %s", s.tracker.State())
	}

	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.serveErr <- err
		}
	}()

	metrics.ObserveTransition("origin", "start")
	s.logger.Info("origin server started", zap.String("addr", ln.Addr().String()))
	return nil
}

// Stop drains in-flight requests within the shutdown timeout and clears the
// routing table. Idempotent.
func (s *Server) Stop(ctx context.Context) error {
	if !s.tracker.MarkStopped() {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	err := s.httpSrv.Shutdown(shutdownCtx)
	s.table.Clear()
	metrics.SetMountsRegistered(0)
	metrics.ObserveTransition("origin", "stop")
	s.logger.Info("origin server stopped")
	if err != nil {
		return errs.Wrap(errs.KindCleanup, fmt.Errorf("shutdown origin server: %w", err))
	}
	select {
	case err := <-s.serveErr:
		return errs.Wrap(errs.KindCleanup, fmt.Errorf("origin serve loop: %w", err))
	default:
		return nil
	}
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	res := s.resolver.Resolve(r.Host, r.URL.Path)
	metrics.ObserveRequest(r.Host, res.Outcome.String(), time.Since(start))

	w.Header().Set("Content-Type", res.ContentType)
	w.WriteHeader(res.Status)
	if _, err := w.Write(res.Body); err != nil {
		s.logger.Debug("response write failed", zap.Error(err))
	}
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-ID", uuid.NewString())
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Debug("request completed",
			zap.String("host", r.Host),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("panic", rec))
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}
