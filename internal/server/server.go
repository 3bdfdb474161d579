// Package server exposes a resolver over HTTP for diagnostics and for
// clients that prefer a local endpoint to linking the engine.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rohmanhakim/linkmeta/internal/config"
	"github.com/rohmanhakim/linkmeta/internal/resolver"
	"github.com/rohmanhakim/linkmeta/pkg/failure"
)

const shutdownTimeout = 5 * time.Second

// Resolver is the part of resolver.Service the server needs.
type Resolver interface {
	Resolve(ctx context.Context, rawUrl string, cfg config.ResolutionConfig) (resolver.Metadata, error)
	Stats() resolver.Stats
	ClearAll(ctx context.Context) failure.ClassifiedError
}

type Server struct {
	resolver Resolver
	cfg      config.ResolutionConfig
	limiter  *rate.Limiter
	logger   *zap.Logger
	router   chi.Router
}

type Option func(*Server)

// WithRateLimit caps incoming resolve requests at r per second with the given burst.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(s *Server) {
		s.limiter = rate.NewLimiter(r, burst)
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New builds the router. cfg is the default per-call configuration;
// /v1/resolve may override showIcon and timeout per request.
func New(r Resolver, cfg config.ResolutionConfig, opts ...Option) *Server {
	s := &Server{
		resolver: r,
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Inf, 0),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(s.logRequests)

	router.Get("/healthz", s.handleHealth)
	router.Route("/v1", func(r chi.Router) {
		r.With(s.rateLimit).Get("/resolve", s.handleResolve)
		r.Get("/stats", s.handleStats)
		r.Post("/clear", s.handleClear)
	})
	s.router = router
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	rawUrl := query.Get("url")
	if rawUrl == "" {
		writeError(w, http.StatusBadRequest, "missing_url", "query parameter url is required")
		return
	}

	cfg := s.cfg
	if v := query.Get("icon"); v != "" {
		show, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_icon", "icon must be a boolean")
			return
		}
		cfg.ShowIcon = show
	}
	if v := query.Get("timeout"); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_timeout", "timeout must be a duration such as 5s")
			return
		}
		cfg.Timeout = timeout
	}

	md, err := s.resolver.Resolve(r.Context(), rawUrl, cfg)
	if err != nil {
		switch {
		case errors.Is(err, resolver.ErrInvalidURL), errors.Is(err, config.ErrInvalidConfig):
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "internal", err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, md)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.resolver.Stats())
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.resolver.ClearAll(r.Context()); err != nil {
		s.logger.Warn("clear failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "clear_failed", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("requestId", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
