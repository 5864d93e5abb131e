// Package server exposes the reconciliation engine over HTTP: a trigger
// endpoint and a thin pass-through read of persisted alerts.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"farm-price-alerts/internal/alerting"
	"farm-price-alerts/internal/metrics"
	"farm-price-alerts/internal/reconcile"
)

// Options tune the HTTP surface.
type Options struct {
	ListenAddr   string
	AuthToken    string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PageSize     int
}

// Runner triggers one reconciliation run.
type Runner interface {
	Run(ctx context.Context) (reconcile.Report, error)
}

// AlertReader lists persisted alerts for one owner, newest first.
type AlertReader interface {
	ListAlertsForOwner(ctx context.Context, ownerID string, limit int) ([]alerting.Alert, error)
}

// Server handles the HTTP trigger surface.
type Server struct {
	opts   Options
	runner Runner
	alerts AlertReader
	logger zerolog.Logger
}

// New constructs the server. alerts may be nil when persistence is disabled;
// the read endpoint then answers 503.
func New(opts Options, runner Runner, alerts AlertReader, logger zerolog.Logger) *Server {
	if opts.ListenAddr == "" {
		opts.ListenAddr = ":8080"
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 20
	}
	return &Server{
		opts:   opts,
		runner: runner,
		alerts: alerts,
		logger: logger.With().Str("component", "server").Logger(),
	}
}

// Router assembles the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(metrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "cropwatcher"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.auth)
		r.Post("/reconcile", s.handleReconcile)
		r.Get("/alerts/{ownerID}", s.handleListAlerts)
	})

	return r
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.opts.ListenAddr,
		Handler:      s.Router(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.opts.ListenAddr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// auth enforces the static bearer token when one is configured. Marketplace
// session validation happens upstream; this is only a shared-secret gate for
// direct deployments.
func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.AuthToken == "" {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.AuthToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid or missing bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type reconcileResponse struct {
	reconcile.Report
	AlertError string `json:"alertError,omitempty"`
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	report, err := s.runner.Run(r.Context())
	if err != nil && !errors.Is(err, reconcile.ErrAlertDelivery) {
		s.logger.Error().Err(err).Msg("reconciliation run failed")
		writeError(w, http.StatusBadGateway, "reconciliation failed: "+err.Error())
		return
	}

	resp := reconcileResponse{Report: report}
	if err != nil {
		// Analysis finished; only the alert batch write failed. The caller
		// gets the results plus the distinct delivery failure.
		resp.AlertError = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	if s.alerts == nil {
		writeError(w, http.StatusServiceUnavailable, "alert store not configured")
		return
	}

	ownerID := chi.URLParam(r, "ownerID")
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "ownerID is required")
		return
	}

	alerts, err := s.alerts.ListAlertsForOwner(r.Context(), ownerID, s.opts.PageSize)
	if err != nil {
		s.logger.Error().Err(err).Str("owner", ownerID).Msg("failed to list alerts")
		writeError(w, http.StatusInternalServerError, "failed to list alerts")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
