// Package server exposes the fund workflow over an HTTP JSON API with an
// SSE event stream.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/oafund/internal/auth"
	"github.com/theirongolddev/oafund/internal/fund"
)

// Config controls the server runtime behavior.
type Config struct {
	Addr           string
	UploadDir      string
	MaxUploadBytes int64
	RateLimit      float64
	RateBurst      int
	HistoryLimit   int
	DBPath         string
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	UptimeSec       int64     `json:"uptime_sec"`
	Addr            string    `json:"addr"`
	DBPath          string    `json:"db_path,omitempty"`
	UploadDir       string    `json:"upload_dir"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Server serves the API for one fund service.
type Server struct {
	cfg       Config
	fund      *fund.Service
	hub       *Hub
	tokens    *auth.Issuer
	log       logrus.FieldLogger
	metrics   *httpMetrics
	limiter   *rateLimiter
	startedAt time.Time
}

// New returns a Server. hub must be the EventSink the service publishes to.
func New(cfg Config, svc *fund.Service, hub *Hub, tokens *auth.Issuer, log logrus.FieldLogger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8080"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 25 << 20
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}
	if hub == nil {
		hub = NewHub(0)
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Server{
		cfg:       cfg,
		fund:      svc,
		hub:       hub,
		tokens:    tokens,
		log:       log.WithField("component", "server"),
		metrics:   newHTTPMetrics(hub.collectors()...),
		limiter:   newRateLimiter(cfg.RateLimit, cfg.RateBurst),
		startedAt: time.Now(),
	}
}

// Handler returns the routed and instrumented API.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logging, s.metrics.middleware)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	public := r.NewRoute().Subrouter()
	public.Use(s.rateLimit)
	public.HandleFunc("/v1/login", s.handleLogin).Methods(http.MethodPost)
	public.HandleFunc("/v1/requests", s.handleSubmit).Methods(http.MethodPost)
	public.HandleFunc("/v1/urls", s.handleAddURL).Methods(http.MethodPost)
	public.HandleFunc("/v1/files", s.handleUpload).Methods(http.MethodPost)

	staff := r.NewRoute().Subrouter()
	staff.Use(s.requireAuth)
	staff.HandleFunc("/v1/requests", s.handleListRequests).Methods(http.MethodGet)
	staff.HandleFunc("/v1/requests/{ts}", s.handleGetRequest).Methods(http.MethodGet)
	staff.HandleFunc("/v1/requests/{ts}", s.handlePatchRequest).Methods(http.MethodPatch)
	staff.HandleFunc("/v1/requests/{ts}/{action}", s.handleTransition).Methods(http.MethodPut)
	staff.HandleFunc("/v1/budget", s.handleBudget).Methods(http.MethodGet)
	staff.HandleFunc("/v1/budget/history", s.handleBudgetHistory).Methods(http.MethodGet)
	staff.HandleFunc("/v1/budget/{which}", s.handleBudgetChange).Methods(http.MethodPost)
	staff.HandleFunc("/v1/summary", s.handleSummary).Methods(http.MethodGet)
	staff.HandleFunc("/v1/urls", s.handleListURLs).Methods(http.MethodGet)
	staff.HandleFunc("/v1/files", s.handleListFiles).Methods(http.MethodGet)
	staff.HandleFunc("/files/{name}", s.handleServeFile).Methods(http.MethodGet)
	staff.HandleFunc("/v1/status", s.handleStatus).Methods(http.MethodGet)
	staff.HandleFunc("/v1/events", s.handleEvents).Methods(http.MethodGet)
	staff.HandleFunc("/v1/stream", s.handleStream).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// Run serves until ctx is canceled, then shuts down gracefully. Open
// event streams end with ctx.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.log.WithField("addr", s.cfg.Addr).Info("listening")

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.log.Info("shutting down")
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.limiter.sweep(10 * time.Minute)
		case err := <-errCh:
			return fmt.Errorf("http server: %w", err)
		}
	}
}

func (s *Server) status() Status {
	events, subs := s.hub.Counts()
	return Status{
		StartedAt:       s.startedAt,
		UptimeSec:       int64(time.Since(s.startedAt).Seconds()),
		Addr:            s.cfg.Addr,
		DBPath:          s.cfg.DBPath,
		UploadDir:       s.cfg.UploadDir,
		EventCount:      events,
		SubscriberCount: subs,
	}
}
