package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/theirongolddev/oafund/internal/auth"
)

type ctxKey struct{}

// TraceIDHeader carries the request trace id in and out.
const TraceIDHeader = "X-Trace-ID"

// requestInfo is shared by the middleware chain so the outer logger sees
// the user the inner auth check resolved.
type requestInfo struct {
	traceID string
	user    string
}

func infoFrom(ctx context.Context) *requestInfo {
	info, _ := ctx.Value(ctxKey{}).(*requestInfo)
	return info
}

func withInfo(r *http.Request) (*http.Request, *requestInfo) {
	if info := infoFrom(r.Context()); info != nil {
		return r, info
	}
	info := &requestInfo{}
	return r.WithContext(context.WithValue(r.Context(), ctxKey{}, info)), info
}

func traceID(ctx context.Context) string {
	if info := infoFrom(ctx); info != nil {
		return info.traceID
	}
	return ""
}

func subject(ctx context.Context) string {
	if info := infoFrom(ctx); info != nil {
		return info.user
	}
	return ""
}

// statusRecorder captures the response status for logs and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE working through the wrapper.
func (w *statusRecorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// logging assigns a trace id and logs each request once it completes.
func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get(TraceIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(TraceIDHeader, id)
		r, info := withInfo(r)
		info.traceID = id

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		entry := s.log.WithFields(logrus.Fields{
			"trace_id": id,
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).Round(time.Microsecond).String(),
		})
		if info.user != "" {
			entry = entry.WithField("user", info.user)
		}
		switch {
		case rec.status >= 500:
			entry.Error("request failed")
		case rec.status >= 400:
			entry.Warn("request rejected")
		default:
			entry.Info("request")
		}
	})
}

// httpMetrics holds the HTTP collectors of one server.
type httpMetrics struct {
	registry *prometheus.Registry
	inFlight prometheus.Gauge
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newHTTPMetrics(extra ...prometheus.Collector) *httpMetrics {
	m := &httpMetrics{
		registry: prometheus.NewRegistry(),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "oafund",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oafund",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "oafund",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"method", "route"}),
	}
	m.registry.MustRegister(
		m.inFlight, m.requests, m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.registry.MustRegister(extra...)
	return m
}

func (m *httpMetrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := routeTemplate(r)
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// rateLimiter keeps one token bucket per client address.
type rateLimiter struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	clients map[string]*client
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newRateLimiter(perSecond float64, burst int) *rateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &rateLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		clients: make(map[string]*client),
	}
}

func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	c, ok := rl.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = time.Now()
	rl.mu.Unlock()
	return c.limiter.Allow()
}

// sweep drops clients idle for longer than idle.
func (rl *rateLimiter) sweep(idle time.Duration) {
	cutoff := time.Now().Add(-idle)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for k, c := range rl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(rl.clients, k)
		}
	}
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter.limit <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		key := clientIP(r)
		if !s.limiter.allow(key) {
			w.Header().Set("Retry-After", "1")
			writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// requireAuth rejects requests without a valid staff token. EventSource
// clients cannot set headers, so a token query parameter is also accepted.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := bearerToken(r)
		if tok == "" {
			writeJSONError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := s.tokens.Parse(tok)
		if err != nil {
			s.log.WithError(err).WithField("trace_id", traceID(r.Context())).Debug("token rejected")
			writeJSONError(w, http.StatusUnauthorized, auth.ErrInvalidToken.Error())
			return
		}
		r, info := withInfo(r)
		info.user = claims.Subject
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}
