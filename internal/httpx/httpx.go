// Package httpx contains the HTTP delivery layer (net/http handlers) for the
// tracerd service. It maps the three protocol endpoints onto the application
// service while enforcing body limits, security headers, and error
// translation. Handlers are split across files (submit.go, fetch.go,
// check.go, health.go, errors.go).
package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/covtrace/tracerd/internal/domain"
)

// ServicePort abstracts the subset of app.Service used by the HTTP layer.
// It is satisfied by *app.Service in production and mocked in tests.
type ServicePort interface {
	Submit(ctx context.Context, code domain.ContactCode) (bool, error)
	Fetch(ctx context.Context, ts time.Time) ([]domain.ContactCode, error)
	Check(ctx context.Context, observed map[domain.BroadcastID]struct{}) (bool, error)
}

// Recorder abstracts the metrics manager so handlers can count without
// depending on its lifecycle. Nil disables recording.
type Recorder interface {
	Inc(name string, delta int64)
	Observe(name string, value int64)
}

// defaultMaxBody bounds request bodies when the caller does not set one.
// Check requests dominate: thousands of 22-character identifiers plus JSON
// framing still fit comfortably under a mebibyte.
const defaultMaxBody = 1 << 20

// Handler wires HTTP endpoints to the application service.
// It is safe for concurrent use. Zero-value is not valid; construct via New.
type Handler struct {
	Service        ServicePort
	Metrics        Recorder                    // optional counters/summaries
	MaxBody        int64                       // request body cap (0 => defaultMaxBody)
	MaxContacts    int                         // max identifiers per check request (0 = unlimited)
	Readiness      func(context.Context) error // optional readiness probe
	MetricsHandler http.Handler                // optional snapshot endpoint mounted at /metrics
}

// New returns a configured Handler.
func New(svc ServicePort, maxBody int64, readiness func(context.Context) error) *Handler {
	return &Handler{Service: svc, MaxBody: maxBody, Readiness: readiness}
}

// Router constructs an http.Handler with all routes mounted and the
// correlation-ID and security-header middleware applied.
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/submit", h.handleSubmit)
	mux.HandleFunc("/fetch/", h.handleFetch) // expect /fetch/{unix_ts}
	mux.HandleFunc("/check", h.handleCheck)
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/readyz", h.handleReady)
	if h.MetricsHandler != nil {
		mux.Handle("/metrics", h.MetricsHandler)
	}
	return CorrelationIDMiddleware(h.secureHeaders(mux))
}

// secureHeaders middleware adds standard security & cache control headers.
// The API serves no markup, so the CSP denies everything.
func (h *Handler) secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; base-uri 'none'")
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) maxBody() int64 {
	if h.MaxBody > 0 {
		return h.MaxBody
	}
	return defaultMaxBody
}

func (h *Handler) inc(name string) {
	if h.Metrics != nil {
		h.Metrics.Inc(name, 1)
	}
}

func (h *Handler) observe(name string, v int64) {
	if h.Metrics != nil {
		h.Metrics.Observe(name, v)
	}
}
