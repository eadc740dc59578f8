// Package api exposes the scheduling operations over HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"bookline/internal/service"
	"bookline/internal/store"
	"bookline/internal/timegrid"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// HTTPServer serves the scheduling API.
type HTTPServer struct {
	scheduling *service.Scheduling
	reports    Reporter
	server     *http.Server
	log        *zerolog.Logger
	apiKey     string
	limiter    *ipLimiter
}

// Reporter renders booking exports. Nil disables the reports endpoint.
type Reporter interface {
	BookingsXLSX(ctx context.Context, locationID int64, from, to string) (*bytes.Buffer, error)
}

// NewHTTPServer builds the server with all routes registered. apiKey guards
// admin endpoints; an empty key disables the guard.
func NewHTTPServer(scheduling *service.Scheduling, reports Reporter, port string, apiKey string, rps float64, burst int, log *zerolog.Logger) *HTTPServer {
	s := &HTTPServer{
		scheduling: scheduling,
		reports:    reports,
		log:        log,
		apiKey:     apiKey,
		limiter:    newIPLimiter(rps, burst),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/slots/provision", s.adminOnly(s.handleProvision))
	mux.HandleFunc("/api/v1/slots/block", s.adminOnly(s.handleBlock))
	mux.HandleFunc("/api/v1/slots/unblock", s.adminOnly(s.handleUnblock))
	mux.HandleFunc("/api/v1/book", s.rateLimited(s.handleBook))
	mux.HandleFunc("/api/v1/availability", s.handleAvailability)
	mux.HandleFunc("/api/v1/working-hours", s.adminOnly(s.handleWorkingHours))
	mux.HandleFunc("/api/v1/reports/bookings", s.adminOnly(s.handleBookingsReport))

	s.server = &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start blocks serving HTTP until the listener fails or Shutdown runs.
func (s *HTTPServer) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// adminOnly requires the X-API-Key header to match the configured key.
func (s *HTTPServer) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" && r.Header.Get("X-API-Key") != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next(w, r)
	}
}

// rateLimited throttles per client IP.
func (s *HTTPServer) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.allow(clientIP(r)) {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next(w, r)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ipLimiter keeps one token bucket per client IP.
type ipLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// newIPLimiter returns nil when rps is zero or negative, disabling limiting.
func newIPLimiter(rps float64, burst int) *ipLimiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &ipLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[ip]
	if !ok {
		lim = rate.NewLimiter(l.rps, l.burst)
		l.limiters[ip] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps service and store errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, timegrid.ErrInvalidConfig):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrSlotUnavailable),
		errors.Is(err, store.ErrSlotNotAvailable),
		errors.Is(err, store.ErrSlotNotBlocked):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
