// Package xrpc exposes the gazetteer over a namespaced XRPC method space:
// query methods addressed by NSID under /xrpc/{method}.
package xrpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/gazetteer/internal/config"
	"github.com/sells-group/gazetteer/internal/gazetteer"
)

// Registered method NSIDs.
const (
	MethodSearchRecords = "info.schuyler.locations.searchRecords"
	MethodNearest       = "info.schuyler.locations.nearest"
	MethodGetRecord     = "com.atproto.repo.getRecord"
)

// methodFunc decodes string-typed query parameters, runs the operation and
// returns the HTTP status plus the response body.
type methodFunc func(ctx context.Context, params url.Values) (int, any)

// Server dispatches XRPC calls to the registry. It holds no per-request
// state: handlers are pure dispatch, timing and response shaping.
type Server struct {
	registry *gazetteer.Registry
	query    config.QueryConfig
	limiter  *rate.Limiter
	methods  map[string]methodFunc
}

// NewServer wires the method table for a registry.
func NewServer(registry *gazetteer.Registry, queryCfg config.QueryConfig, serverCfg config.ServerConfig) *Server {
	s := &Server{
		registry: registry,
		query:    queryCfg,
		limiter:  rate.NewLimiter(rate.Limit(serverCfg.RateLimit), serverCfg.RateBurst),
	}
	s.methods = map[string]methodFunc{
		MethodSearchRecords: s.searchRecords,
		MethodNearest:       s.searchRecords,
		MethodGetRecord:     s.getRecord,
	}
	return s
}

// Router mounts the XRPC method space and health endpoint.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	}))
	r.Use(s.rateLimit)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/xrpc/{method}", s.dispatch)
	return r
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	method := chi.URLParam(r, "method")
	fn, ok := s.methods[method]
	if !ok {
		writeJSON(w, http.StatusNotImplemented, xrpcError{
			Error:   "MethodNotImplemented",
			Message: "unknown method " + method,
		})
		return
	}
	status, body := fn(r.Context(), r.URL.Query())
	writeJSON(w, status, body)
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeJSON(w, http.StatusTooManyRequests, xrpcError{
				Error:   "RateLimitExceeded",
				Message: "request rate limit exceeded",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		zap.L().Info("xrpc request",
			zap.String("request_id", id),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// xrpcError is the protocol-level failure body.
type xrpcError struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Error("xrpc: encode response", zap.Error(err))
	}
}
