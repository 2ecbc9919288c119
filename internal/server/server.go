// Package server exposes the update checker and the peer resolver over HTTP.
//
// Routes:
//
//	GET  /healthz    cache backend status
//	POST /v1/check   update report for a list of dependencies
//	POST /v1/peers   peer graph and conflicts for a set of manifests
//	GET  /metrics    Prometheus exposition, when a gatherer is configured
//
// Every response carries an X-Request-ID header. A caller-supplied ID is
// echoed; otherwise a random UUID is generated.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/peerguard/pkg/cache"
	"github.com/matzehuels/peerguard/pkg/deps"
	"github.com/matzehuels/peerguard/pkg/errors"
	"github.com/matzehuels/peerguard/pkg/peers"
	"github.com/matzehuels/peerguard/pkg/semver"
	"github.com/matzehuels/peerguard/pkg/update"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// maxBody bounds request bodies.
const maxBody = 1 << 20

const shutdownTimeout = 10 * time.Second

// Options configures a [Server]. Zero values fall back to the engine
// defaults.
type Options struct {
	Policy      semver.Policy // default policy when a request names none
	Concurrency int
	Timeout     time.Duration
	TTL         time.Duration
	Offline     bool // force offline for every request
	Logger      *log.Logger
	// Gatherer backs /metrics. Nil disables the route.
	Gatherer prometheus.Gatherer
}

// Server is an http.Handler serving the peerguard API.
type Server struct {
	registry peers.Registry
	cache    *cache.VersionCache
	opts     Options
	router   chi.Router
}

// New creates a Server. registry may be nil when opts.Offline is set.
func New(registry peers.Registry, vc *cache.VersionCache, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Policy == "" {
		opts.Policy = semver.PolicyMinor
	}
	s := &Server{registry: registry, cache: vc, opts: opts}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/check", s.handleCheck)
		r.Post("/peers", s.handlePeers)
	})
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.opts.Logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type ctxKey int

const requestIDKey ctxKey = 0

// RequestID returns the ID assigned to the request carrying ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.opts.Logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"elapsed", time.Since(start).Round(time.Millisecond),
			"id", RequestID(r.Context()),
		)
	})
}

// =============================================================================
// Handlers
// =============================================================================

type healthResponse struct {
	Status string       `json:"status"`
	Cache  cache.Status `json:"cache"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Cache: s.cache.Status()}
	if resp.Cache.Degraded {
		resp.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, resp)
}

// CheckRequest is the body of POST /v1/check.
type CheckRequest struct {
	Dependencies []deps.Dependency `json:"dependencies"`
	Policy       string            `json:"policy,omitempty"`
	Offline      bool              `json:"offline,omitempty"`
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if !decode(w, r, &req) {
		return
	}
	policy := s.opts.Policy
	if req.Policy != "" {
		p, err := semver.ParsePolicy(req.Policy)
		if err != nil {
			writeError(w, err)
			return
		}
		policy = p
	}
	for _, d := range req.Dependencies {
		if err := errors.ValidatePackageName(d.Name); err != nil {
			writeError(w, err)
			return
		}
	}

	checker := update.NewChecker(s.registry, s.cache, update.Options{
		Policy:      policy,
		Concurrency: s.opts.Concurrency,
		Timeout:     s.opts.Timeout,
		TTL:         s.opts.TTL,
		Offline:     s.opts.Offline || req.Offline,
		Logger:      s.opts.Logger.With("id", RequestID(r.Context())),
	})
	report, err := checker.Check(r.Context(), req.Dependencies)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// PeersRequest is the body of POST /v1/peers.
type PeersRequest struct {
	Manifests []deps.Manifest   `json:"manifests"`
	Overrides map[string]string `json:"overrides,omitempty"`
	Offline   bool              `json:"offline,omitempty"`
}

// PeersResponse is the body returned by POST /v1/peers.
type PeersResponse struct {
	Graph     *peers.Graph     `json:"graph"`
	Conflicts []peers.Conflict `json:"conflicts"`
	Errors    int              `json:"errors"`
	Warnings  int              `json:"warnings"`
}

func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request) {
	var req PeersRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Manifests) == 0 {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "at least one manifest is required"))
		return
	}
	for name := range req.Overrides {
		if err := errors.ValidatePackageName(name); err != nil {
			writeError(w, err)
			return
		}
	}

	builder := peers.NewBuilder(s.registry, s.cache, peers.Options{
		Concurrency: s.opts.Concurrency,
		Timeout:     s.opts.Timeout,
		TTL:         s.opts.TTL,
		Offline:     s.opts.Offline || req.Offline,
		Overrides:   req.Overrides,
		Logger:      s.opts.Logger.With("id", RequestID(r.Context())),
	})
	g, err := builder.Build(r.Context(), req.Manifests)
	if err != nil {
		writeError(w, err)
		return
	}
	conflicts := peers.ResolveContext(r.Context(), g)
	errs, warnings := peers.Count(conflicts)
	writeJSON(w, http.StatusOK, PeersResponse{Graph: g, Conflicts: conflicts, Errors: errs, Warnings: warnings})
}

// =============================================================================
// Encoding
// =============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body"))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, statusFor(code), ErrorResponse{Code: code, Message: errors.UserMessage(err)})
}

// statusFor maps an error code to the HTTP status the API answers with.
func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidPolicy, errors.ErrCodeInvalidPath:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodePackageNotFound:
		return http.StatusNotFound
	case errors.ErrCodeOfflineMiss:
		return http.StatusConflict
	case errors.ErrCodeCacheUnavailable:
		return http.StatusServiceUnavailable
	case errors.ErrCodeRegistry, errors.ErrCodeNetwork, errors.ErrCodeTimeout,
		errors.ErrCodeRateLimited, errors.ErrCodeUnauthorized, errors.ErrCodeForbidden:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
