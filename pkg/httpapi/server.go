// Package httpapi serves a toolbar and its presets over HTTP with chi.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	overrides "github.com/goliatone/go-overrides"
	"github.com/goliatone/go-overrides/internal/hydrate"
	"github.com/goliatone/go-overrides/pkg/logging"
	"github.com/goliatone/go-overrides/pkg/metrics"
	"github.com/goliatone/go-overrides/pkg/presets"
	"github.com/goliatone/go-overrides/pkg/presets/blobsink"
)

// Option configures a Server.
type Option func(*Server)

// WithPresets mounts the /presets routes.
func WithPresets(orchestrator *presets.Orchestrator) Option {
	return func(s *Server) {
		s.presets = orchestrator
	}
}

// WithPublisher mounts the publish and pull routes.
func WithPublisher(publisher *blobsink.Publisher) Option {
	return func(s *Server) {
		s.publisher = publisher
	}
}

// WithMetrics records request metrics and mounts /metrics.
func WithMetrics(collector *metrics.Collector) Option {
	return func(s *Server) {
		s.metrics = collector
	}
}

// WithLogger routes request failures to logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Server) {
		s.logger = logging.OrNop(logger)
	}
}

// WithAllowedOrigins enables CORS for a toolbar panel served from another
// origin. No origins leaves CORS off.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.origins = append([]string(nil), origins...)
	}
}

// Server exposes a Toolbar over HTTP.
type Server struct {
	toolbar   *overrides.Toolbar
	presets   *presets.Orchestrator
	publisher *blobsink.Publisher
	metrics   *metrics.Collector
	logger    logging.Logger
	origins   []string
}

// New builds a server for toolbar.
func New(toolbar *overrides.Toolbar, opts ...Option) *Server {
	s := &Server{toolbar: toolbar, logger: logging.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Recoverer)
	if len(s.origins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}
	if s.metrics != nil {
		router.Use(s.observe)
		router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Get("/openapi.json", s.getOpenAPI)
	router.Get("/gate", s.getGate)
	router.Put("/gate", s.putGate)
	router.Post("/reset", s.reset)

	router.Route("/domains", func(r chi.Router) {
		r.Get("/", s.listDomains)
		r.Route("/{kind}", func(r chi.Router) {
			r.Get("/options", s.getOptions)
			r.Put("/options", s.putOptions)
			r.Get("/values", s.getValues)
			r.Get("/forced", s.getForced)
			r.Get("/state", s.getState)
			r.Put("/state", s.putState)
			r.Post("/overrides", s.postOverride)
			r.Delete("/overrides", s.clearOverrides)
			r.Delete("/overrides/{id}", s.deleteOverride)
		})
	})

	if s.presets != nil {
		router.Route("/presets", func(r chi.Router) {
			r.Get("/", s.listPresets)
			r.Post("/", s.savePreset)
			r.Post("/import", s.importPreset)
			if s.publisher != nil {
				r.Post("/pull", s.pullPresets)
			}
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getPreset)
				r.Patch("/", s.renamePreset)
				r.Delete("/", s.deletePreset)
				r.Put("/capture", s.recapturePreset)
				r.Post("/apply", s.applyPreset)
				r.Get("/export", s.exportPreset)
				if s.publisher != nil {
					r.Post("/publish", s.publishPreset)
				}
			})
		})
	}
	return router
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.ObserveRequest(r.Method, route, status, time.Since(start))
	})
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("httpapi: request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

var errUnknownDomain = errors.New("httpapi: unknown domain")

func statusFor(err error) int {
	switch {
	case errors.Is(err, errUnknownDomain),
		errors.Is(err, presets.ErrPresetNotFound),
		errors.Is(err, blobsink.ErrNotFound):
		return http.StatusNotFound
	case overrides.IsValidationError(err),
		errors.Is(err, presets.ErrEmptyName),
		errors.Is(err, presets.ErrInvalidPreset),
		isDecodeError(err):
		return http.StatusBadRequest
	case errors.Is(err, blobsink.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func isDecodeError(err error) bool {
	var decodeErr *requestError
	return errors.Is(err, hydrate.ErrEmptyBody) || errors.As(err, &decodeErr)
}

// requestError marks failures caused by the request body.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }
