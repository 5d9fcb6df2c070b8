package httpserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"devblog/framework"
	"devblog/framework/engine"
	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/starfederation/datastar-go/datastar"
)

const defaultCacheControlPolicy = "public, max-age=3600, s-maxage=3600"
const defaultHealthPath = "/healthz"
const defaultHealthBody = "ok"
const defaultMetricsPath = "/metrics"
const defaultStaticPrefix = "/.devblog/"
const liveNavigationMarkerKey = "__live"
const liveNavigationMarkerValue = "navigation"
const partialRequestHeader = "HX-Request"
const liveRequestHeader = "Datastar-Request"

type StaticMount struct {
	URLPrefix string
	Dir       string
}

type CachePolicies struct {
	HTML           string
	Live           string
	LiveNavigation string
	Static         string
	Health         string
	Error          string
}

func DefaultCachePolicies() CachePolicies {
	return CachePolicies{
		HTML:   defaultCacheControlPolicy,
		Live:   defaultCacheControlPolicy,
		Static: defaultCacheControlPolicy,
		Health: defaultCacheControlPolicy,
		Error:  defaultCacheControlPolicy,
	}
}

type Config struct {
	Root engine.Dispatcher

	Static StaticMount

	CachePolicies CachePolicies

	IsNotFoundError func(err error) bool
	Logger          *slog.Logger

	HealthPath  string
	HealthBody  string
	MetricsPath string

	// Registry receives the navigation metrics. A private registry is
	// created when nil.
	Registry *prometheus.Registry
}

type server struct {
	cachePolicies CachePolicies
	logger        *slog.Logger
	metrics       *metrics

	routeEngine *engine.Engine
}

func New(cfg Config) (http.Handler, error) {
	cachePolicies := withDefaultPolicies(cfg.CachePolicies)
	healthPath := normalizePath(cfg.HealthPath, defaultHealthPath)
	metricsPath := normalizePath(cfg.MetricsPath, defaultMetricsPath)
	healthBody := strings.TrimSpace(cfg.HealthBody)
	if healthBody == "" {
		healthBody = defaultHealthBody
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	srv := &server{
		cachePolicies: cachePolicies,
		logger:        logger,
		metrics:       newMetrics(registry),
	}

	routeEngine, err := engine.New(engine.Config{
		Root:              cfg.Root,
		RenderPage:        srv.renderPage,
		PatchLive:         srv.patchLive,
		IsPartialRequest:  isPartialRequest,
		IsLiveRequest:     isLiveRequest,
		IsNotFoundError:   cfg.IsNotFoundError,
		OnNotFound:        srv.onNotFound,
		HandleServerError: srv.handleServerError,
		Observe:           srv.observe,
	})
	if err != nil {
		return nil, fmt.Errorf("create route engine: %w", err)
	}
	srv.routeEngine = routeEngine

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.GetHead)

	router.Get(healthPath, func(w http.ResponseWriter, _ *http.Request) {
		setCachePolicy(w, cachePolicies.Health)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(healthBody))
	})
	router.Handle(metricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	if strings.TrimSpace(cfg.Static.Dir) != "" {
		prefix := normalizeStaticPrefix(cfg.Static.URLPrefix)
		fs := http.FileServer(http.Dir(cfg.Static.Dir))
		router.Handle(prefix+"*", withCachePolicy(cachePolicies.Static, http.StripPrefix(prefix, fs)))
	}

	router.Get("/*", srv.routeEngine.ServeRoute)
	return router, nil
}

func (s *server) renderPage(
	r *http.Request,
	w http.ResponseWriter,
	component templ.Component,
	statusCode int,
) error {
	policy := s.cachePolicies.HTML
	if isPartialRequest(r) {
		policy = s.liveCachePolicyFor(r)
	}
	if statusCode >= http.StatusBadRequest {
		policy = s.cachePolicies.Error
	}

	setCachePolicy(w, policy)
	w.Header().Add("Vary", partialRequestHeader)
	w.Header().Add("Vary", liveRequestHeader)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if statusCode > 0 {
		w.WriteHeader(statusCode)
	}
	return component.Render(r.Context(), w)
}

func (s *server) patchLive(
	w http.ResponseWriter,
	r *http.Request,
	selectorID string,
	component templ.Component,
) error {
	setCachePolicy(w, s.liveCachePolicyFor(r))
	sse := datastar.NewSSE(w, r)
	return sse.PatchElementTempl(component, datastar.WithSelectorID(selectorID), datastar.WithModeInner())
}

func (s *server) liveCachePolicyFor(r *http.Request) string {
	if r != nil &&
		strings.TrimSpace(r.URL.Query().Get(liveNavigationMarkerKey)) == liveNavigationMarkerValue &&
		strings.TrimSpace(s.cachePolicies.LiveNavigation) != "" {
		return s.cachePolicies.LiveNavigation
	}

	return s.cachePolicies.Live
}

func (s *server) onNotFound(r *http.Request, notFoundContext framework.NotFoundContext) {
	s.metrics.notFound(notFoundContext.Source)
	s.logger.DebugContext(r.Context(), "route not found",
		slog.String("path", notFoundContext.RequestPath),
		slog.String("source", string(notFoundContext.Source)),
		slog.String("matched_route", notFoundContext.MatchedRoute),
	)
}

func (s *server) observe(_ *http.Request, outcome framework.Outcome, elapsed time.Duration) {
	s.metrics.observe(outcome, elapsed)
}

func (s *server) handleServerError(w http.ResponseWriter, err error) {
	setCachePolicy(w, s.cachePolicies.Error)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	s.logger.Error("server error", slog.Any("error", err))
}

func isPartialRequest(r *http.Request) bool {
	return strings.EqualFold(strings.TrimSpace(r.Header.Get(partialRequestHeader)), "true")
}

func isLiveRequest(r *http.Request) bool {
	return strings.EqualFold(strings.TrimSpace(r.Header.Get(liveRequestHeader)), "true")
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.InfoContext(r.Context(), "request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", framework.StatusOrOK(ww.Status())),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("elapsed", time.Since(started)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

func normalizeStaticPrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return defaultStaticPrefix
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}

func normalizePath(path string, fallback string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return fallback
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

func withDefaultPolicies(policies CachePolicies) CachePolicies {
	defaults := DefaultCachePolicies()
	if strings.TrimSpace(policies.HTML) == "" {
		policies.HTML = defaults.HTML
	}
	if strings.TrimSpace(policies.Live) == "" {
		policies.Live = defaults.Live
	}
	if strings.TrimSpace(policies.Static) == "" {
		policies.Static = defaults.Static
	}
	if strings.TrimSpace(policies.Health) == "" {
		policies.Health = defaults.Health
	}
	if strings.TrimSpace(policies.Error) == "" {
		policies.Error = defaults.Error
	}
	return policies
}

func setCachePolicy(w http.ResponseWriter, policy string) {
	policy = strings.TrimSpace(policy)
	if policy == "" {
		return
	}
	w.Header().Set("Cache-Control", policy)
}

func withCachePolicy(policy string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCachePolicy(w, policy)
		next.ServeHTTP(w, r)
	})
}
