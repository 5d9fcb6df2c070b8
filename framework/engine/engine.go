package engine

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"devblog/framework"
	"devblog/internal/dispatch"
	"devblog/internal/navigation"
	"github.com/a-h/templ"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultPageSelectorID = "page"
const tracerName = "devblog/engine"

type Dispatcher interface {
	Select(path string) dispatch.Selection
	Wrap(child templ.Component) templ.Component
	NotFoundPage(path string) templ.Component
}

type Config struct {
	Root Dispatcher

	RenderPage func(r *http.Request, w http.ResponseWriter, component templ.Component, statusCode int) error
	PatchLive  func(w http.ResponseWriter, r *http.Request, selectorID string, component templ.Component) error

	IsPartialRequest func(r *http.Request) bool
	IsLiveRequest    func(r *http.Request) bool
	IsNotFoundError  func(err error) bool

	OnNotFound        func(r *http.Request, notFoundContext framework.NotFoundContext)
	HandleServerError func(w http.ResponseWriter, err error)
	Observe           func(r *http.Request, outcome framework.Outcome, elapsed time.Duration)

	PageSelectorID string
	Tracer         trace.Tracer
}

type Engine struct {
	root Dispatcher

	renderPage func(r *http.Request, w http.ResponseWriter, component templ.Component, statusCode int) error
	patchLive  func(w http.ResponseWriter, r *http.Request, selectorID string, component templ.Component) error

	isPartial   func(r *http.Request) bool
	isLive      func(r *http.Request) bool
	isNotFound  func(err error) bool
	onNotFound  func(r *http.Request, notFoundContext framework.NotFoundContext)
	serverError func(w http.ResponseWriter, err error)
	observe     func(r *http.Request, outcome framework.Outcome, elapsed time.Duration)

	selectorID string
	tracer     trace.Tracer
}

func New(cfg Config) (*Engine, error) {
	if cfg.Root == nil {
		return nil, errors.New("root dispatcher is required")
	}
	if cfg.RenderPage == nil {
		return nil, errors.New("render page callback is required")
	}

	isPartial := cfg.IsPartialRequest
	if isPartial == nil {
		isPartial = func(*http.Request) bool { return false }
	}

	isLive := cfg.IsLiveRequest
	if isLive == nil || cfg.PatchLive == nil {
		isLive = func(*http.Request) bool { return false }
	}

	isNotFound := cfg.IsNotFoundError
	if isNotFound == nil {
		isNotFound = func(error) bool { return false }
	}

	onNotFound := cfg.OnNotFound
	if onNotFound == nil {
		onNotFound = func(*http.Request, framework.NotFoundContext) {}
	}

	serverError := cfg.HandleServerError
	if serverError == nil {
		serverError = func(w http.ResponseWriter, _ error) {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}

	observe := cfg.Observe
	if observe == nil {
		observe = func(*http.Request, framework.Outcome, time.Duration) {}
	}

	selectorID := strings.TrimSpace(cfg.PageSelectorID)
	if selectorID == "" {
		selectorID = defaultPageSelectorID
	}

	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	return &Engine{
		root:        cfg.Root,
		renderPage:  cfg.RenderPage,
		patchLive:   cfg.PatchLive,
		isPartial:   isPartial,
		isLive:      isLive,
		isNotFound:  isNotFound,
		onNotFound:  onNotFound,
		serverError: serverError,
		observe:     observe,
		selectorID:  selectorID,
		tracer:      tracer,
	}, nil
}

// ServeRoute answers one navigation. Every path is served: unmatched paths
// and pages reporting a missing resource get the not-found view.
func (engine *Engine) ServeRoute(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	ctx, span := engine.tracer.Start(r.Context(), "dispatch", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()
	r = r.WithContext(ctx)

	path := navigation.RequestLocation(r).CurrentPath()
	selection := engine.root.Select(path)
	mode := engine.modeFor(r)
	outcome := framework.Outcome{Route: string(selection.Kind()), Mode: mode}
	span.SetAttributes(
		attribute.String("route.kind", outcome.Route),
		attribute.String("route.mode", string(mode)),
		attribute.String("url.path", path),
	)

	defer func() {
		span.SetAttributes(attribute.Int("http.response.status_code", outcome.Status))
		engine.observe(r, outcome, time.Since(started))
	}()

	if !selection.Found {
		outcome.Status = engine.respondNotFound(w, r, mode, framework.NotFoundContext{
			RequestPath: path,
			Source:      framework.NotFoundSourceUnmatchedRoute,
		})
		return
	}

	body, err := engine.renderToBuffer(r, engine.shape(mode, selection.Page))
	if err != nil {
		if engine.isNotFound(err) {
			outcome.Status = engine.respondNotFound(w, r, mode, framework.NotFoundContext{
				RequestPath:  path,
				MatchedRoute: outcome.Route,
				Source:       framework.NotFoundSourcePageLoad,
			})
			return
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		outcome.Status = http.StatusInternalServerError
		engine.serverError(w, fmt.Errorf("render route %q: %w", outcome.Route, err))
		return
	}

	outcome.Status = engine.write(w, r, mode, body, 0)
}

func (engine *Engine) modeFor(r *http.Request) framework.RenderMode {
	if engine.isLive(r) {
		return framework.RenderModeLive
	}
	if engine.isPartial(r) {
		return framework.RenderModePartial
	}
	return framework.RenderModeFull
}

func (engine *Engine) shape(mode framework.RenderMode, page templ.Component) templ.Component {
	if mode == framework.RenderModeFull {
		return engine.root.Wrap(page)
	}
	return page
}

func (engine *Engine) respondNotFound(
	w http.ResponseWriter,
	r *http.Request,
	mode framework.RenderMode,
	notFoundContext framework.NotFoundContext,
) int {
	engine.onNotFound(r, notFoundContext)

	view := engine.shape(mode, engine.root.NotFoundPage(notFoundContext.RequestPath))
	body, err := engine.renderToBuffer(r, view)
	if err != nil {
		engine.serverError(w, fmt.Errorf("render not found page: %w", err))
		return http.StatusInternalServerError
	}

	return engine.write(w, r, mode, body, http.StatusNotFound)
}

// write sends body and reports the navigation status. A live patch always
// goes out as a 200 event stream; the reported status still carries the
// page outcome, so a not-found patch reports 404.
func (engine *Engine) write(
	w http.ResponseWriter,
	r *http.Request,
	mode framework.RenderMode,
	body []byte,
	statusCode int,
) int {
	component := templ.Raw(string(body))

	if mode == framework.RenderModeLive {
		if err := engine.patchLive(w, r, engine.selectorID, component); err != nil {
			engine.serverError(w, fmt.Errorf("patch live page: %w", err))
			return http.StatusInternalServerError
		}
		return framework.StatusOrOK(statusCode)
	}

	if err := engine.renderPage(r, w, component, statusCode); err != nil {
		engine.serverError(w, fmt.Errorf("write page: %w", err))
		return http.StatusInternalServerError
	}
	return framework.StatusOrOK(statusCode)
}

func (engine *Engine) renderToBuffer(r *http.Request, component templ.Component) ([]byte, error) {
	var buffer bytes.Buffer
	if err := component.Render(r.Context(), &buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
