package engine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"devblog/framework"
	"devblog/internal/dispatch"
	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var (
	errNotFound = errors.New("not found")
	errBoom     = errors.New("boom")
)

func textComponent(value string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, value)
		return err
	})
}

func failingComponent(err error) templ.Component {
	return templ.ComponentFunc(func(context.Context, io.Writer) error {
		return err
	})
}

func wrapComponent(tag string, child templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "["+tag+"]"); err != nil {
			return err
		}
		if err := child.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "[/"+tag+"]")
		return err
	})
}

type testPages struct{}

func (testPages) Home() templ.Component        { return textComponent("home") }
func (testPages) ArticleList() templ.Component { return textComponent("list") }
func (testPages) ArticleDetail(id string) templ.Component {
	switch id {
	case "missing":
		return failingComponent(errNotFound)
	case "boom":
		return failingComponent(errBoom)
	default:
		return textComponent("article:" + id)
	}
}
func (testPages) NotFound(path string) templ.Component { return textComponent("missing:" + path) }

type rendered struct {
	body   string
	status int
}

func newTestEngine(t *testing.T, mutate func(cfg *Config)) (*Engine, *rendered) {
	t.Helper()

	root, err := dispatch.New(testPages{}, func(child templ.Component) templ.Component {
		return wrapComponent("layout", child)
	})
	require.NoError(t, err)

	out := &rendered{}
	cfg := Config{
		Root: root,
		RenderPage: func(_ *http.Request, _ http.ResponseWriter, component templ.Component, statusCode int) error {
			var b bytes.Buffer
			if err := component.Render(context.Background(), &b); err != nil {
				return err
			}
			out.body = b.String()
			out.status = framework.StatusOrOK(statusCode)
			return nil
		},
		IsNotFoundError: func(err error) bool { return errors.Is(err, errNotFound) },
	}
	if mutate != nil {
		mutate(&cfg)
	}

	routeEngine, err := New(cfg)
	require.NoError(t, err)
	return routeEngine, out
}

func serve(routeEngine *Engine, path string) {
	routeEngine.ServeRoute(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
}

func TestNewRequiresRootAndRenderer(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)

	root, err := dispatch.New(testPages{})
	require.NoError(t, err)
	_, err = New(Config{Root: root})
	require.Error(t, err)
}

func TestServeRouteWrapsPageInLayout(t *testing.T) {
	routeEngine, out := newTestEngine(t, nil)

	serve(routeEngine, "/articles/42")
	assert.Equal(t, "[layout]article:42[/layout]", out.body)
	assert.Equal(t, http.StatusOK, out.status)
}

func TestServeRouteSkipsLayoutsForPartialRequests(t *testing.T) {
	routeEngine, out := newTestEngine(t, func(cfg *Config) {
		cfg.IsPartialRequest = func(*http.Request) bool { return true }
	})

	serve(routeEngine, "/articles")
	assert.Equal(t, "list", out.body)

	serve(routeEngine, "/missing")
	assert.Equal(t, "missing:/missing", out.body)
	assert.Equal(t, http.StatusNotFound, out.status)
}

func TestUnmatchedRouteRendersFallback(t *testing.T) {
	var contexts []framework.NotFoundContext
	var outcomes []framework.Outcome
	routeEngine, out := newTestEngine(t, func(cfg *Config) {
		cfg.OnNotFound = func(_ *http.Request, ctx framework.NotFoundContext) {
			contexts = append(contexts, ctx)
		}
		cfg.Observe = func(_ *http.Request, outcome framework.Outcome, _ time.Duration) {
			outcomes = append(outcomes, outcome)
		}
	})

	serve(routeEngine, "/nonexistent")
	first := out.body
	serve(routeEngine, "/nonexistent")

	assert.Equal(t, "[layout]missing:/nonexistent[/layout]", first)
	assert.Equal(t, first, out.body)
	assert.Equal(t, http.StatusNotFound, out.status)
	require.Len(t, contexts, 2)
	assert.Equal(t, framework.NotFoundSourceUnmatchedRoute, contexts[0].Source)
	assert.Equal(t, "/nonexistent", contexts[0].RequestPath)
	require.Len(t, outcomes, 2)
	assert.Equal(t, framework.Outcome{Route: "not_found", Mode: framework.RenderModeFull, Status: http.StatusNotFound}, outcomes[0])
}

func TestNotFoundAndServerErrorClassification(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		var notFoundContext framework.NotFoundContext
		serverErrorCalled := false
		routeEngine, out := newTestEngine(t, func(cfg *Config) {
			cfg.OnNotFound = func(_ *http.Request, ctx framework.NotFoundContext) {
				notFoundContext = ctx
			}
			cfg.HandleServerError = func(http.ResponseWriter, error) { serverErrorCalled = true }
		})

		serve(routeEngine, "/articles/missing")

		assert.False(t, serverErrorCalled)
		assert.Equal(t, framework.NotFoundSourcePageLoad, notFoundContext.Source)
		assert.Equal(t, "article_detail", notFoundContext.MatchedRoute)
		assert.Equal(t, "/articles/missing", notFoundContext.RequestPath)
		assert.Equal(t, "[layout]missing:/articles/missing[/layout]", out.body)
		assert.Equal(t, http.StatusNotFound, out.status)
	})

	t.Run("server error", func(t *testing.T) {
		var serverErr error
		notFoundCalled := false
		routeEngine, _ := newTestEngine(t, func(cfg *Config) {
			cfg.OnNotFound = func(*http.Request, framework.NotFoundContext) { notFoundCalled = true }
			cfg.HandleServerError = func(_ http.ResponseWriter, err error) { serverErr = err }
		})

		serve(routeEngine, "/articles/boom")

		assert.False(t, notFoundCalled)
		require.Error(t, serverErr)
		assert.ErrorIs(t, serverErr, errBoom)
	})
}

func TestLiveRequestsPatchPageSlot(t *testing.T) {
	var selector string
	var patched string
	routeEngine, out := newTestEngine(t, func(cfg *Config) {
		cfg.IsLiveRequest = func(r *http.Request) bool { return r.Header.Get("Datastar-Request") == "true" }
		cfg.PatchLive = func(_ http.ResponseWriter, _ *http.Request, selectorID string, component templ.Component) error {
			var b bytes.Buffer
			if err := component.Render(context.Background(), &b); err != nil {
				return err
			}
			selector = selectorID
			patched = b.String()
			return nil
		}
	})

	req := httptest.NewRequest(http.MethodGet, "/articles/5", nil)
	req.Header.Set("Datastar-Request", "true")
	routeEngine.ServeRoute(httptest.NewRecorder(), req)

	assert.Equal(t, "page", selector)
	assert.Equal(t, "article:5", patched)
	assert.Empty(t, out.body)
}

func TestLiveRequestsIgnoredWithoutPatcher(t *testing.T) {
	routeEngine, out := newTestEngine(t, func(cfg *Config) {
		cfg.IsLiveRequest = func(*http.Request) bool { return true }
	})

	serve(routeEngine, "/")
	assert.Equal(t, "[layout]home[/layout]", out.body)
}

func TestLiveNotFoundReportsNotFoundStatus(t *testing.T) {
	var outcomes []framework.Outcome
	routeEngine, _ := newTestEngine(t, func(cfg *Config) {
		cfg.IsLiveRequest = func(*http.Request) bool { return true }
		cfg.PatchLive = func(http.ResponseWriter, *http.Request, string, templ.Component) error { return nil }
		cfg.Observe = func(_ *http.Request, outcome framework.Outcome, _ time.Duration) {
			outcomes = append(outcomes, outcome)
		}
	})

	serve(routeEngine, "/articles/missing")
	serve(routeEngine, "/nope")
	serve(routeEngine, "/articles")

	require.Len(t, outcomes, 3)
	assert.Equal(t, framework.Outcome{Route: "article_detail", Mode: framework.RenderModeLive, Status: http.StatusNotFound}, outcomes[0])
	assert.Equal(t, framework.Outcome{Route: "not_found", Mode: framework.RenderModeLive, Status: http.StatusNotFound}, outcomes[1])
	assert.Equal(t, framework.Outcome{Route: "article_list", Mode: framework.RenderModeLive, Status: http.StatusOK}, outcomes[2])
}

func spanAttributes(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestServeRouteRecordsSpan(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		kind       string
		status     int64
		spanStatus codes.Code
	}{
		{name: "matched", path: "/articles/42", kind: "article_detail", status: http.StatusOK, spanStatus: codes.Unset},
		{name: "unmatched", path: "/nope", kind: "not_found", status: http.StatusNotFound, spanStatus: codes.Unset},
		{name: "page not found", path: "/articles/missing", kind: "article_detail", status: http.StatusNotFound, spanStatus: codes.Unset},
		{name: "server error", path: "/articles/boom", kind: "article_detail", status: http.StatusInternalServerError, spanStatus: codes.Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := tracetest.NewSpanRecorder()
			provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
			t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

			routeEngine, _ := newTestEngine(t, func(cfg *Config) {
				cfg.Tracer = provider.Tracer("engine-test")
				cfg.HandleServerError = func(http.ResponseWriter, error) {}
			})

			serve(routeEngine, tt.path)

			spans := recorder.Ended()
			require.Len(t, spans, 1)
			assert.Equal(t, "dispatch", spans[0].Name())
			assert.Equal(t, tt.spanStatus, spans[0].Status().Code)

			attrs := spanAttributes(spans[0])
			assert.Equal(t, tt.kind, attrs["route.kind"].AsString())
			assert.Equal(t, "full", attrs["route.mode"].AsString())
			assert.Equal(t, tt.path, attrs["url.path"].AsString())
			assert.Equal(t, tt.status, attrs["http.response.status_code"].AsInt64())
		})
	}
}

func TestServeRouteResolvesDecodedRequestPath(t *testing.T) {
	routeEngine, out := newTestEngine(t, nil)

	serve(routeEngine, "/articles/what%3F")
	assert.Equal(t, "[layout]article:what?[/layout]", out.body)
}
