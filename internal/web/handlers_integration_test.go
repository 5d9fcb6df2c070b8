package web

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"devblog/internal/articles"
	"devblog/internal/articles/sqlitestore"
	"devblog/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIntegrationHandler(t *testing.T) http.Handler {
	t.Helper()

	ctx := context.Background()
	store, err := sqlitestore.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Put(ctx, articles.Record{
		ID:          "42",
		Title:       "Hello World",
		Body:        "# Hello\n\nSee [the next one](article://43).\n\n```go\nfmt.Println(1)\n```",
		AuthorName:  "L You",
		AuthorSlug:  "l-you",
		Tags:        []string{"go"},
		PublishedAt: base,
	}))
	require.NoError(t, store.Put(ctx, articles.Record{
		ID:          "43",
		Title:       "Second <Post>",
		Description: "second note",
		PublishedAt: base.AddDate(0, 0, 1),
	}))

	handler, err := NewHandler(
		config.Config{SiteTitle: "Test Blog", HomeArticles: 1},
		articles.NewService(store, "https://blog.example"),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		prometheus.NewRegistry(),
	)
	require.NoError(t, err)
	return handler
}

func get(t *testing.T, handler http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHomePageListsLatestArticles(t *testing.T) {
	handler := newIntegrationHandler(t)

	rec := get(t, handler, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "<title>Test Blog</title>")
	assert.Contains(t, body, `<main id="page">`)
	assert.Contains(t, body, `href="/articles/43"`)
	assert.Contains(t, body, "Second &lt;Post&gt;")
	assert.NotContains(t, body, `href="/articles/42"`)
	assert.Contains(t, body, `href="/articles"`)
}

func TestArticleListPage(t *testing.T) {
	handler := newIntegrationHandler(t)

	rec := get(t, handler, "/articles", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "<h1>Articles</h1>")
	assert.Less(t, strings.Index(body, "/articles/43"), strings.Index(body, "/articles/42"))
	assert.Contains(t, body, "second note")
	assert.Contains(t, body, "#go")
}

func TestArticleDetailPage(t *testing.T) {
	handler := newIntegrationHandler(t)

	rec := get(t, handler, "/articles/42", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "<h1>Hello World</h1>")
	assert.Contains(t, body, "L You")
	assert.Contains(t, body, `<time datetime="2024-01-02">`)
	assert.Contains(t, body, `href="/articles/43"`)
	assert.Contains(t, body, `class="chroma"`)
}

func TestNotFoundPages(t *testing.T) {
	handler := newIntegrationHandler(t)

	for _, path := range []string{"/nonexistent", "/articles/", "/articles/999", "/articles/42/extra", "/articles/%2042"} {
		t.Run(path, func(t *testing.T) {
			first := get(t, handler, path, nil)
			second := get(t, handler, path, nil)

			assert.Equal(t, http.StatusNotFound, first.Code)
			assert.Contains(t, first.Body.String(), "404 Not Found")
			assert.Contains(t, first.Body.String(), `<main id="page">`)
			assert.Equal(t, first.Body.String(), second.Body.String())
		})
	}
}

func TestPartialNavigationSkipsLayout(t *testing.T) {
	handler := newIntegrationHandler(t)

	rec := get(t, handler, "/articles/42", map[string]string{"HX-Request": "true"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<!DOCTYPE html>")
	assert.Contains(t, rec.Body.String(), "Hello World")
}

func TestLiveNavigationPatchesSlot(t *testing.T) {
	handler := newIntegrationHandler(t)

	rec := get(t, handler, "/articles", map[string]string{"Datastar-Request": "true"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/event-stream")
	assert.Contains(t, rec.Body.String(), "#page")
	assert.Contains(t, rec.Body.String(), "Articles")
	assert.NotContains(t, rec.Body.String(), "<!DOCTYPE html>")
}

var questionCardHref = regexp.MustCompile(`<a href="([^"]+)"[^>]*>Questions</a>`)

func TestCardLinksResolveReservedCharacterIDs(t *testing.T) {
	ctx := context.Background()
	store, err := sqlitestore.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Put(ctx, articles.Record{ID: "what", Title: "Plain"}))
	require.NoError(t, store.Put(ctx, articles.Record{ID: "what?", Title: "Questions"}))

	handler, err := NewHandler(
		config.Config{},
		articles.NewService(store, ""),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		nil,
	)
	require.NoError(t, err)

	list := get(t, handler, "/articles", nil)
	require.Equal(t, http.StatusOK, list.Code)

	match := questionCardHref.FindStringSubmatch(list.Body.String())
	require.Len(t, match, 2)
	assert.Equal(t, "/articles/what%3F", match[1])

	detail := get(t, handler, match[1], nil)
	require.Equal(t, http.StatusOK, detail.Code)
	assert.Contains(t, detail.Body.String(), "<h1>Questions</h1>")
	assert.NotContains(t, detail.Body.String(), "<h1>Plain</h1>")
}

type failingService struct{}

func (failingService) Latest(context.Context, int) ([]articles.Summary, error) {
	return nil, errors.New("database down")
}

func (failingService) List(context.Context) ([]articles.Summary, error) {
	return nil, errors.New("database down")
}

func (failingService) Get(context.Context, string) (*articles.Article, error) {
	return nil, errors.New("database down")
}

func TestSourceFailureIsServerError(t *testing.T) {
	handler, err := NewHandler(
		config.Config{},
		failingService{},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		nil,
	)
	require.NoError(t, err)

	rec := get(t, handler, "/articles/1", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = get(t, handler, "/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLiveNavigateActionQuotesPath(t *testing.T) {
	assert.Equal(t,
		`history.pushState({}, '', '/articles/it\'s'); @get('/articles/it\'s')`,
		liveNavigateAction("/articles/it's"),
	)
}
