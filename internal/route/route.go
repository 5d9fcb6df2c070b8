// Package route maps URL paths to the closed set of blog locations and back.
package route

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// ErrNotFound is returned by Parse when no route pattern matches a path.
var ErrNotFound = errors.New("route not found")

type Kind string

const (
	KindHome          Kind = "home"
	KindArticleList   Kind = "article_list"
	KindArticleDetail Kind = "article_detail"
	KindNotFound      Kind = "not_found"
)

const articlesSegment = "articles"

// Route is one navigable location. The set of implementations is closed:
// Home, ArticleList and ArticleDetail.
type Route interface {
	Kind() Kind
	route()
}

type Home struct{}

type ArticleList struct{}

// ArticleDetail carries the article identifier exactly as it appeared in the
// path segment. It is not validated here.
type ArticleDetail struct {
	ID string
}

func (Home) Kind() Kind          { return KindHome }
func (ArticleList) Kind() Kind   { return KindArticleList }
func (ArticleDetail) Kind() Kind { return KindArticleDetail }

func (Home) route()          {}
func (ArticleList) route()   {}
func (ArticleDetail) route() {}

type pathSegment struct {
	name    string
	isParam bool
}

type pattern struct {
	text        string
	segments    []pathSegment
	staticCount int
	build       func(params []string) Route
}

var patterns = sortedPatterns([]pattern{
	newPattern("/articles/:id", func(params []string) Route {
		return ArticleDetail{ID: params[0]}
	}),
	newPattern("/articles", func([]string) Route { return ArticleList{} }),
	newPattern("/", func([]string) Route { return Home{} }),
})

func newPattern(text string, build func(params []string) Route) pattern {
	parts := splitPath(text)
	segments := make([]pathSegment, 0, len(parts))
	staticCount := 0
	for _, part := range parts {
		if strings.HasPrefix(part, ":") {
			segments = append(segments, pathSegment{name: part[1:], isParam: true})
			continue
		}
		segments = append(segments, pathSegment{name: part})
		staticCount++
	}

	return pattern{
		text:        text,
		segments:    segments,
		staticCount: staticCount,
		build:       build,
	}
}

func sortedPatterns(list []pattern) []pattern {
	sort.SliceStable(list, func(i int, j int) bool {
		left := list[i]
		right := list[j]

		if left.staticCount != right.staticCount {
			return left.staticCount > right.staticCount
		}
		if len(left.segments) != len(right.segments) {
			return len(left.segments) > len(right.segments)
		}
		return left.text < right.text
	})
	return list
}

// Parse resolves a URL path (without query or fragment) to a Route.
// Paths that do not start with "/" or contain an empty segment never match,
// so "/articles/" is not found rather than an article with an empty ID.
func Parse(path string) (Route, error) {
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, path)
	}

	requestSegments := splitPath(path)
	for _, segment := range requestSegments {
		if segment == "" {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, path)
		}
	}

	for _, candidate := range patterns {
		params, ok := candidate.match(requestSegments)
		if !ok {
			continue
		}
		return candidate.build(params), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrNotFound, path)
}

func (p pattern) match(requestSegments []string) ([]string, bool) {
	if len(p.segments) != len(requestSegments) {
		return nil, false
	}

	var params []string
	for idx, segment := range p.segments {
		value := requestSegments[idx]
		if segment.isParam {
			params = append(params, value)
			continue
		}
		if segment.name != value {
			return nil, false
		}
	}

	return params, true
}

// Path returns the canonical URL path of r. A nil route maps to "/".
func Path(r Route) string {
	switch typed := r.(type) {
	case ArticleList:
		return "/" + articlesSegment
	case ArticleDetail:
		return "/" + articlesSegment + "/" + typed.ID
	default:
		return "/"
	}
}

// Href is Path with the ID segment percent-encoded, for use in links. A
// browser following Href(r) requests a path whose decoded form is Path(r).
func Href(r Route) string {
	if detail, ok := r.(ArticleDetail); ok {
		return "/" + articlesSegment + "/" + url.PathEscape(detail.ID)
	}
	return Path(r)
}

// Patterns lists the route table in match priority order.
func Patterns() []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, p.text)
	}
	return out
}

// KindOf reports the kind of r, or KindNotFound for a nil route.
func KindOf(r Route) Kind {
	if r == nil {
		return KindNotFound
	}
	return r.Kind()
}

// splitPath splits on "/" after dropping the leading slash. The root path
// yields no segments; empty segments are preserved for the caller to reject.
func splitPath(raw string) []string {
	trimmed := strings.TrimPrefix(raw, "/")
	if trimmed == "" {
		return []string{}
	}

	return strings.Split(trimmed, "/")
}
