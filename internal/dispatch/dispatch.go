// Package dispatch holds the root node of the blog: it resolves the current
// location to a route and selects the single page rendered inside the layout.
package dispatch

import (
	"context"
	"errors"
	"io"

	"devblog/framework"
	"devblog/internal/navigation"
	"devblog/internal/route"
	"github.com/a-h/templ"
)

// Pages are the page collaborators the root selects between.
type Pages interface {
	Home() templ.Component
	ArticleList() templ.Component
	ArticleDetail(id string) templ.Component
	NotFound(path string) templ.Component
}

// Selection is the outcome of one dispatch. Route is nil and Found is false
// when the path matched no pattern; Page is never nil and never renders empty.
type Selection struct {
	Path  string
	Route route.Route
	Found bool
	Page  templ.Component
}

func (s Selection) Kind() route.Kind {
	return route.KindOf(s.Route)
}

// Root is built once at startup and shared for the life of the process.
type Root struct {
	layouts []framework.LayoutRenderer
	pages   Pages
}

func New(pages Pages, layouts ...framework.LayoutRenderer) (*Root, error) {
	if pages == nil {
		return nil, errors.New("page collaborators are required")
	}
	for _, layout := range layouts {
		if layout == nil {
			return nil, errors.New("layout renderer cannot be nil")
		}
	}

	return &Root{layouts: layouts, pages: pages}, nil
}

// Select resolves path and picks its page. Unmatched paths select the
// not-found page; the same path always yields the same selection.
func (root *Root) Select(path string) Selection {
	resolved, err := route.Parse(path)
	if err != nil {
		return Selection{Path: path, Page: root.notFound(path)}
	}

	var page templ.Component
	switch typed := resolved.(type) {
	case route.Home:
		page = root.pages.Home()
	case route.ArticleList:
		page = root.pages.ArticleList()
	case route.ArticleDetail:
		page = root.pages.ArticleDetail(typed.ID)
	}
	if page == nil {
		page = defaultNotFound(path)
	}

	return Selection{Path: path, Route: resolved, Found: true, Page: page}
}

// Wrap embeds child in the layout chain, outermost layout first.
func (root *Root) Wrap(child templ.Component) templ.Component {
	return framework.ApplyLayouts(root.layouts, child)
}

// View is the full node tree for path: the selected page inside the layout.
func (root *Root) View(path string) templ.Component {
	return root.Wrap(root.Select(path).Page)
}

// NotFoundPage is the fallback page for path regardless of whether it would
// match a route. Used when a matched page reports a missing resource.
func (root *Root) NotFoundPage(path string) templ.Component {
	return root.notFound(path)
}

func (root *Root) NotFoundView(path string) templ.Component {
	return root.Wrap(root.notFound(path))
}

// Mount renders the navigator's current location immediately and again on
// every location change until the returned function is called.
func (root *Root) Mount(
	nav navigation.Navigator,
	sink func(selection Selection, view templ.Component),
) func() {
	render := func(path string) {
		selection := root.Select(path)
		sink(selection, root.Wrap(selection.Page))
	}

	render(nav.CurrentPath())
	return nav.OnChange(render)
}

func (root *Root) notFound(path string) templ.Component {
	page := root.pages.NotFound(path)
	if page == nil {
		return defaultNotFound(path)
	}
	return page
}

// defaultNotFound stands in for a page collaborator that returned nothing,
// so the layout slot always has content.
func defaultNotFound(path string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<p class="not-found">not found: `+templ.EscapeString(path)+`</p>`)
		return err
	})
}
