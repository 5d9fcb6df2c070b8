package web

import (
	"context"
	"io"
	"strings"

	"devblog/framework"
	"devblog/internal/markdown"
	"devblog/internal/route"
	"github.com/a-h/templ"
)

const pageSlotID = "page"

const datastarScriptURL = "https://cdn.jsdelivr.net/gh/starfederation/datastar@v1.0.0/bundles/datastar.js"

// themeCSS carries the palette and fonts of the site chrome.
const themeCSS = `
:root { --bg: #EBDFD1; --bg-alt: #FDF1E2; --fg: #1C1C1C; }
@media (prefers-color-scheme: dark) {
	:root { --bg: #1C1C1C; --bg-alt: #1A1A1A; --fg: #EBDFD1; }
}
html.dark { --bg: #1C1C1C; --bg-alt: #1A1A1A; --fg: #EBDFD1; }
body { margin: 0; background: var(--bg); color: var(--fg); font-family: Inter, sans-serif; }
code, pre { font-family: "Fira Code", monospace; }
header, main, footer { max-width: 48rem; margin: 0 auto; padding: 1rem; }
header nav a { margin-right: 1rem; }
.card { background: var(--bg-alt); border-radius: .5rem; padding: 1rem; margin-bottom: 1rem; }
.card .excerpt { display: -webkit-box; -webkit-line-clamp: 3; -webkit-box-orient: vertical; overflow: hidden; }
.tag { font-size: .8rem; margin-right: .5rem; opacity: .8; }
`

type Site struct {
	Title string
}

// Layout is the fixed chrome around every page: document head, header
// navigation and the slot that live navigation patches.
func Layout(site Site) framework.LayoutRenderer {
	title := strings.TrimSpace(site.Title)
	if title == "" {
		title = "devblog"
	}

	return func(child templ.Component) templ.Component {
		return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			h := &htmlWriter{w: w}
			h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
			h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
			h.raw(`<title>`)
			h.text(title)
			h.raw(`</title><style>`)
			h.raw(themeCSS)
			h.raw(string(markdown.ChromaCSS()))
			h.raw(`</style><script type="module" src="`)
			h.text(datastarScriptURL)
			h.raw(`"></script></head>`)
			h.raw(`<body data-on-popstate__window="@get(location.pathname)"><header><nav>`)
			h.navLink(route.Href(route.Home{}), title, "brand")
			h.navLink(route.Href(route.ArticleList{}), "Articles", "")
			h.raw(`</nav></header><main id="` + pageSlotID + `">`)
			h.child(ctx, child)
			h.raw(`</main><footer><small>`)
			h.text(title)
			h.raw(`</small></footer></body></html>`)
			return h.err
		})
	}
}
