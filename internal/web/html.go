package web

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// htmlWriter writes markup until the first error, which it keeps.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(markup string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, markup)
}

func (h *htmlWriter) text(value string) {
	h.raw(templ.EscapeString(value))
}

func (h *htmlWriter) child(ctx context.Context, component templ.Component) {
	if h.err != nil {
		return
	}
	h.err = component.Render(ctx, h.w)
}

// navLink renders an anchor that navigates in place through a Datastar
// request when scripting is available and falls back to a normal link.
func (h *htmlWriter) navLink(href string, label string, class string) {
	h.raw(`<a href="`)
	h.text(href)
	h.raw(`"`)
	if class != "" {
		h.raw(` class="`)
		h.text(class)
		h.raw(`"`)
	}
	h.raw(` data-on-click__prevent="`)
	h.text(liveNavigateAction(href))
	h.raw(`">`)
	h.text(label)
	h.raw(`</a>`)
}

func liveNavigateAction(href string) string {
	quoted := "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(href) + "'"
	return "history.pushState({}, '', " + quoted + "); @get(" + quoted + ")"
}
