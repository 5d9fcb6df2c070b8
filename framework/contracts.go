package framework

import (
	"net/http"

	"github.com/a-h/templ"
)

type LayoutRenderer func(child templ.Component) templ.Component

// ApplyLayouts wraps child so that layouts[0] ends up outermost.
func ApplyLayouts(layouts []LayoutRenderer, child templ.Component) templ.Component {
	wrapped := child
	for idx := len(layouts) - 1; idx >= 0; idx-- {
		wrapped = layouts[idx](wrapped)
	}
	return wrapped
}

type RenderMode string

const (
	RenderModeFull    RenderMode = "full"
	RenderModePartial RenderMode = "partial"
	RenderModeLive    RenderMode = "live"
)

type NotFoundSource string

const (
	NotFoundSourcePageLoad       NotFoundSource = "page_load"
	NotFoundSourceUnmatchedRoute NotFoundSource = "unmatched_route"
)

type NotFoundContext struct {
	RequestPath  string
	MatchedRoute string
	Source       NotFoundSource
}

// Outcome describes one served navigation, for logging and metrics.
type Outcome struct {
	Route  string
	Mode   RenderMode
	Status int
}

func StatusOrOK(status int) int {
	if status == 0 {
		return http.StatusOK
	}
	return status
}
