package navigation

import (
	"net/http"
	"strings"
	"sync"
)

// Navigator supplies the current location and announces location changes.
type Navigator interface {
	CurrentPath() string
	OnChange(listener func(path string)) (cancel func())
}

// History is an in-memory navigation stack. Listeners run synchronously, in
// registration order, after the stack is updated.
type History struct {
	mu        sync.Mutex
	entries   []string
	listeners map[int]func(path string)
	order     []int
	nextID    int
}

func NewHistory(initialPath string) *History {
	return &History{
		entries:   []string{normalizePath(initialPath)},
		listeners: make(map[int]func(path string)),
	}
}

func (h *History) CurrentPath() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.entries[len(h.entries)-1]
}

func (h *History) OnChange(listener func(path string)) func() {
	if listener == nil {
		return func() {}
	}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = listener
	h.order = append(h.order, id)
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()

			delete(h.listeners, id)
			for idx, candidate := range h.order {
				if candidate == id {
					h.order = append(h.order[:idx], h.order[idx+1:]...)
					break
				}
			}
		})
	}
}

// Push navigates to path and notifies listeners.
func (h *History) Push(path string) {
	path = normalizePath(path)

	h.mu.Lock()
	h.entries = append(h.entries, path)
	listeners := h.snapshotListeners()
	h.mu.Unlock()

	notify(listeners, path)
}

// Back pops the current entry. It reports false when already at the first
// entry, in which case nobody is notified.
func (h *History) Back() bool {
	h.mu.Lock()
	if len(h.entries) < 2 {
		h.mu.Unlock()
		return false
	}
	h.entries = h.entries[:len(h.entries)-1]
	path := h.entries[len(h.entries)-1]
	listeners := h.snapshotListeners()
	h.mu.Unlock()

	notify(listeners, path)
	return true
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.entries)
}

func (h *History) snapshotListeners() []func(path string) {
	out := make([]func(path string), 0, len(h.order))
	for _, id := range h.order {
		out = append(out, h.listeners[id])
	}
	return out
}

func notify(listeners []func(path string), path string) {
	for _, listener := range listeners {
		listener(path)
	}
}

type requestLocation struct {
	path string
}

// RequestLocation is a navigator pinned to one HTTP request. A request is a
// single navigation, so it never changes.
func RequestLocation(r *http.Request) Navigator {
	path := "/"
	if r != nil && r.URL != nil {
		path = normalizePath(r.URL.Path)
	}
	return requestLocation{path: path}
}

func (l requestLocation) CurrentPath() string {
	return l.path
}

func (requestLocation) OnChange(func(path string)) func() {
	return func() {}
}

func normalizePath(path string) string {
	if strings.TrimSpace(path) == "" {
		return "/"
	}
	return path
}
