package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"devblog/framework/httpserver"
	"devblog/internal/config"
	"devblog/internal/dispatch"
	"github.com/prometheus/client_golang/prometheus"
)

const staticURLPrefix = "/.devblog/"

// NewRoot builds the root dispatcher over the blog pages and layout.
func NewRoot(cfg config.Config, service ArticleService) (*dispatch.Root, error) {
	site := Site{Title: cfg.SiteTitle}
	root, err := dispatch.New(NewPages(service, site, cfg.HomeArticles), Layout(site))
	if err != nil {
		return nil, fmt.Errorf("create root dispatcher: %w", err)
	}
	return root, nil
}

func NewHandler(
	cfg config.Config,
	service ArticleService,
	logger *slog.Logger,
	registry *prometheus.Registry,
) (http.Handler, error) {
	root, err := NewRoot(cfg, service)
	if err != nil {
		return nil, err
	}

	cachePolicies := httpserver.DefaultCachePolicies()
	if strings.TrimSpace(cfg.CacheLiveNavigation) != "" {
		cachePolicies.LiveNavigation = cfg.CacheLiveNavigation
	}

	handler, err := httpserver.New(httpserver.Config{
		Root: root,
		Static: httpserver.StaticMount{
			URLPrefix: staticURLPrefix,
			Dir:       cfg.StaticDir,
		},
		CachePolicies:   cachePolicies,
		IsNotFoundError: IsNotFoundError,
		Logger:          logger,
		Registry:        registry,
	})
	if err != nil {
		return nil, fmt.Errorf("create http server: %w", err)
	}
	return handler, nil
}
