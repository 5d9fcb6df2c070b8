package web

import (
	"context"
	"errors"
	"io"
	"strings"

	"devblog/internal/articles"
	"devblog/internal/route"
	"github.com/a-h/templ"
)

// ArticleService is what the pages read articles from.
type ArticleService interface {
	Latest(ctx context.Context, n int) ([]articles.Summary, error)
	List(ctx context.Context) ([]articles.Summary, error)
	Get(ctx context.Context, id string) (*articles.Article, error)
}

// Pages renders the home, article index, article and not-found pages.
// Data is loaded when a page renders, so selecting a page is free.
type Pages struct {
	service      ArticleService
	site         Site
	homeArticles int
}

func NewPages(service ArticleService, site Site, homeArticles int) *Pages {
	if homeArticles < 1 {
		homeArticles = 3
	}
	return &Pages{service: service, site: site, homeArticles: homeArticles}
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, articles.ErrNotFound)
}

func (p *Pages) Home() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		latest, err := p.service.Latest(ctx, p.homeArticles)
		if err != nil {
			return err
		}

		h := &htmlWriter{w: w}
		h.raw(`<section class="intro"><h1>`)
		h.text(p.siteTitle())
		h.raw(`</h1><p>Notes on building software.</p></section>`)
		h.raw(`<section class="latest"><h2>Latest articles</h2>`)
		writeCards(h, latest)
		h.raw(`<p>`)
		h.navLink(route.Href(route.ArticleList{}), "All articles", "more")
		h.raw(`</p></section>`)
		return h.err
	})
}

func (p *Pages) ArticleList() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		all, err := p.service.List(ctx)
		if err != nil {
			return err
		}

		h := &htmlWriter{w: w}
		h.raw(`<section class="articles"><h1>Articles</h1>`)
		writeCards(h, all)
		h.raw(`</section>`)
		return h.err
	})
}

func (p *Pages) ArticleDetail(id string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		article, err := p.service.Get(ctx, id)
		if err != nil {
			return err
		}

		h := &htmlWriter{w: w}
		h.raw(`<article class="article"><header><h1>`)
		h.text(article.Title)
		h.raw(`</h1>`)
		writeByline(h, article.Author, article.PublishedAt)
		writeTags(h, article.Tags)
		h.raw(`</header>`)
		if article.Description != "" {
			h.raw(`<p class="description">`)
			h.text(article.Description)
			h.raw(`</p>`)
		}
		h.raw(`<div class="body">`)
		h.raw(string(article.BodyHTML))
		h.raw(`</div></article>`)
		return h.err
	})
}

func (p *Pages) NotFound(path string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<section class="not-found"><h1>404 Not Found</h1><p>Nothing lives at <code>`)
		h.text(path)
		h.raw(`</code>.</p><p>`)
		h.navLink(route.Href(route.Home{}), "Back home", "")
		h.raw(`</p></section>`)
		return h.err
	})
}

func (p *Pages) siteTitle() string {
	if title := strings.TrimSpace(p.site.Title); title != "" {
		return title
	}
	return "devblog"
}

func writeCards(h *htmlWriter, summaries []articles.Summary) {
	if len(summaries) == 0 {
		h.raw(`<p class="empty">No articles yet.</p>`)
		return
	}

	for _, summary := range summaries {
		h.raw(`<div class="card"><h3>`)
		h.navLink(route.Href(route.ArticleDetail{ID: summary.ID}), summary.Title, "")
		h.raw(`</h3>`)
		writeByline(h, summary.Author, summary.PublishedAt)
		excerpt := summary.Description
		if excerpt == "" {
			excerpt = summary.Excerpt
		}
		if excerpt != "" {
			h.raw(`<p class="excerpt">`)
			h.text(excerpt)
			h.raw(`</p>`)
		}
		writeTags(h, summary.Tags)
		h.raw(`</div>`)
	}
}

func writeByline(h *htmlWriter, author articles.Author, publishedAt string) {
	if author.Name == "" && publishedAt == "" {
		return
	}

	h.raw(`<p class="byline">`)
	if author.Name != "" {
		h.text(author.Name)
	}
	if author.Name != "" && publishedAt != "" {
		h.raw(` · `)
	}
	if publishedAt != "" {
		h.raw(`<time datetime="`)
		h.text(publishedAt)
		h.raw(`">`)
		h.text(publishedAt)
		h.raw(`</time>`)
	}
	h.raw(`</p>`)
}

func writeTags(h *htmlWriter, tags []string) {
	if len(tags) == 0 {
		return
	}

	h.raw(`<p class="tags">`)
	for _, tag := range tags {
		h.raw(`<span class="tag">#`)
		h.text(tag)
		h.raw(`</span>`)
	}
	h.raw(`</p>`)
}
