package articles

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	md "devblog/internal/markdown"
)

var ErrNotFound = errors.New("article not found")

const excerptChars = 240

// Record is an article as stored by a Source, with its body still in
// markdown.
type Record struct {
	ID          string
	Title       string
	Description string
	Body        string
	AuthorName  string
	AuthorSlug  string
	Tags        []string
	PublishedAt time.Time
}

// Source lists and fetches article records. ListArticles returns newest
// first; a limit below 1 means no limit. ArticleByID returns an error
// wrapping ErrNotFound for unknown IDs.
type Source interface {
	ListArticles(ctx context.Context, limit int) ([]Record, error)
	ArticleByID(ctx context.Context, id string) (Record, error)
}

type Author struct {
	Name string
	Slug string
}

type Summary struct {
	ID          string
	Title       string
	Excerpt     string
	Description string
	PublishedAt string
	Author      Author
	Tags        []string
}

type Article struct {
	ID          string
	Title       string
	Description string
	BodyHTML    template.HTML
	PublishedAt string
	Author      Author
	Tags        []string
}

type Service struct {
	source  Source
	rootURL string
}

func NewService(source Source, rootURL string) *Service {
	return &Service{
		source:  source,
		rootURL: strings.TrimSpace(rootURL),
	}
}

func (s *Service) Latest(ctx context.Context, n int) ([]Summary, error) {
	if n < 1 {
		return []Summary{}, nil
	}
	return s.list(ctx, n)
}

func (s *Service) List(ctx context.Context) ([]Summary, error) {
	return s.list(ctx, 0)
}

// Get loads one article. The ID comes straight from the URL, so blank,
// space-padded or otherwise unknown IDs are reported as ErrNotFound rather
// than rejected earlier. IDs are never trimmed: one article has one URL.
func (s *Service) Get(ctx context.Context, id string) (*Article, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: empty id", ErrNotFound)
	}
	if strings.TrimSpace(id) != id {
		return nil, fmt.Errorf("%w: padded id %q", ErrNotFound, id)
	}

	source, err := s.sourceOrErr()
	if err != nil {
		return nil, err
	}

	record, err := source.ArticleByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("article %q: %w", id, err)
	}

	return &Article{
		ID:          record.ID,
		Title:       pickTitle(record),
		Description: strings.TrimSpace(record.Description),
		BodyHTML:    md.ToHTML(record.Body, md.Options{RootURL: s.rootURL}),
		PublishedAt: formatDate(record.PublishedAt),
		Author:      mapAuthor(record),
		Tags:        cleanTags(record.Tags),
	}, nil
}

func (s *Service) list(ctx context.Context, limit int) ([]Summary, error) {
	source, err := s.sourceOrErr()
	if err != nil {
		return nil, err
	}

	records, err := source.ListArticles(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}

	out := make([]Summary, 0, len(records))
	for _, record := range records {
		out = append(out, Summary{
			ID:          record.ID,
			Title:       pickTitle(record),
			Excerpt:     md.Excerpt(record.Body, excerptChars),
			Description: strings.TrimSpace(record.Description),
			PublishedAt: formatDate(record.PublishedAt),
			Author:      mapAuthor(record),
			Tags:        cleanTags(record.Tags),
		})
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (s *Service) sourceOrErr() (Source, error) {
	if s == nil || s.source == nil {
		return nil, errors.New("article source unavailable")
	}
	return s.source, nil
}

func pickTitle(record Record) string {
	if title := strings.TrimSpace(record.Title); title != "" {
		return title
	}
	return record.ID
}

func mapAuthor(record Record) Author {
	name := strings.TrimSpace(record.AuthorName)
	if name == "" {
		name = strings.TrimSpace(record.AuthorSlug)
	}
	return Author{Name: name, Slug: strings.TrimSpace(record.AuthorSlug)}
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func formatDate(at time.Time) string {
	if at.IsZero() {
		return ""
	}
	return at.UTC().Format("2006-01-02")
}
