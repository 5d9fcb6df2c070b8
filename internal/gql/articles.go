package gql

import (
	"context"
	"fmt"
	"strings"
	"time"

	"devblog/internal/articles"
	genqlientgraphql "github.com/Khan/genqlient/graphql"
)

const listArticlesOperation = "ListArticles"

const listArticlesQuery = `query ListArticles($limit: Int!) {
	Articles(limit: $limit, sort: "-publishedAt") {
		docs {
			id
			title
			description
			content
			publishedAt
			author { name slug }
			tags { name }
		}
	}
}`

const articleByIDOperation = "ArticleByID"

const articleByIDQuery = `query ArticleByID($id: String!) {
	Articles(where: { id: { equals: $id } }, limit: 1) {
		docs {
			id
			title
			description
			content
			publishedAt
			author { name slug }
			tags { name }
		}
	}
}`

type articleDoc struct {
	ID          string  `json:"id"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Content     *string `json:"content"`
	PublishedAt *string `json:"publishedAt"`
	Author      *struct {
		Name *string `json:"name"`
		Slug string  `json:"slug"`
	} `json:"author"`
	Tags []struct {
		Name string `json:"name"`
	} `json:"tags"`
}

type articlesResponse struct {
	Articles *struct {
		Docs []articleDoc `json:"docs"`
	} `json:"Articles"`
}

func (r *articlesResponse) docs() []articleDoc {
	if r == nil || r.Articles == nil {
		return nil
	}
	return r.Articles.Docs
}

type listArticlesVars struct {
	Limit int `json:"limit"`
}

type articleByIDVars struct {
	ID string `json:"id"`
}

// Source reads articles from the CMS GraphQL API.
type Source struct {
	client genqlientgraphql.Client
	// pageLimit caps unbounded list requests; the API rejects limit 0.
	pageLimit int
}

func NewSource(client genqlientgraphql.Client) *Source {
	return &Source{client: client, pageLimit: 100}
}

func (s *Source) ListArticles(ctx context.Context, limit int) ([]articles.Record, error) {
	if limit < 1 || limit > s.pageLimit {
		limit = s.pageLimit
	}

	var response articlesResponse
	if err := s.run(ctx, listArticlesOperation, listArticlesQuery, listArticlesVars{Limit: limit}, &response); err != nil {
		return nil, err
	}

	docs := response.docs()
	out := make([]articles.Record, 0, len(docs))
	for _, doc := range docs {
		out = append(out, mapRecord(doc))
	}
	return out, nil
}

func (s *Source) ArticleByID(ctx context.Context, id string) (articles.Record, error) {
	var response articlesResponse
	if err := s.run(ctx, articleByIDOperation, articleByIDQuery, articleByIDVars{ID: id}, &response); err != nil {
		return articles.Record{}, err
	}

	docs := response.docs()
	if len(docs) == 0 {
		return articles.Record{}, articles.ErrNotFound
	}
	return mapRecord(docs[0]), nil
}

func (s *Source) run(ctx context.Context, opName string, query string, variables any, data any) error {
	req := &genqlientgraphql.Request{
		OpName:    opName,
		Query:     query,
		Variables: variables,
	}
	resp := &genqlientgraphql.Response{Data: data}

	if err := s.client.MakeRequest(ctx, req, resp); err != nil {
		return fmt.Errorf("graphql %s: %w", opName, err)
	}
	return nil
}

func mapRecord(doc articleDoc) articles.Record {
	record := articles.Record{
		ID:          doc.ID,
		Title:       strOr(doc.Title, ""),
		Description: strOr(doc.Description, ""),
		Body:        strOr(doc.Content, ""),
		PublishedAt: parseTime(doc.PublishedAt),
	}
	if doc.Author != nil {
		record.AuthorName = strOr(doc.Author.Name, doc.Author.Slug)
		record.AuthorSlug = doc.Author.Slug
	}
	for _, tag := range doc.Tags {
		record.Tags = append(record.Tags, tag.Name)
	}
	return record
}

func parseTime(raw *string) time.Time {
	value := strOr(raw, "")
	if value == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func strOr(value *string, fallback string) string {
	if value == nil {
		return fallback
	}

	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return fallback
	}

	return trimmed
}
