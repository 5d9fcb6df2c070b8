// Package sqlitestore keeps articles in a local SQLite database.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"devblog/internal/articles"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS articles (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	body TEXT NOT NULL DEFAULT '',
	author_name TEXT NOT NULL DEFAULT '',
	author_slug TEXT NOT NULL DEFAULT '',
	tags TEXT NOT NULL DEFAULT '',
	published_at INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published_at DESC, id);
`

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema. Use ":memory:" for a throwaway store.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Put inserts or replaces an article.
func (s *Store) Put(ctx context.Context, record articles.Record) error {
	if strings.TrimSpace(record.ID) == "" {
		return errors.New("article id cannot be empty")
	}

	tags, err := encodeTags(record.Tags)
	if err != nil {
		return fmt.Errorf("put article %q: %w", record.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO articles (id, title, description, body, author_name, author_slug, tags, published_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			body = excluded.body,
			author_name = excluded.author_name,
			author_slug = excluded.author_slug,
			tags = excluded.tags,
			published_at = excluded.published_at`,
		record.ID,
		record.Title,
		record.Description,
		record.Body,
		record.AuthorName,
		record.AuthorSlug,
		tags,
		unixOrZero(record.PublishedAt),
	)
	if err != nil {
		return fmt.Errorf("put article %q: %w", record.ID, err)
	}
	return nil
}

func (s *Store) ListArticles(ctx context.Context, limit int) ([]articles.Record, error) {
	query := `SELECT id, title, description, body, author_name, author_slug, tags, published_at
		FROM articles ORDER BY published_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	out := []articles.Record{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}

	return out, nil
}

func (s *Store) ArticleByID(ctx context.Context, id string) (articles.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, body, author_name, author_slug, tags, published_at
		FROM articles WHERE id = ?`, id)

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return articles.Record{}, articles.ErrNotFound
	}
	return record, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (articles.Record, error) {
	var record articles.Record
	var tags string
	var publishedAt int64

	err := row.Scan(
		&record.ID,
		&record.Title,
		&record.Description,
		&record.Body,
		&record.AuthorName,
		&record.AuthorSlug,
		&tags,
		&publishedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return articles.Record{}, err
		}
		return articles.Record{}, fmt.Errorf("scan article: %w", err)
	}

	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &record.Tags); err != nil {
			return articles.Record{}, fmt.Errorf("decode tags of %q: %w", record.ID, err)
		}
	}
	if publishedAt > 0 {
		record.PublishedAt = time.Unix(publishedAt, 0).UTC()
	}
	return record, nil
}

// encodeTags stores tags as a JSON array so names may contain any character.
// No tags is the empty string.
func encodeTags(tags []string) (string, error) {
	if len(tags) == 0 {
		return "", nil
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func unixOrZero(at time.Time) int64 {
	if at.IsZero() {
		return 0
	}
	return at.Unix()
}
