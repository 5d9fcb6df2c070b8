package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"devblog/internal/articles"
	"devblog/internal/articles/sqlitestore"
	"devblog/internal/config"
	"github.com/spf13/cobra"
)

type putOptions struct {
	title       string
	description string
	authorName  string
	authorSlug  string
	tags        []string
	publishedAt string
}

// newPutCommand stores a markdown file as an article in the SQLite source.
func newPutCommand() *cobra.Command {
	var opts putOptions

	cmd := &cobra.Command{
		Use:   "put <id> <file.md>",
		Short: "Store a markdown article in the SQLite database",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			record, err := opts.record(args[0], args[1])
			if err != nil {
				return err
			}

			store, err := sqlitestore.Open(cmd.Context(), cfg.SQLitePath)
			if err != nil {
				return fmt.Errorf("open %s: %w", cfg.SQLitePath, err)
			}
			defer store.Close()

			if err := store.Put(cmd.Context(), record); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %s\n", record.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.title, "title", "", "article title (required)")
	cmd.Flags().StringVar(&opts.description, "description", "", "short description shown in listings")
	cmd.Flags().StringVar(&opts.authorName, "author", "", "author display name")
	cmd.Flags().StringVar(&opts.authorSlug, "author-slug", "", "author slug")
	cmd.Flags().StringSliceVar(&opts.tags, "tag", nil, "tag name (repeatable)")
	cmd.Flags().StringVar(&opts.publishedAt, "published", "", "publication date, YYYY-MM-DD (default today)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func (opts putOptions) record(id string, file string) (articles.Record, error) {
	if strings.TrimSpace(id) == "" || strings.Contains(id, "/") {
		return articles.Record{}, fmt.Errorf("invalid article id %q", id)
	}

	body, err := os.ReadFile(file)
	if err != nil {
		return articles.Record{}, err
	}

	publishedAt := time.Now().UTC()
	if opts.publishedAt != "" {
		publishedAt, err = time.Parse(time.DateOnly, opts.publishedAt)
		if err != nil {
			return articles.Record{}, fmt.Errorf("invalid --published: %w", err)
		}
	}

	return articles.Record{
		ID:          id,
		Title:       opts.title,
		Description: opts.description,
		Body:        string(body),
		AuthorName:  opts.authorName,
		AuthorSlug:  opts.authorSlug,
		Tags:        opts.tags,
		PublishedAt: publishedAt,
	}, nil
}
