// Package cli wires configuration, article sources and the web root into
// the devblog commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"devblog/internal/articles"
	"devblog/internal/articles/sqlitestore"
	"devblog/internal/config"
	"devblog/internal/gql"
	"github.com/spf13/cobra"
)

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "devblog",
		Short:         "Serve and inspect the devblog site",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newRoutesCommand())
	rootCmd.AddCommand(newRenderCommand())
	rootCmd.AddCommand(newPutCommand())
	return rootCmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "devblog: %v\n", err)
		return 1
	}
	return 0
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openService builds the article service for the configured source. The
// returned close function releases the source.
func openService(ctx context.Context, cfg config.Config) (*articles.Service, func() error, error) {
	switch cfg.ArticleSource {
	case config.ArticleSourceGraphQL:
		source := gql.NewSource(gql.NewClient(cfg))
		return articles.NewService(source, cfg.RootURL), func() error { return nil }, nil
	default:
		store, err := sqlitestore.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return articles.NewService(store, cfg.RootURL), store.Close, nil
	}
}
