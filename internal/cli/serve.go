package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"devblog/internal/config"
	"devblog/internal/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			if listenAddr != "" {
				cfg.ListenAddr = listenAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, newLogger(os.Stderr, cfg.LogLevel))
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (overrides BLOG_LISTEN_ADDR)")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	shutdownTracing, err := setupTracing(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("flush traces", slog.Any("error", err))
		}
	}()

	service, closeSource, err := openService(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open article source: %w", err)
	}
	defer func() {
		if err := closeSource(); err != nil {
			logger.Warn("close article source", slog.Any("error", err))
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	handler, err := web.NewHandler(cfg, service, logger, registry)
	if err != nil {
		return fmt.Errorf("handler setup failed: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("blog server listening",
			slog.String("addr", cfg.ListenAddr),
			slog.String("source", cfg.ArticleSource),
			slog.String("traces", cfg.TraceExporter),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
