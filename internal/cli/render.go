package cli

import (
	"bytes"
	"fmt"
	"io"

	"devblog/internal/config"
	"devblog/internal/dispatch"
	"devblog/internal/navigation"
	"devblog/internal/route"
	"devblog/internal/web"
	"github.com/a-h/templ"
	"github.com/spf13/cobra"
)

func newRenderCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "render path...",
		Short: "Navigate through the given paths and print each rendered page",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			ctx := cmd.Context()

			service, closeSource, err := openService(ctx, cfg)
			if err != nil {
				return fmt.Errorf("open article source: %w", err)
			}
			defer closeSource()

			root, err := web.NewRoot(cfg, service)
			if err != nil {
				return err
			}

			return renderPaths(cmd, root, args, cmd.OutOrStdout())
		},
	}
}

// renderPaths drives an in-memory history through paths, writing one
// rendered document per navigation, numbered by history depth. A page that reports a missing article
// is replaced by the not-found view.
func renderPaths(cmd *cobra.Command, root *dispatch.Root, paths []string, out io.Writer) error {
	history := navigation.NewHistory(paths[0])

	var renderErr error
	unmount := root.Mount(history, func(selection dispatch.Selection, view templ.Component) {
		if renderErr != nil {
			return
		}

		kind := selection.Kind()
		var buf bytes.Buffer
		err := view.Render(cmd.Context(), &buf)
		if web.IsNotFoundError(err) {
			kind = route.KindNotFound
			buf.Reset()
			err = root.NotFoundView(selection.Path).Render(cmd.Context(), &buf)
		}
		if err != nil {
			renderErr = fmt.Errorf("render %q: %w", selection.Path, err)
			return
		}

		fmt.Fprintf(out, "==> [%d] %s (%s)\n%s\n", history.Len(), selection.Path, kind, buf.String())
	})
	defer unmount()

	for _, path := range paths[1:] {
		history.Push(path)
	}
	return renderErr
}
