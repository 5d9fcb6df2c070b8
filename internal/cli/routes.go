package cli

import (
	"fmt"

	"devblog/internal/route"
	"github.com/spf13/cobra"
)

func newRoutesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "routes [path...]",
		Short: "Print the route table, or resolve the given paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, pattern := range route.Patterns() {
					fmt.Fprintln(out, pattern)
				}
				return nil
			}

			for _, path := range args {
				resolved, err := route.Parse(path)
				if err != nil {
					fmt.Fprintf(out, "%s\t%s\n", path, route.KindNotFound)
					continue
				}

				if detail, ok := resolved.(route.ArticleDetail); ok {
					fmt.Fprintf(out, "%s\t%s\tid=%q\n", path, resolved.Kind(), detail.ID)
					continue
				}
				fmt.Fprintf(out, "%s\t%s\n", path, resolved.Kind())
			}
			return nil
		},
	}
}
