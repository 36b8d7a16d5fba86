package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/keithlinneman/viteguide-web/internal/article"
)

func newListCommand() *cobra.Command {
	var titles bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print every registered article identifier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !titles {
				for _, id := range article.All() {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, id := range article.All() {
				fmt.Fprintf(tw, "%s\t%s\n", id, article.Title(id))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&titles, "titles", false, "Add the display title column")
	return cmd
}
