package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/keithlinneman/viteguide-web/internal/article"
)

func newValidateCommand() *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "validate ID...",
		Short: "Check that each argument is a registered article identifier",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var unknown []string
			for _, a := range args {
				if _, err := article.Parse(a); err != nil {
					unknown = append(unknown, a)
					if !quiet {
						fmt.Fprintf(cmd.OutOrStdout(), "%s\tunknown\n", a)
					}
					continue
				}
				if !quiet {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\tok\n", a)
				}
			}
			if len(unknown) > 0 {
				return fmt.Errorf("%w: %s", article.ErrUnknown, strings.Join(unknown, ", "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Print nothing; rely on the exit status")
	cmd.Example = `  # in a docs build step
  articlecheck validate ssr why-vite`
	return cmd
}
