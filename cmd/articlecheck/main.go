// Command articlecheck checks article content against the registry at build
// time: it lists identifiers, validates names, and verifies that a content
// directory or bundle ships exactly the registered articles.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/keithlinneman/viteguide-web/internal/version"
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	vi := version.Get()
	cmd := &cobra.Command{
		Use:           "articlecheck",
		Short:         "Check article content against the registry",
		Version:       vi.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.AddCommand(newListCommand(), newValidateCommand(), newVerifyCommand())
	return cmd
}
