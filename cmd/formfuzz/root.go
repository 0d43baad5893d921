package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	fuzzlog "github.com/goliatone/go-formfuzz/internal/log"
)

// globalFlags holds the persistent flag values shared by every command.
type globalFlags struct {
	verbose bool
	quiet   bool
	noColor bool
}

// newRootCmd builds the command tree. A fresh tree per call keeps flag state
// from leaking between invocations in tests.
func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "formfuzz",
		Short: "Fill forms with random valid values and save them",
		Long: `formfuzz opens a form view, writes a random schema-valid value into every
editable field, follows onchange side effects so dependent fields are left alone,
and saves the record. Forms come from YAML/JSON fixtures or from the request body
of an OpenAPI operation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			fuzzlog.SetupWriter(cmd.ErrOrStderr(), g.verbose, g.quiet)
			if g.noColor || !isatty.IsTerminal(os.Stdout.Fd()) {
				color.NoColor = true
			}
		},
	}

	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "enable verbose output")
	root.PersistentFlags().BoolVarP(&g.quiet, "quiet", "q", false, "suppress non-essential output")
	root.PersistentFlags().BoolVar(&g.noColor, "no-color", false, "disable colored output")

	root.AddCommand(newRunCmd())
	root.AddCommand(newModelsCmd())
	root.AddCommand(newVersionCmd())
	return root
}
