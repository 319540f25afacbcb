// Package cli implements the shapleyctl command line client.
package cli

import (
	"io"

	"github.com/okian/shapley/pkg/logger"
	"github.com/spf13/cobra"
)

// NewRootCommand builds the shapleyctl command tree. Results go to out and
// logs to errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "shapleyctl",
		Short:         "Compute exact Shapley values for cooperative games",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithWriter(errOut)); err != nil {
				return err
			}
			if verbose {
				return logger.SetLevelString("debug")
			}
			return logger.SetLevelString("warn")
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newComputeCommand(), newSubmitCommand())
	return root
}
