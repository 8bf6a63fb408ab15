package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mark3labs/sdkgen/internal/spec"
)

func newParsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parsers",
		Short: "List the specification types accepted by --type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, t := range spec.DefaultRegistry().Types() {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
			return nil
		},
	}
}
