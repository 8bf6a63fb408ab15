package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

// Execute runs the sdkgen CLI.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sdkgen",
		Short: "Generate PHP Saloon SDKs from OpenAPI and Postman specifications",
		Long: "sdkgen turns an OpenAPI document or a Postman collection into a PHP SDK built on " +
			"Saloon and spatie/laravel-data, complete with tests, fixtures and a composer manifest.",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Config file path (YAML, JSON or TOML)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging output")

	cmd.AddCommand(newGenerateCmd(), newInitCmd(), newParsersCmd())

	// Cobra flag errors (like unknown flags) become usage errors that also
	// show the command's help text.
	for _, c := range append([]*cobra.Command{cmd}, cmd.Commands()...) {
		c.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
			return usageErrorf("%v\n\n%s", err, c.UsageString())
		})
	}
	return cmd
}

// newLogger returns the diagnostics logger: a text handler on w at Warn,
// or Debug when verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
