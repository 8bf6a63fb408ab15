package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath string
	Force      bool
}

const defaultConfigFile = "sdkgen.yaml"

var initRunner = runInit

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a sample sdkgen configuration file",
		Long:  "Scaffold a commented sdkgen configuration file that documents available options.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			cfg := &InitConfig{
				OutputPath: out,
				Force:      force,
			}
			return initRunner(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	cmd.Flags().String("out", defaultConfigFile, "Where to write the sample config file")
	cmd.Flags().Bool("force", false, "Overwrite the target file if it already exists")

	return cmd
}

func runInit(ctx context.Context, cfg *InitConfig, stdout io.Writer) error {
	_ = ctx

	out := strings.TrimSpace(cfg.OutputPath)
	if out == "" {
		out = defaultConfigFile
	}
	absPath, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("init: resolve output path: %w", err)
	}

	if st, err := os.Stat(absPath); err == nil && !cfg.Force {
		if st.Mode().IsRegular() {
			return usageErrorf("init: %q already exists (use --force to overwrite)", absPath)
		}
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return usageErrorf("init: cannot create parent directory: %v", err)
	}

	content := strings.TrimSpace(sampleConfigYAML) + "\n"

	// Atomic write via temp + rename
	tmp := absPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return usageErrorf("init: cannot write temp file: %v\nHint: choose a different --out or check directory permissions.", err)
	}
	if err := os.Rename(tmp, absPath); err != nil {
		_ = os.Remove(tmp)
		return usageErrorf("init: cannot place file at %s: %v", absPath, err)
	}
	fmt.Fprintf(stdout, "Wrote sample config to %s\n", absPath)
	return nil
}

// sampleConfigYAML is a commented example config documenting available options.
const sampleConfigYAML = `# sdkgen configuration (YAML)
# All fields are optional. Flags override environment variables (SDKGEN_*),
# which override values in this file.

# Specification type: openapi or postman.
# type: openapi

# Connector class name; also names the zip archive.
# name: Shop

# Root namespace. Generated classes live under <namespace>\SDK.
# namespace: Acme\Shop

# Output directory.
# output: ./build

# Test suite to generate: phpunit or pest.
# test-framework: phpunit

# Parameters left out of generated requests (comma-separated or list).
# ignored-query-params: [after, order_by, per_page]
# ignored-header-params: []
# ignored-body-params: []

# Resource for endpoints that belong to no collection.
# fallback-resource: Resource

# Overwrite existing files. Files marked @sdk-never-override (or JSON
# manifests with "x-sdk-never-override": true) are always kept.
# force: false

# List planned files without writing anything.
# dry: false

# Write <name>_sdk.zip instead of individual files.
# zip: false

# Enable verbose logging.
# verbose: false
`
