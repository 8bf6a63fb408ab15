package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mark3labs/sdkgen/internal/generator"
	"github.com/mark3labs/sdkgen/internal/postproc"
	"github.com/mark3labs/sdkgen/internal/spec"
	"github.com/mark3labs/sdkgen/internal/writer"
)

// EnvPrefix prefixes environment overrides, e.g. SDKGEN_NAMESPACE.
const EnvPrefix = "SDKGEN"

// GenerateConfig captures all inputs that influence the generate command after
// merging defaults, config file values, environment and CLI overrides.
type GenerateConfig struct {
	Input               string
	Type                string
	Name                string
	Namespace           string
	Output              string
	TestFramework       postproc.Framework
	IgnoredQueryParams  []string
	IgnoredHeaderParams []string
	IgnoredBodyParams   []string
	FallbackResource    string
	ConfigPath          string
	Force               bool
	Dry                 bool
	Zip                 bool
	Verbose             bool
}

// generateFlags are the keys accepted by flags, config files and the
// environment.
var generateFlags = []string{
	"type", "name", "namespace", "output", "force", "dry", "zip", "test-framework",
	"ignored-query-params", "ignored-header-params", "ignored-body-params",
	"fallback-resource", "verbose",
}

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <path>",
		Short: "Generate a PHP SDK from an API specification",
		Long: "Generate a PHP SDK from an OpenAPI document or Postman collection. " +
			"Options can be provided via flags, environment variables (SDKGEN_*), config files, or defaults.",
		Example: strings.TrimSpace(`  sdkgen generate openapi.yaml --type openapi --name Shop --namespace "Acme\Shop"
  sdkgen generate collection.json --dry
  sdkgen --config sdkgen.yaml generate openapi.yaml --force`),
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("generate: expected exactly one specification path, got %d\n\n%s", len(args), cmd.UsageString())
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd, args[0])
			if err != nil {
				return err
			}
			return generateRunner(cmd.Context(), cfg, cmd.OutOrStdout(), newLogger(cmd.ErrOrStderr(), cfg.Verbose))
		},
	}

	flags := cmd.Flags()
	flags.String("type", "postman", "Specification type ("+strings.Join(spec.DefaultRegistry().Types(), "|")+")")
	flags.String("name", "Unnamed", "Connector class name")
	flags.String("namespace", `App\Sdk`, "Root namespace; generated classes live under its SDK sub-namespace")
	flags.String("output", "./build", "Output directory")
	flags.Bool("force", false, "Overwrite existing files not marked @sdk-never-override")
	flags.Bool("dry", false, "List the files that would be generated without writing them")
	flags.Bool("zip", false, "Bundle all files into <name>_sdk.zip instead of writing them")
	flags.String("test-framework", string(postproc.PHPUnit), "Test suite to generate (phpunit|pest)")
	flags.StringSlice("ignored-query-params", []string{"after", "order_by", "per_page"}, "Query parameters left out of requests")
	flags.StringSlice("ignored-header-params", nil, "Header parameters left out of requests")
	flags.StringSlice("ignored-body-params", nil, "Body parameters left out of requests")
	flags.String("fallback-resource", "Resource", "Resource name for endpoints without a collection")

	return cmd
}

func resolveGenerateConfig(cmd *cobra.Command, input string) (*GenerateConfig, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := bindFlags(v, cmd.Flags()); err != nil {
		return nil, err
	}

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		values, err := readConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := v.MergeConfigMap(values); err != nil {
			return nil, usageErrorf("config file %q: %v", configPath, err)
		}
	}

	cfg, err := decodeGenerateConfig(v)
	if err != nil {
		return nil, err
	}
	cfg.Input = strings.TrimSpace(input)
	cfg.ConfigPath = configPath
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for _, name := range generateFlags {
		f := flags.Lookup(name)
		if f == nil {
			return fmt.Errorf("generate: flag %q is not defined", name)
		}
		if err := v.BindPFlag(name, f); err != nil {
			return err
		}
	}
	return nil
}

// readConfigFile loads a config file and maps its keys onto flag names.
// Keys match case-insensitively and ignore dashes and underscores, so
// testFramework and test_framework both set --test-framework.
func readConfigFile(path string) (map[string]any, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, usageErrorf("read config file %q: %v", path, err)
	}
	file := viper.New()
	file.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		file.SetConfigType("yaml")
	}
	if err := file.ReadInConfig(); err != nil {
		return nil, usageErrorf("parse config file %q: %v", path, err)
	}

	known := make(map[string]string, len(generateFlags))
	for _, name := range generateFlags {
		known[normalizeKey(name)] = name
	}
	out := make(map[string]any)
	for _, key := range file.AllKeys() {
		name, ok := known[normalizeKey(key)]
		if !ok {
			return nil, usageErrorf("config file %q: unknown field %q", path, key)
		}
		out[name] = file.Get(key)
	}
	return out, nil
}

func decodeGenerateConfig(v *viper.Viper) (*GenerateConfig, error) {
	cfg := &GenerateConfig{}
	strs := map[string]*string{
		"type":              &cfg.Type,
		"name":              &cfg.Name,
		"namespace":         &cfg.Namespace,
		"output":            &cfg.Output,
		"fallback-resource": &cfg.FallbackResource,
	}
	for key, dst := range strs {
		val, err := valueAsString(v.Get(key))
		if err != nil {
			return nil, usageErrorf("%s: %v", key, err)
		}
		*dst = val
	}

	bools := map[string]*bool{
		"force":   &cfg.Force,
		"dry":     &cfg.Dry,
		"zip":     &cfg.Zip,
		"verbose": &cfg.Verbose,
	}
	for key, dst := range bools {
		val, err := valueAsBool(v.Get(key))
		if err != nil {
			return nil, usageErrorf("%s: %v", key, err)
		}
		*dst = val
	}

	lists := map[string]*[]string{
		"ignored-query-params":  &cfg.IgnoredQueryParams,
		"ignored-header-params": &cfg.IgnoredHeaderParams,
		"ignored-body-params":   &cfg.IgnoredBodyParams,
	}
	for key, dst := range lists {
		val, err := valueAsStringSlice(v.Get(key))
		if err != nil {
			return nil, usageErrorf("%s: %v", key, err)
		}
		*dst = sanitizeList(val)
	}

	raw, err := valueAsString(v.Get("test-framework"))
	if err != nil {
		return nil, usageErrorf("test-framework: %v", err)
	}
	fw, err := postproc.ParseFramework(raw)
	if err != nil {
		return nil, usageErrorf("generate: %v", err)
	}
	cfg.TestFramework = fw
	return cfg, nil
}

func (c *GenerateConfig) validate() error {
	if c.Input == "" {
		return newUsageError("generate: a specification path is required")
	}
	if c.Dry && c.Zip {
		return newUsageError("generate: --dry and --zip cannot be combined")
	}
	if c.Output == "" {
		c.Output = "./build"
	}
	return nil
}

func runGenerate(ctx context.Context, cfg *GenerateConfig, out io.Writer, logger *slog.Logger) error {
	// 1) Check the input and parser before doing any work
	if _, err := os.Stat(cfg.Input); err != nil {
		return usageErrorf("File not found: %s", cfg.Input)
	}
	registry := spec.DefaultRegistry()
	if _, err := registry.Lookup(cfg.Type); err != nil {
		return parserError(cfg.Type, registry.Types())
	}

	// 2) Parse into the normalized model
	sp, err := registry.Parse(ctx, cfg.Type, cfg.Input)
	if err != nil {
		var se *spec.SpecError
		if errors.As(err, &se) {
			msg := fmt.Sprintf("spec: %s", se.Message)
			if se.Location != "" {
				msg = fmt.Sprintf("%s\nLocation: %s", msg, se.Location)
			}
			return newUsageError(msg)
		}
		return err
	}
	logger.Debug("parsed specification", "type", cfg.Type, "endpoints", len(sp.Endpoints))

	// 3) Generate the bundle
	gcfg := generator.NewConfig(cfg.Name, cfg.Namespace,
		generator.WithIgnoredQueryParams(cfg.IgnoredQueryParams...),
		generator.WithIgnoredHeaderParams(cfg.IgnoredHeaderParams...),
		generator.WithIgnoredBodyParams(cfg.IgnoredBodyParams...),
		generator.WithFallbackResourceName(cfg.FallbackResource),
	)
	code, err := generator.New(
		generator.WithLogger(logger),
		generator.WithPostProcessors(postproc.Stages(cfg.TestFramework)...),
	).Run(ctx, gcfg, sp)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	files := code.OutputFiles(gcfg)
	if n := len(code.Issues()); n > 0 {
		fmt.Fprintf(out, "Skipped %d artifact(s); rerun with --verbose for details.\n", n)
	}

	absOut := cfg.Output
	if ap, err := filepath.Abs(cfg.Output); err == nil {
		absOut = ap
	}

	// 4) Preview, archive or write
	if cfg.Dry {
		writer.PrintPlan(out, absOut, files)
		return nil
	}
	w := writer.New(writer.Options{OutDir: cfg.Output, Force: cfg.Force, Logger: logger})
	if cfg.Zip {
		report, err := w.WriteZip(ctx, cfg.Name, files)
		if err != nil {
			return wrapOutputError(err, absOut)
		}
		if !report.Skipped {
			for _, entry := range report.Entries {
				fmt.Fprintf(out, "- Wrote file to ZIP: %s\n", entry)
			}
		}
		fmt.Fprintln(out, report.String())
		return nil
	}

	reports, err := w.Write(ctx, files)
	failed := 0
	for _, r := range reports {
		fmt.Fprintln(out, r.String())
		if r.Action == writer.ActionFailed {
			failed++
		}
	}
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("generate: %d of %d files could not be written to %s", failed, len(reports), absOut)
	}
	return nil
}

// parserError explains an unregistered --type, pointing out the common
// mistake of passing a file format instead of a parser name.
func parserError(typ string, available []string) error {
	msg := fmt.Sprintf("No parser registered for --type='%s'", typ)
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "yml", "yaml", "json", "xml":
		msg += "\nNote: --type is the specification type (e.g. openapi or postman), not the file format."
	}
	msg += "\nAvailable types: " + strings.Join(available, ", ")
	return newUsageError(msg)
}

func wrapOutputError(err error, outDir string) error {
	// Provide clearer guidance for common FS failures.
	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "permission") || strings.Contains(lower, "read-only") || strings.Contains(lower, "directory") {
		return usageErrorf("output error for %s: %v\nHint: choose a different --output or check directory permissions.", outDir, err)
	}
	return err
}

func sanitizeList(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

// The value* helpers decode merged settings instead of viper's cast-based
// getters: cast turns "maybe" into false and 3 into "3", while a config
// value of the wrong type must be a usage error.
func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsStringSlice(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return splitAndTrim(val), nil
	case []string:
		return val, nil
	case []any:
		items := make([]string, 0, len(val))
		for idx, elem := range val {
			str, err := valueAsString(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", idx, err)
			}
			if str != "" {
				items = append(items, str)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		switch trimmed {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n", "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
