package postproc

import (
	"context"

	"github.com/mark3labs/sdkgen/internal/generator"
)

type pintConfig struct {
	Preset  string         `json:"preset"`
	Rules   map[string]any `json:"rules"`
	Exclude []string       `json:"exclude,omitempty"`
}

// PintStage emits pint.json so `vendor/bin/pint` formats the package the
// same way on every machine.
type PintStage struct{}

func (PintStage) Name() string { return "pint" }

func (PintStage) Apply(_ context.Context, _ generator.Input, code generator.GeneratedCode) (generator.GeneratedCode, error) {
	content, err := encodeJSON(pintConfig{
		Preset: "laravel",
		Rules: map[string]any{
			"concat_space":                map[string]string{"spacing": "one"},
			"no_unused_imports":           true,
			"ordered_imports":             map[string]string{"sort_algorithm": "alpha"},
			"single_line_empty_body":      true,
			"trailing_comma_in_multiline": map[string][]string{"elements": {"arrays", "arguments", "parameters"}},
		},
		Exclude: []string{"vendor"},
	})
	if err != nil {
		return code.WithIssues(generator.Issue{Stage: "pint", Artifact: "pint.json", Err: err}), nil
	}
	return code.WithFiles(generator.TaggedOutputFile{Tag: TagPint, Path: "pint.json", Content: content}), nil
}
