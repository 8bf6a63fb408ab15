package postproc

import (
	"context"
	"strings"

	"github.com/mark3labs/sdkgen/internal/generator"
	"github.com/mark3labs/sdkgen/internal/naming"
)

// composerManifest mirrors composer.json; field order is the output order.
type composerManifest struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Type        string            `json:"type"`
	Require     map[string]string `json:"require"`
	RequireDev  map[string]string `json:"require-dev"`
	Autoload    composerAutoload  `json:"autoload"`
	AutoloadDev composerAutoload  `json:"autoload-dev"`
	Scripts     map[string]string `json:"scripts"`
	Config      *composerConfig   `json:"config,omitempty"`
}

type composerAutoload struct {
	PSR4 map[string]string `json:"psr-4"`
}

type composerConfig struct {
	AllowPlugins map[string]bool `json:"allow-plugins"`
}

// ComposerStage emits composer.json for the generated package.
type ComposerStage struct {
	Framework Framework
}

func (ComposerStage) Name() string { return "composer" }

func (s ComposerStage) Apply(_ context.Context, in generator.Input, code generator.GeneratedCode) (generator.GeneratedCode, error) {
	cfg := in.Config
	m := composerManifest{
		Name:        PackageName(cfg.RootNamespace, cfg.ConnectorName),
		Description: strings.TrimSpace(in.Spec.Name + " SDK"),
		Type:        "library",
		Require: map[string]string{
			"php":                 "^8.1",
			"saloonphp/saloon":    "^3.0",
			"spatie/laravel-data": "^3.0|^4.0",
		},
		Autoload:    composerAutoload{PSR4: map[string]string{cfg.RootNamespace + `\`: "src/"}},
		AutoloadDev: composerAutoload{PSR4: map[string]string{cfg.TestNamespace() + `\`: "tests/"}},
	}
	if s.Framework == Pest {
		m.RequireDev = map[string]string{
			"pestphp/pest":             "^2.0",
			"orchestra/testbench":      "^8.0|^9.0",
			"saloonphp/laravel-plugin": "^3.0",
			"spatie/laravel-data":      "^3.0|^4.0",
			"vlucas/phpdotenv":         "^5.6",
		}
		m.Scripts = map[string]string{"test": "vendor/bin/pest"}
		m.Config = &composerConfig{AllowPlugins: map[string]bool{"pestphp/pest-plugin": true}}
	} else {
		m.RequireDev = map[string]string{
			"phpunit/phpunit":     "^10.0|^11.0",
			"orchestra/testbench": "^8.0|^9.0",
		}
		m.Scripts = map[string]string{"test": "vendor/bin/phpunit"}
	}

	content, err := encodeJSON(m)
	if err != nil {
		return code.WithIssues(generator.Issue{Stage: "composer", Artifact: "composer.json", Err: err}), nil
	}
	return code.WithFiles(generator.TaggedOutputFile{Tag: TagComposer, Path: "composer.json", Content: content}), nil
}

// PackageName derives the composer package name: the kebab-cased first
// namespace segment as vendor and the kebab-cased connector name as
// package, e.g. VendorName\MyAPI_Test and "My API-Test" give
// vendor-name/my-api-test.
func PackageName(rootNamespace, connectorName string) string {
	vendorSeg, _, _ := strings.Cut(strings.Trim(rootNamespace, `\`), `\`)
	vendor := naming.Kebab(vendorSeg)
	if vendor == "" {
		vendor = "vendor"
	}
	pkg := naming.Kebab(connectorName)
	if pkg == "" {
		pkg = "sdk"
	}
	return vendor + "/" + pkg
}
