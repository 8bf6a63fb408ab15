package generator

import (
	"slices"
	"strings"

	"github.com/mark3labs/sdkgen/internal/naming"
)

// SDKNamespace is appended to the root namespace for all emitted classes.
const SDKNamespace = "SDK"

// Config holds generation parameters. It is built once per run with
// NewConfig and treated as read-only afterwards.
type Config struct {
	ConnectorName string
	// RootNamespace is the user-supplied namespace, e.g. App\Sdk.
	RootNamespace string
	// Namespace is RootNamespace plus the SDK segment.
	Namespace string

	ResourceNamespaceSuffix string
	RequestNamespaceSuffix  string
	DTONamespaceSuffix      string

	IgnoredQueryParams  []string
	IgnoredHeaderParams []string
	IgnoredBodyParams   []string

	FallbackResourceName string
}

type ConfigOption func(*Config)

func WithIgnoredQueryParams(names ...string) ConfigOption {
	return func(c *Config) { c.IgnoredQueryParams = cleanList(names) }
}

func WithIgnoredHeaderParams(names ...string) ConfigOption {
	return func(c *Config) { c.IgnoredHeaderParams = cleanList(names) }
}

func WithIgnoredBodyParams(names ...string) ConfigOption {
	return func(c *Config) { c.IgnoredBodyParams = cleanList(names) }
}

func WithFallbackResourceName(name string) ConfigOption {
	return func(c *Config) {
		if name = strings.TrimSpace(name); name != "" {
			c.FallbackResourceName = name
		}
	}
}

// NewConfig builds a Config for the given connector and root namespace.
func NewConfig(connectorName, rootNamespace string, opts ...ConfigOption) Config {
	root := strings.Trim(strings.TrimSpace(rootNamespace), `\`)
	if root == "" {
		root = `App\Sdk`
	}
	cfg := Config{
		ConnectorName:           strings.TrimSpace(connectorName),
		RootNamespace:           root,
		Namespace:               root + `\` + SDKNamespace,
		ResourceNamespaceSuffix: "Resource",
		RequestNamespaceSuffix:  "Requests",
		DTONamespaceSuffix:      "Dto",
		FallbackResourceName:    "Resource",
	}
	if cfg.ConnectorName == "" {
		cfg.ConnectorName = "Unnamed"
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// ConnectorClass is the class name of the generated connector.
func (c Config) ConnectorClass() string {
	return naming.SafeClassName(c.ConnectorName)
}

func (c Config) ConnectorFQN() string {
	return c.Namespace + `\` + c.ConnectorClass()
}

func (c Config) DTONamespace() string {
	return c.Namespace + `\` + c.DTONamespaceSuffix
}

// DTOFQN returns the fully-qualified name of a DTO class.
func (c Config) DTOFQN(class string) string {
	return c.DTONamespace() + `\` + class
}

// IsDTOType reports whether typ names a class in the DTO namespace.
func (c Config) IsDTOType(typ string) bool {
	typ = strings.Trim(strings.TrimPrefix(typ, "?"), `\`)
	return strings.HasPrefix(typ, c.DTONamespace()+`\`)
}

func (c Config) ResourceNamespace() string {
	return c.Namespace + `\` + c.ResourceNamespaceSuffix
}

func (c Config) RequestNamespace(resource string) string {
	return c.Namespace + `\` + c.RequestNamespaceSuffix + `\` + resource
}

// TestNamespace is the namespace of generated tests, autoloaded from tests/.
func (c Config) TestNamespace() string {
	return c.RootNamespace + `\Tests`
}

func (c Config) ignoredQuery(name string) bool  { return slices.Contains(c.IgnoredQueryParams, name) }
func (c Config) ignoredHeader(name string) bool { return slices.Contains(c.IgnoredHeaderParams, name) }
func (c Config) ignoredBody(name string) bool   { return slices.Contains(c.IgnoredBodyParams, name) }

// ClassPath maps a fully-qualified class name to its output path. Classes
// under the root namespace live in src/ mirroring their namespace.
func (c Config) ClassPath(fqn string) string {
	fqn = strings.Trim(fqn, `\`)
	rel := fqn
	if strings.HasPrefix(fqn, c.RootNamespace+`\`) {
		rel = strings.TrimPrefix(fqn, c.RootNamespace+`\`)
	}
	return "src/" + strings.ReplaceAll(rel, `\`, "/") + ".php"
}

func cleanList(names []string) []string {
	var out []string
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" && !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}
