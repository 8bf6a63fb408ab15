package spec

import (
	"sort"
	"strings"
)

// Normalized specification model shared by every generator. Parsers build it
// once per run; nothing downstream mutates it.

type Method string

const (
	GET     Method = "GET"
	POST    Method = "POST"
	PUT     Method = "PUT"
	PATCH   Method = "PATCH"
	DELETE  Method = "DELETE"
	HEAD    Method = "HEAD"
	OPTIONS Method = "OPTIONS"
	TRACE   Method = "TRACE"
)

// ParseMethod maps a raw HTTP verb onto a Method, defaulting to GET.
func ParseMethod(raw string) Method {
	switch m := Method(strings.ToUpper(strings.TrimSpace(raw))); m {
	case GET, POST, PUT, PATCH, DELETE, HEAD, OPTIONS, TRACE:
		return m
	default:
		return GET
	}
}

type Specification struct {
	Name        string
	Description string
	BaseURL     BaseURL
	Endpoints   []Endpoint
	Components  *Components
}

// BaseURL is the server URL. Variables appear as {name} in URL and are
// described by Parameters.
type BaseURL struct {
	URL        string
	Parameters []Parameter
}

type Endpoint struct {
	Name        string
	Method      Method
	Description string
	// PathSegments holds the path split on "/". Segments prefixed with ":"
	// are path variables.
	PathSegments []string
	Collection   string

	PathParameters   []Parameter
	BodyParameters   []Parameter
	QueryParameters  []Parameter
	HeaderParameters []Parameter

	Response                *SchemaOrRef
	ResponseDTO             string
	ResponseDTOPath         string
	ResponseDTOIsCollection bool
	ResponseDTOIsPaginated  bool
}

// AllParameters returns path, body, query and header parameters in that order.
func (e Endpoint) AllParameters() []Parameter {
	out := make([]Parameter, 0, len(e.PathParameters)+len(e.BodyParameters)+len(e.QueryParameters)+len(e.HeaderParameters))
	out = append(out, e.PathParameters...)
	out = append(out, e.BodyParameters...)
	out = append(out, e.QueryParameters...)
	out = append(out, e.HeaderParameters...)
	return out
}

// Path joins the segments back into "/a/:b" form.
func (e Endpoint) Path() string {
	return "/" + strings.Join(e.PathSegments, "/")
}

// IsPathVariable reports whether a path segment is a variable reference.
func IsPathVariable(segment string) bool {
	return strings.HasPrefix(segment, ":") && len(segment) > 1
}

// Parameter types are normalized primitives: string, int, float, int|float,
// bool, array, object or mixed. Ref names a component schema when the
// parameter is typed by one; ItemRef does the same for array items.
// Default is only set for server URL variables.
type Parameter struct {
	Name        string
	Type        string
	Nullable    bool
	Description string
	Ref         string
	ItemRef     string
	Default     string
}

type Components struct {
	Schemas         map[string]*Schema
	SecuritySchemes map[string]SecurityScheme
}

// SchemaNames returns schema names in sorted order.
func (c *Components) SchemaNames() []string {
	if c == nil {
		return nil
	}
	return sortedKeys(c.Schemas)
}

// Schema looks up a named schema.
func (c *Components) Schema(name string) (*Schema, bool) {
	if c == nil || c.Schemas == nil {
		return nil, false
	}
	s, ok := c.Schemas[name]
	return s, ok && s != nil
}

// PrimarySecurityScheme returns the first scheme by name, if any.
func (c *Components) PrimarySecurityScheme() (SecurityScheme, bool) {
	if c == nil || len(c.SecuritySchemes) == 0 {
		return SecurityScheme{}, false
	}
	names := sortedKeys(c.SecuritySchemes)
	return c.SecuritySchemes[names[0]], true
}

type SecuritySchemeType string

const (
	SecurityAPIKey        SecuritySchemeType = "apiKey"
	SecurityHTTP          SecuritySchemeType = "http"
	SecurityOAuth2        SecuritySchemeType = "oauth2"
	SecurityOpenIDConnect SecuritySchemeType = "openIdConnect"
)

type SecurityScheme struct {
	Type SecuritySchemeType
	// Name and In apply to apiKey schemes (In is header, query or cookie).
	Name string
	In   string
	// Scheme applies to http schemes (bearer, basic, ...).
	Scheme       string
	BearerFormat string
	Description  string
}

type Schema struct {
	// Types holds one or more JSON types. "null" may appear alongside others.
	Types       []string
	Format      string
	Title       string
	Description string
	Properties  map[string]*SchemaOrRef
	Required    []string
	Nullable    bool
	Items       *SchemaOrRef
	Enum        []any
	Example     any
	Default     any

	Minimum   *float64
	Maximum   *float64
	MinLength *uint64
	MaxLength *uint64
	MinItems  *uint64
}

// Type returns the first non-null type, or "" when untyped.
func (s *Schema) Type() string {
	if s == nil {
		return ""
	}
	for _, t := range s.Types {
		if t != "null" {
			return t
		}
	}
	return ""
}

// IsNullable reports an explicit nullable flag or a "null" member in Types.
func (s *Schema) IsNullable() bool {
	if s == nil {
		return false
	}
	if s.Nullable {
		return true
	}
	for _, t := range s.Types {
		if t == "null" {
			return true
		}
	}
	return false
}

func (s *Schema) IsRequired(property string) bool {
	if s == nil {
		return false
	}
	for _, r := range s.Required {
		if r == property {
			return true
		}
	}
	return false
}

// PropertyNames returns property names in sorted order.
func (s *Schema) PropertyNames() []string {
	if s == nil {
		return nil
	}
	return sortedKeys(s.Properties)
}

// ItemRef returns the schema name referenced by array items, if any.
func (s *Schema) ItemRef() string {
	if s == nil || s.Items == nil {
		return ""
	}
	return s.Items.Ref
}

// SchemaOrRef is either an inline schema or a reference to a named
// component schema. Ref holds the bare component name.
type SchemaOrRef struct {
	Ref    string
	Schema *Schema
}

// RefTo builds a reference to a named component schema.
func RefTo(name string) *SchemaOrRef {
	return &SchemaOrRef{Ref: name}
}

// Inline wraps a concrete schema.
func Inline(s *Schema) *SchemaOrRef {
	return &SchemaOrRef{Schema: s}
}

func (r *SchemaOrRef) IsRef() bool {
	return r != nil && r.Ref != ""
}

// Resolve returns the concrete schema, following a reference through c.
func (r *SchemaOrRef) Resolve(c *Components) *Schema {
	if r == nil {
		return nil
	}
	if r.Ref != "" {
		s, _ := c.Schema(r.Ref)
		return s
	}
	return r.Schema
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
