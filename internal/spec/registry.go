package spec

import (
	"context"
	"sort"
	"strings"
)

// SpecParser turns a local specification file into the normalized model.
type SpecParser interface {
	Parse(ctx context.Context, path string) (*Specification, error)
}

// ParserFunc adapts a plain function to SpecParser.
type ParserFunc func(ctx context.Context, path string) (*Specification, error)

func (f ParserFunc) Parse(ctx context.Context, path string) (*Specification, error) {
	return f(ctx, path)
}

// Registry maps type labels such as "openapi" to parsers.
type Registry struct {
	parsers map[string]SpecParser
}

func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]SpecParser)}
}

// DefaultRegistry returns a registry with the built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("openapi", OpenAPIParser{})
	r.Register("postman", PostmanParser{})
	return r
}

// Register adds or replaces the parser for typ. Labels are case-insensitive.
func (r *Registry) Register(typ string, p SpecParser) {
	r.parsers[normalizeType(typ)] = p
}

// Lookup returns the parser for typ or a *ParserNotRegisteredError.
func (r *Registry) Lookup(typ string) (SpecParser, error) {
	if p, ok := r.parsers[normalizeType(typ)]; ok {
		return p, nil
	}
	return nil, &ParserNotRegisteredError{Type: typ, Available: r.Types()}
}

// Types lists registered labels in sorted order.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.parsers))
	for k := range r.parsers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Parse looks up typ and parses path with it.
func (r *Registry) Parse(ctx context.Context, typ, path string) (*Specification, error) {
	p, err := r.Lookup(typ)
	if err != nil {
		return nil, err
	}
	return p.Parse(ctx, path)
}

func normalizeType(typ string) string {
	return strings.ToLower(strings.TrimSpace(typ))
}
