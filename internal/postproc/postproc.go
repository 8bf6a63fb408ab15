// Package postproc holds the stages that run after the class generators:
// JSON fixtures, PHPUnit or Pest tests, the composer manifest and the pint
// config. Each one reads the finished classes and the specification and
// appends tagged files to the bundle.
package postproc

import (
	"fmt"
	"strings"

	"github.com/mark3labs/sdkgen/internal/generator"
	"github.com/mark3labs/sdkgen/internal/phpgen"
	"github.com/mark3labs/sdkgen/internal/placeholder"
	"github.com/mark3labs/sdkgen/internal/spec"
)

// Tags carried by the files each post-processor emits.
const (
	TagStub     = "stub"
	TagPHPUnit  = "phpunit"
	TagPest     = "pest"
	TagComposer = "composer"
	TagPint     = "pint"
)

// Framework selects the generated test suite.
type Framework string

const (
	PHPUnit Framework = "phpunit"
	Pest    Framework = "pest"
)

// ParseFramework validates a --test-framework value.
func ParseFramework(raw string) (Framework, error) {
	switch f := Framework(strings.ToLower(strings.TrimSpace(raw))); f {
	case "", PHPUnit:
		return PHPUnit, nil
	case Pest:
		return Pest, nil
	default:
		return "", fmt.Errorf("unknown test framework %q (want phpunit or pest)", raw)
	}
}

// Stages returns the post-processors for a run, in execution order.
func Stages(fw Framework) []generator.Stage {
	tests := generator.Stage(PHPUnitStage{})
	if fw == Pest {
		tests = PestStage{}
	}
	return []generator.Stage{StubStage{}, tests, ComposerStage{Framework: fw}, PintStage{}}
}

// authKind is the flavour of authentication tests need to scaffold.
type authKind struct {
	Type   spec.SecuritySchemeType
	Scheme string
}

func detectAuth(sp *spec.Specification) (authKind, bool) {
	scheme, ok := sp.Components.PrimarySecurityScheme()
	if !ok {
		return authKind{}, false
	}
	k := authKind{Type: scheme.Type, Scheme: strings.ToLower(scheme.Scheme)}
	if k.Type == spec.SecurityHTTP && k.Scheme == "" {
		k.Scheme = "bearer"
	}
	return k, true
}

// needsTokenRequest reports whether acquiring credentials usually takes a
// request of its own, which tests then hint at in comments.
func (k authKind) needsTokenRequest() bool {
	return k.Type == spec.SecurityOAuth2 || (k.Type == spec.SecurityHTTP && k.Scheme == "bearer")
}

// connectorArgs builds named arguments for constructing the connector in
// tests. Parameters with a default are left out.
func connectorArgs(code generator.GeneratedCode) []string {
	f := code.Connector()
	if f == nil || f.Class == nil {
		return nil
	}
	ctor := f.Class.Method("__construct")
	if ctor == nil {
		return nil
	}
	var args []string
	for _, p := range ctor.Params {
		if p.HasDefault() || p.Nullable {
			continue
		}
		args = append(args, p.Name+": "+placeholder.Literal(p.Type))
	}
	return args
}

// endpointArgs builds named arguments for calling a resource method.
func endpointArgs(ep generator.PlannedEndpoint) []string {
	params := ep.Params()
	args := make([]string, len(params))
	for i, p := range params {
		args[i] = p.Var + ": " + placeholder.Literal(p.PHPType)
	}
	return args
}

// requestFiles indexes generated requests by fully-qualified class name.
func requestFiles(code generator.GeneratedCode) map[string]*phpgen.File {
	out := map[string]*phpgen.File{}
	for _, f := range code.Requests() {
		if f.Class != nil {
			out[f.Namespace+`\`+f.Class.Name] = f
		}
	}
	return out
}

// responseDTO returns the class createDtoFromResponse materializes for ep,
// or "" when the request has no such method.
func responseDTO(cfg generator.Config, req *phpgen.File) (fqn string, collection bool) {
	if req == nil || req.Class == nil {
		return "", false
	}
	m := req.Class.Method("createDtoFromResponse")
	if m == nil {
		return "", false
	}
	if m.ReturnType != "array" {
		return m.ReturnType, false
	}
	// Collections document their item class in the docblock.
	item := strings.TrimSuffix(strings.TrimPrefix(m.Comment, "@return "), "[]")
	for _, u := range req.Uses() {
		ref := u.Alias
		if ref == "" {
			ref = shortName(u.Name)
		}
		if ref == item {
			return u.Name, true
		}
	}
	return cfg.DTOFQN(item), true
}

// imports collects the use statements of a generated test file, resolving
// clashes the same way generated classes do.
type imports struct {
	file *phpgen.File
}

func newImports(namespace, class string) *imports {
	f := phpgen.NewFile(namespace)
	f.AddClass(class)
	return &imports{file: f}
}

func (i *imports) add(fqn string) string { return i.file.AddUse(fqn) }

// lines returns the use statements in sorted order.
func (i *imports) lines() []string {
	var out []string
	for _, u := range i.file.Uses() {
		line := "use " + u.Name
		if u.Alias != "" && !strings.HasSuffix(u.Name, `\`+u.Alias) {
			line += " as " + u.Alias
		}
		out = append(out, line+";")
	}
	return out
}
