package postproc

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mark3labs/sdkgen/internal/generator"
	"github.com/mark3labs/sdkgen/internal/phpgen"
	"github.com/mark3labs/sdkgen/internal/placeholder"
)

const (
	testAttribute = `PHPUnit\Framework\Attributes\Test`
	mockClient    = `Saloon\Http\Faking\MockClient`
	mockResponse  = `Saloon\Http\Faking\MockResponse`
	mapNameAttr   = `Spatie\LaravelData\Attributes\MapName`

	// maxSampleDepth bounds nested DTO sample data.
	maxSampleDepth = 3
)

// PHPUnitStage emits the PHPUnit harness, one feature test per resource and
// one unit test per DTO.
type PHPUnitStage struct{}

func (PHPUnitStage) Name() string { return "phpunit" }

func (PHPUnitStage) Apply(_ context.Context, in generator.Input, code generator.GeneratedCode) (generator.GeneratedCode, error) {
	cfg := in.Config
	var files []generator.TaggedOutputFile
	var issues []generator.Issue

	harness := []struct {
		path string
		fn   func() (string, error)
	}{
		{"tests/TestCase.php", func() (string, error) {
			return executeTemplate("phpunit_testcase", map[string]string{"Namespace": cfg.TestNamespace()})
		}},
		{"phpunit.xml", func() (string, error) { return executeTemplate("phpunit_xml", nil) }},
		{"testbench.yaml", testbenchConfig},
	}
	for _, h := range harness {
		content, err := h.fn()
		if err != nil {
			issues = append(issues, generator.Issue{Stage: "phpunit", Artifact: h.path, Err: err})
			continue
		}
		files = append(files, generator.TaggedOutputFile{Tag: TagPHPUnit, Path: h.path, Content: content})
	}

	auth, hasAuth := detectAuth(in.Spec)
	requests := requestFiles(code)
	for _, r := range generator.PlanResources(cfg, in.Spec) {
		path := "tests/Feature/" + r.Name + "Test.php"
		content, err := featureTest(cfg, code, requests, r, hasAuth && auth.needsTokenRequest())
		if err != nil {
			issues = append(issues, generator.Issue{Stage: "phpunit", Artifact: path, Err: err})
			continue
		}
		files = append(files, generator.TaggedOutputFile{Tag: TagPHPUnit, Path: path, Content: content})
	}

	for _, dto := range code.DTOs() {
		path := "tests/Unit/Dto/" + dto.Class.Name + "Test.php"
		content, err := dtoTest(cfg, code, dto)
		if err != nil {
			issues = append(issues, generator.Issue{Stage: "phpunit", Artifact: path, Err: err})
			continue
		}
		files = append(files, generator.TaggedOutputFile{Tag: TagPHPUnit, Path: path, Content: content})
	}
	return code.WithFiles(files...).WithIssues(issues...), nil
}

type testbench struct {
	Providers []string          `yaml:"providers"`
	Env       map[string]string `yaml:"env,omitempty"`
}

func testbenchConfig() (string, error) {
	out, err := yaml.Marshal(testbench{
		Providers: []string{
			`Spatie\LaravelData\LaravelDataServiceProvider`,
		},
		Env: map[string]string{"APP_ENV": "testing"},
	})
	if err != nil {
		return "", fmt.Errorf("render testbench.yaml: %w", err)
	}
	return string(out), nil
}

type featureMethod struct {
	Name       string
	Request    string
	Stub       string
	Accessor   string
	Method     string
	Args       []string
	DTO        string
	Collection bool
}

type featureData struct {
	Namespace     string
	Class         string
	Uses          string
	Connector     string
	ConnectorArgs []string
	TokenRequest  bool
	Methods       []featureMethod
}

func featureTest(cfg generator.Config, code generator.GeneratedCode, requests map[string]*phpgen.File, r generator.ResourcePlan, tokenRequest bool) (string, error) {
	if code.Connector() == nil {
		return "", fmt.Errorf("connector was not generated")
	}
	ns := cfg.TestNamespace() + `\Feature`
	data := featureData{
		Namespace:     ns,
		Class:         r.Name + "Test",
		ConnectorArgs: connectorArgs(code),
		TokenRequest:  tokenRequest,
	}
	imp := newImports(ns, data.Class)
	imp.add(testAttribute)
	imp.add(mockClient)
	imp.add(mockResponse)
	imp.add(cfg.TestNamespace() + `\TestCase`)
	data.Connector = imp.add(cfg.ConnectorFQN())

	for _, ep := range r.Endpoints {
		m := featureMethod{
			Name:     strings.ToLower(string(ep.Endpoint.Method)) + "_" + ep.MethodName,
			Request:  imp.add(ep.RequestFQN(cfg)),
			Stub:     stubName(r.Name, ep),
			Accessor: r.Accessor,
			Method:   ep.MethodName,
			Args:     endpointArgs(ep),
		}
		if fqn, collection := responseDTO(cfg, requests[ep.RequestFQN(cfg)]); fqn != "" {
			m.DTO = imp.add(fqn)
			m.Collection = collection
		}
		data.Methods = append(data.Methods, m)
	}

	data.Uses = strings.Join(imp.lines(), "\n") + "\n"
	if tokenRequest {
		data.Uses += "// use " + cfg.Namespace + `\Requests\TokenRequest;` + "\n"
	}
	return executeTemplate("phpunit_feature", data)
}

type nestedAssertion struct {
	Class    string
	Property string
}

type dtoData struct {
	Namespace    string
	Class        string
	Uses         string
	DTO          string
	Data         string
	RequiredData string
	ArrayData    string
	Assertions   []string
	Nullable     []string
	Nested       []nestedAssertion
	Arrays       []string
}

// dtoProperty is one constructor parameter of a generated DTO.
type dtoProperty struct {
	Name     string
	Wire     string
	Type     string
	Nullable bool
	// Item is the DTO class of array items, if documented.
	Item string
}

func dtoProperties(f *phpgen.File) ([]dtoProperty, error) {
	if f == nil || f.Class == nil {
		return nil, fmt.Errorf("DTO file has no class")
	}
	ctor := f.Class.Method("__construct")
	if ctor == nil {
		return nil, nil
	}
	props := make([]dtoProperty, 0, len(ctor.Params))
	for _, p := range ctor.Params {
		prop := dtoProperty{Name: p.Name, Wire: p.Name, Type: p.Type, Nullable: p.Nullable}
		for _, a := range p.Attributes {
			if a.Name == mapNameAttr && len(a.Args) == 1 {
				prop.Wire = unquote(a.Args[0])
			}
		}
		if rest, ok := strings.CutPrefix(p.Comment, "@var "); ok {
			if item, _, ok := strings.Cut(rest, "[]"); ok {
				prop.Item = item
			}
		}
		props = append(props, prop)
	}
	return props, nil
}

func shortName(fqn string) string {
	return fqn[strings.LastIndex(fqn, `\`)+1:]
}

// unquote reverses phpgen.Quote.
func unquote(s string) string {
	s = strings.TrimSuffix(strings.TrimPrefix(s, "'"), "'")
	return strings.NewReplacer(`\'`, `'`, `\\`, `\`).Replace(s)
}

// sampler builds property bags for DTOs from their generated constructors.
type sampler struct {
	cfg  generator.Config
	code generator.GeneratedCode
}

// sample returns data for class. With required set only non-nullable
// properties are filled. arrayItems is the length of array properties.
func (s sampler) sample(class string, required bool, arrayItems, depth int) (phpgen.Map, error) {
	f, ok := s.code.DTO(class)
	if !ok {
		return nil, fmt.Errorf("DTO %s was not generated", class)
	}
	props, err := dtoProperties(f)
	if err != nil {
		return nil, err
	}
	out := phpgen.Map{}
	for _, p := range props {
		if required && p.Nullable {
			continue
		}
		out = append(out, phpgen.Entry{Key: p.Wire, Value: s.value(p, arrayItems, depth)})
	}
	return out, nil
}

func (s sampler) value(p dtoProperty, arrayItems, depth int) any {
	if s.cfg.IsDTOType(p.Type) {
		if depth >= maxSampleDepth {
			return nil
		}
		nested, err := s.sample(shortName(p.Type), true, 0, depth+1)
		if err != nil {
			return nil
		}
		return nested
	}
	if p.Type == "array" && arrayItems > 0 {
		items := make([]any, arrayItems)
		for i := range items {
			items[i] = "item " + strconv.Itoa(i+1)
			if p.Item != "" && depth < maxSampleDepth {
				if nested, err := s.sample(p.Item, true, 0, depth+1); err == nil {
					items[i] = nested
				}
			}
		}
		return items
	}
	return placeholder.ForProperty(p.Type, p.Wire)
}

func dtoTest(cfg generator.Config, code generator.GeneratedCode, f *phpgen.File) (string, error) {
	props, err := dtoProperties(f)
	if err != nil {
		return "", err
	}
	class := f.Class.Name
	ns := cfg.TestNamespace() + `\Unit\Dto`
	data := dtoData{Namespace: ns, Class: class + "Test"}
	imp := newImports(ns, data.Class)
	imp.add(testAttribute)
	imp.add(cfg.TestNamespace() + `\TestCase`)
	data.DTO = imp.add(f.Namespace + `\` + class)

	s := sampler{cfg: cfg, code: code}
	full, err := s.sample(class, false, 0, 0)
	if err != nil {
		return "", err
	}
	data.Data = phpgen.ExportIndent(full, 2)

	for i, p := range props {
		value := full[i].Value
		switch {
		case cfg.IsDTOType(p.Type):
			// Nested DTOs past the sample depth come out null.
			if value == nil {
				data.Assertions = append(data.Assertions, "$this->assertNull($dto->"+p.Name+");")
				break
			}
			ref := imp.add(strings.TrimPrefix(p.Type, "?"))
			data.Nested = append(data.Nested, nestedAssertion{Class: ref, Property: p.Name})
			data.Assertions = append(data.Assertions, "$this->assertInstanceOf("+ref+"::class, $dto->"+p.Name+");")
		case value == nil:
			data.Assertions = append(data.Assertions, "$this->assertNull($dto->"+p.Name+");")
		default:
			data.Assertions = append(data.Assertions, typeAssertions(p, full[i].Key)...)
		}
		if p.Type == "array" {
			data.Arrays = append(data.Arrays, p.Name)
		}
		if p.Nullable {
			data.Nullable = append(data.Nullable, p.Name)
		}
	}
	if len(data.Nullable) > 0 {
		req, err := s.sample(class, true, 0, 0)
		if err != nil {
			return "", err
		}
		data.RequiredData = phpgen.ExportIndent(req, 2)
	}
	if len(data.Arrays) > 0 {
		arr, err := s.sample(class, false, 2, 0)
		if err != nil {
			return "", err
		}
		data.ArrayData = phpgen.ExportIndent(arr, 2)
	}

	data.Uses = strings.Join(imp.lines(), "\n") + "\n"
	return executeTemplate("phpunit_dto", data)
}

func typeAssertions(p dtoProperty, wire string) []string {
	prop := "$dto->" + p.Name
	equals := "$this->assertEquals($data[" + phpgen.Quote(wire) + "], " + prop + ");"
	switch p.Type {
	case "string":
		return []string{"$this->assertIsString(" + prop + ");", equals}
	case "int":
		return []string{"$this->assertIsInt(" + prop + ");", equals}
	case "float":
		return []string{"$this->assertIsFloat(" + prop + ");", equals}
	case "int|float", "float|int":
		return []string{"$this->assertIsNumeric(" + prop + ");", equals}
	case "bool":
		return []string{"$this->assertIsBool(" + prop + ");", equals}
	case "array":
		return []string{"$this->assertIsArray(" + prop + ");"}
	default:
		return []string{"$this->assertNotNull(" + prop + ");"}
	}
}
