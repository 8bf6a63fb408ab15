package postproc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/google/uuid"

	"github.com/mark3labs/sdkgen/internal/generator"
	"github.com/mark3labs/sdkgen/internal/spec"
)

const (
	maxStubDepth   = 5
	stubCollection = 3
)

// stubNamespace seeds name-based uuids so fixtures stay stable across runs.
var stubNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/mark3labs/sdkgen/stubs"))

// StubStage writes one JSON fixture per endpoint under tests/Stubs, shaped
// like the response its request materializes.
type StubStage struct{}

func (StubStage) Name() string { return "stub" }

func (StubStage) Apply(_ context.Context, in generator.Input, code generator.GeneratedCode) (generator.GeneratedCode, error) {
	var files []generator.TaggedOutputFile
	var issues []generator.Issue
	for _, r := range generator.PlanResources(in.Config, in.Spec) {
		for _, ep := range r.Endpoints {
			path := StubPath(r.Name, ep)
			content, err := EndpointStub(in.Spec.Components, ep.Endpoint)
			if err != nil {
				issues = append(issues, generator.Issue{Stage: "stub", Artifact: path, Err: err})
				continue
			}
			files = append(files, generator.TaggedOutputFile{Tag: TagStub, Path: path, Content: content})
		}
	}
	return code.WithFiles(files...).WithIssues(issues...), nil
}

// StubPath is where the fixture for ep is written, relative to the output
// directory.
func StubPath(resource string, ep generator.PlannedEndpoint) string {
	return "tests/Stubs/" + stubName(resource, ep) + ".json"
}

// stubName is the fixture name as tests load it: Resource/method.
func stubName(resource string, ep generator.PlannedEndpoint) string {
	return resource + "/" + ep.MethodName
}

type paginationMeta struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	LastPage    int `json:"last_page"`
}

type paginationLinks struct {
	First string  `json:"first"`
	Last  string  `json:"last"`
	Prev  *string `json:"prev"`
	Next  string  `json:"next"`
}

type paginatedStub struct {
	Data  []any           `json:"data"`
	Meta  paginationMeta  `json:"meta"`
	Links paginationLinks `json:"links"`
}

// EndpointStub synthesizes the JSON fixture for one endpoint. Endpoints
// without a response schema get {"message": "Success"}.
func EndpointStub(comps *spec.Components, ep spec.Endpoint) (string, error) {
	var v any
	switch {
	case ep.Response == nil:
		v = map[string]any{"message": "Success"}
	case ep.ResponseDTOIsPaginated:
		v = paginatedStub{
			Data: synthesizeItems(comps, itemSchema(comps, ep)),
			Meta: paginationMeta{CurrentPage: 1, PerPage: 20, Total: 100, LastPage: 5},
			Links: paginationLinks{
				First: "https://api.example.com/resource?page=1",
				Last:  "https://api.example.com/resource?page=5",
				Next:  "https://api.example.com/resource?page=2",
			},
		}
	case ep.ResponseDTOIsCollection:
		v = wrap(ep.ResponseDTOPath, synthesizeItems(comps, itemSchema(comps, ep)))
	case ep.ResponseDTO != "":
		s := &synthesizer{comps: comps, counter: 1}
		v = wrap(ep.ResponseDTOPath, s.value(itemSchema(comps, ep), 0))
	default:
		s := &synthesizer{comps: comps, counter: 1}
		v = s.value(ep.Response, 0)
	}
	return encodeJSON(v)
}

// itemSchema is the schema of one materialized DTO: the named component
// when it exists, else the raw response.
func itemSchema(comps *spec.Components, ep spec.Endpoint) *spec.SchemaOrRef {
	if ep.ResponseDTO != "" {
		if _, ok := comps.Schema(ep.ResponseDTO); ok {
			return spec.RefTo(ep.ResponseDTO)
		}
	}
	return ep.Response
}

func synthesizeItems(comps *spec.Components, ref *spec.SchemaOrRef) []any {
	items := make([]any, stubCollection)
	for i := range items {
		s := &synthesizer{comps: comps, counter: i + 1}
		items[i] = s.value(ref, 0)
	}
	return items
}

func wrap(path string, v any) any {
	if path == "" {
		return v
	}
	return map[string]any{path: v}
}

func encodeJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encode stub: %w", err)
	}
	return buf.String(), nil
}

// synthesizer builds sample values from schemas. counter advances as
// values are produced so siblings differ; nothing depends on the clock or
// a random source.
type synthesizer struct {
	comps   *spec.Components
	counter int
}

func (g *synthesizer) value(ref *spec.SchemaOrRef, depth int) any {
	if depth > maxStubDepth || ref == nil {
		return nil
	}
	s := ref.Resolve(g.comps)
	if s == nil {
		return nil
	}
	switch {
	case s.Example != nil:
		return s.Example
	case s.Default != nil:
		return s.Default
	case len(s.Enum) > 0:
		return s.Enum[0]
	}

	switch s.Type() {
	case "string":
		return g.stringValue(s)
	case "integer":
		return g.intValue(s)
	case "number":
		return g.numberValue(s)
	case "boolean":
		return g.counter%2 == 1
	case "array":
		return g.arrayValue(s, depth)
	case "object":
		return g.objectValue(s, depth)
	case "":
		if len(s.Properties) > 0 {
			return g.objectValue(s, depth)
		}
	}
	return nil
}

func (g *synthesizer) stringValue(s *spec.Schema) string {
	n := strconv.Itoa(g.counter)
	switch s.Format {
	case "date":
		return "2024-01-15"
	case "date-time":
		return "2024-01-15T10:30:00+00:00"
	case "email":
		return "test" + n + "@example.com"
	case "uuid":
		return uuid.NewSHA1(stubNamespace, []byte(n)).String()
	case "uri", "url":
		return "https://example.com/resource/" + n
	}

	minLen, maxLen := uint64(5), uint64(50)
	if s.MinLength != nil {
		minLen = *s.MinLength
	}
	if s.MaxLength != nil {
		maxLen = *s.MaxLength
	}
	length := min(max(minLen, 10), maxLen)
	base := "Sample text " + n
	if uint64(len(base)) > length {
		return base[:length]
	}
	return base
}

func (g *synthesizer) intValue(s *spec.Schema) int64 {
	lo, hi := int64(1), int64(1000)
	if s.Minimum != nil {
		lo = int64(math.Ceil(*s.Minimum))
	}
	if s.Maximum != nil {
		hi = int64(math.Floor(*s.Maximum))
	}
	if hi <= lo {
		return lo
	}
	return lo + int64(g.counter)%(hi-lo+1)
}

func (g *synthesizer) numberValue(s *spec.Schema) float64 {
	lo, hi := 1.0, 1000.0
	if s.Minimum != nil {
		lo = *s.Minimum
	}
	if s.Maximum != nil {
		hi = *s.Maximum
	}
	if hi <= lo {
		return lo
	}
	frac := float64(g.counter%100) / 100
	return math.Round((lo+frac*(hi-lo))*100) / 100
}

func (g *synthesizer) arrayValue(s *spec.Schema, depth int) []any {
	count := uint64(2)
	if s.MinItems != nil {
		count = *s.MinItems
	}
	count = min(count, stubCollection)
	items := make([]any, 0, count)
	for i := range int(count) {
		g.counter++
		if s.Items == nil {
			items = append(items, "item_"+strconv.Itoa(i))
			continue
		}
		items = append(items, g.value(s.Items, depth+1))
	}
	return items
}

func (g *synthesizer) objectValue(s *spec.Schema, depth int) map[string]any {
	obj := make(map[string]any, len(s.Properties))
	for _, name := range s.PropertyNames() {
		g.counter++
		obj[name] = g.value(s.Properties[name], depth+1)
	}
	return obj
}
