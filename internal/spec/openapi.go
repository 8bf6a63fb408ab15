package spec

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/sdkgen/internal/naming"
)

// OpenAPIParser reads OpenAPI 3.x and Swagger 2.0 documents (YAML or JSON).
// Swagger documents are converted to OpenAPI 3 before normalization.
type OpenAPIParser struct{}

func (OpenAPIParser) Parse(ctx context.Context, path string) (*Specification, error) {
	doc, err := LoadOpenAPI(ctx, path)
	if err != nil {
		return nil, err
	}
	return FromOpenAPI(doc), nil
}

// LoadOpenAPI reads path and returns an OpenAPI 3 document with refs resolved.
func LoadOpenAPI(ctx context.Context, path string) (*openapi3.T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(path) == "" {
		return nil, &SpecError{Code: InputError, Message: "spec: input is empty"}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("resolve path: %v", err), Location: path, Cause: err}
	}
	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("read file %s: %v", abs, err), Location: abs, Cause: err}
	}

	version, err := detectSpecVersion(raw)
	if err != nil {
		return nil, &SpecError{Code: ParseError, Message: err.Error(), Location: abs, Cause: err}
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	loader.IsExternalRefsAllowed = true

	switch version {
	case 3:
		doc, err := loader.LoadFromFile(abs)
		if err != nil {
			return nil, &SpecError{Code: ParseError, Message: err.Error(), Location: abs, Cause: err}
		}
		return doc, nil
	case 2:
		doc, err := convertV2ToV3(raw)
		if err != nil {
			return nil, &SpecError{Code: ConversionError, Message: fmt.Sprintf("convert v2→v3: %v", err), Location: abs, Cause: err}
		}
		if err := loader.ResolveRefsIn(doc, nil); err != nil {
			return nil, &SpecError{Code: ConversionError, Message: fmt.Sprintf("resolve refs after conversion: %v", err), Location: abs, Cause: err}
		}
		return doc, nil
	default:
		return nil, &SpecError{Code: ParseError, Message: "spec: unknown or unsupported OpenAPI/Swagger version", Location: abs}
	}
}

// detectSpecVersion returns 3 for OpenAPI v3, 2 for Swagger v2, else error.
func detectSpecVersion(data []byte) (int, error) {
	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return 0, fmt.Errorf("parse spec: %w", err)
	}
	if s, _ := root["openapi"].(string); strings.HasPrefix(strings.TrimSpace(s), "3.") {
		return 3, nil
	}
	if s, _ := root["swagger"].(string); strings.HasPrefix(strings.TrimSpace(s), "2.") {
		return 2, nil
	}
	return 0, fmt.Errorf("spec: missing or unknown version (expected 'openapi: 3.x' or 'swagger: 2.0')")
}

// convertV2ToV3 routes YAML through JSON because openapi2.T only decodes
// JSON reliably.
func convertV2ToV3(data []byte) (*openapi3.T, error) {
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	tree = stringKeys(tree)
	if root, ok := tree.(map[string]any); ok {
		fixV2BodyParams(root)
	}
	encoded, err := json.Marshal(tree)
	if err != nil {
		return nil, err
	}
	var v2 openapi2.T
	if err := json.Unmarshal(encoded, &v2); err != nil {
		return nil, err
	}
	return openapi2conv.ToV3(&v2)
}

// stringKeys rewrites map[any]any nodes (unquoted numeric keys such as
// response codes) into map[string]any so the tree is JSON-encodable.
func stringKeys(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, elem := range val {
			val[k] = stringKeys(elem)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[fmt.Sprint(k)] = stringKeys(elem)
		}
		return out
	case []any:
		for i, elem := range val {
			val[i] = stringKeys(elem)
		}
		return val
	default:
		return v
	}
}

// FromOpenAPI normalizes a loaded document.
func FromOpenAPI(doc *openapi3.T) *Specification {
	sp := &Specification{}
	if doc == nil {
		return sp
	}
	if doc.Info != nil {
		sp.Name = strings.TrimSpace(doc.Info.Title)
		sp.Description = strings.TrimSpace(doc.Info.Description)
	}
	if len(doc.Servers) > 0 && doc.Servers[0] != nil {
		sp.BaseURL = toBaseURL(doc.Servers[0])
	}
	sp.Components = toComponents(doc.Components)

	paths := make([]string, 0, len(doc.Paths))
	for p := range doc.Paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		item := doc.Paths[p]
		if item == nil {
			continue
		}
		ops := []struct {
			m Method
			o *openapi3.Operation
		}{
			{GET, item.Get},
			{POST, item.Post},
			{PUT, item.Put},
			{PATCH, item.Patch},
			{DELETE, item.Delete},
			{HEAD, item.Head},
			{OPTIONS, item.Options},
			{TRACE, item.Trace},
		}
		for _, pair := range ops {
			if pair.o == nil {
				continue
			}
			sp.Endpoints = append(sp.Endpoints, toEndpoint(p, pair.m, item.Parameters, pair.o, sp.Components))
		}
	}
	return sp
}

func toBaseURL(s *openapi3.Server) BaseURL {
	b := BaseURL{URL: strings.TrimSpace(s.URL)}
	names := make([]string, 0, len(s.Variables))
	for name := range s.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v := s.Variables[name]
		p := Parameter{Name: name, Type: "string"}
		if v != nil {
			p.Description = strings.TrimSpace(v.Description)
			p.Default = v.Default
		}
		b.Parameters = append(b.Parameters, p)
	}
	return b
}

func toComponents(c *openapi3.Components) *Components {
	out := &Components{
		Schemas:         map[string]*Schema{},
		SecuritySchemes: map[string]SecurityScheme{},
	}
	if c == nil {
		return out
	}
	for name, ref := range c.Schemas {
		if ref == nil || ref.Value == nil {
			continue
		}
		out.Schemas[name] = toSchema(ref.Value)
	}
	for name, ref := range c.SecuritySchemes {
		if ref == nil || ref.Value == nil {
			continue
		}
		v := ref.Value
		out.SecuritySchemes[name] = SecurityScheme{
			Type:         SecuritySchemeType(v.Type),
			Name:         v.Name,
			In:           v.In,
			Scheme:       strings.ToLower(v.Scheme),
			BearerFormat: v.BearerFormat,
			Description:  strings.TrimSpace(v.Description),
		}
	}
	return out
}

func toEndpoint(path string, method Method, shared openapi3.Parameters, op *openapi3.Operation, comps *Components) Endpoint {
	ep := Endpoint{
		Method:       method,
		Description:  strings.TrimSpace(firstNonEmpty(op.Description, op.Summary)),
		PathSegments: splitPath(path),
	}
	ep.Name = firstNonEmpty(strings.TrimSpace(op.OperationID), strings.TrimSpace(op.Summary))
	if ep.Name == "" {
		ep.Name = naming.PathBasedName(string(method), ep.PathSegments)
	}
	if len(op.Tags) > 0 {
		ep.Collection = strings.TrimSpace(op.Tags[0])
	}
	if ep.Collection == "" {
		for _, seg := range ep.PathSegments {
			if !IsPathVariable(seg) {
				ep.Collection = seg
				break
			}
		}
	}

	// Operation-level parameters override path-level ones with the same key.
	merged := map[string]*openapi3.Parameter{}
	var order []string
	for _, list := range []openapi3.Parameters{shared, op.Parameters} {
		for _, pref := range list {
			if pref == nil || pref.Value == nil {
				continue
			}
			key := pref.Value.In + ":" + pref.Value.Name
			if _, seen := merged[key]; !seen {
				order = append(order, key)
			}
			merged[key] = pref.Value
		}
	}
	for _, key := range order {
		p := merged[key]
		param := Parameter{
			Name:        p.Name,
			Nullable:    !p.Required,
			Description: strings.TrimSpace(p.Description),
		}
		applySchemaType(&param, p.Schema)
		switch p.In {
		case openapi3.ParameterInPath:
			param.Nullable = false
			ep.PathParameters = append(ep.PathParameters, param)
		case openapi3.ParameterInQuery:
			ep.QueryParameters = append(ep.QueryParameters, param)
		case openapi3.ParameterInHeader:
			ep.HeaderParameters = append(ep.HeaderParameters, param)
		}
	}

	if op.RequestBody != nil && op.RequestBody.Value != nil {
		if mt := pickJSON(op.RequestBody.Value.Content); mt != nil && mt.Schema != nil && mt.Schema.Value != nil {
			ep.BodyParameters = bodyParameters(mt.Schema.Value)
		}
	}

	if resp := pickResponse(op.Responses); resp != nil {
		if mt := pickJSON(resp.Content); mt != nil && mt.Schema != nil {
			ep.Response = toSchemaOrRef(mt.Schema)
			detectResponseDTO(&ep, comps)
		}
	}
	return ep
}

func bodyParameters(s *openapi3.Schema) []Parameter {
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	required := map[string]bool{}
	for _, r := range s.Required {
		required[r] = true
	}
	out := make([]Parameter, 0, len(names))
	for _, name := range names {
		ref := s.Properties[name]
		p := Parameter{Name: name, Nullable: !required[name]}
		if ref != nil && ref.Value != nil {
			p.Description = strings.TrimSpace(ref.Value.Description)
			if ref.Value.Nullable {
				p.Nullable = true
			}
		}
		applySchemaType(&p, ref)
		out = append(out, p)
	}
	return out
}

// applySchemaType sets the primitive type and reference tags of p.
func applySchemaType(p *Parameter, ref *openapi3.SchemaRef) {
	p.Type = "mixed"
	if ref == nil {
		return
	}
	if ref.Ref != "" {
		p.Ref = refName(ref.Ref)
		p.Type = "object"
		return
	}
	if ref.Value == nil {
		return
	}
	p.Type = primitiveType(ref.Value.Type, ref.Value.Format)
	if ref.Value.Type == "array" && ref.Value.Items != nil && ref.Value.Items.Ref != "" {
		p.ItemRef = refName(ref.Value.Items.Ref)
	}
}

func primitiveType(typ, format string) string {
	switch typ {
	case "integer":
		return "int"
	case "number":
		if format == "float" {
			return "float"
		}
		return "int|float"
	case "boolean":
		return "bool"
	case "string":
		return "string"
	case "array", "object":
		return "array"
	default:
		return "mixed"
	}
}

// detectResponseDTO tags the endpoint with the response DTO and the unwrap
// strategy implied by the response shape.
func detectResponseDTO(ep *Endpoint, comps *Components) {
	r := ep.Response
	if r == nil {
		return
	}
	if r.IsRef() {
		if inner, ok := envelope(r.Resolve(comps)); ok {
			applyEnvelope(ep, inner)
			return
		}
		ep.ResponseDTO = r.Ref
		return
	}
	s := r.Schema
	if s == nil {
		return
	}
	if s.Type() == "array" {
		if item := s.ItemRef(); item != "" {
			ep.ResponseDTO = item
			ep.ResponseDTOIsCollection = true
		}
		return
	}
	if inner, ok := envelope(s); ok {
		applyEnvelope(ep, inner)
	}
}

type envelopeShape struct {
	dto        string
	collection bool
	paginated  bool
}

// envelope recognizes {data: X} and {data: [X], meta|links: ...} wrappers.
func envelope(s *Schema) (envelopeShape, bool) {
	if s == nil || s.Properties == nil {
		return envelopeShape{}, false
	}
	data, ok := s.Properties["data"]
	if !ok || data == nil {
		return envelopeShape{}, false
	}
	if data.IsRef() {
		return envelopeShape{dto: data.Ref}, true
	}
	if data.Schema != nil && data.Schema.Type() == "array" && data.Schema.ItemRef() != "" {
		_, hasMeta := s.Properties["meta"]
		_, hasLinks := s.Properties["links"]
		return envelopeShape{
			dto:        data.Schema.ItemRef(),
			collection: true,
			paginated:  hasMeta || hasLinks,
		}, true
	}
	return envelopeShape{}, false
}

func applyEnvelope(ep *Endpoint, e envelopeShape) {
	ep.ResponseDTO = e.dto
	ep.ResponseDTOIsCollection = e.collection
	ep.ResponseDTOIsPaginated = e.paginated
	if !e.paginated {
		ep.ResponseDTOPath = "data"
	}
}

func pickResponse(responses openapi3.Responses) *openapi3.Response {
	codes := make([]string, 0, len(responses))
	for code := range responses {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		if strings.HasPrefix(code, "2") {
			if ref := responses[code]; ref != nil && ref.Value != nil {
				return ref.Value
			}
		}
	}
	if ref := responses["default"]; ref != nil && ref.Value != nil {
		return ref.Value
	}
	return nil
}

func pickJSON(content openapi3.Content) *openapi3.MediaType {
	if mt := content.Get("application/json"); mt != nil {
		return mt
	}
	keys := make([]string, 0, len(content))
	for k := range content {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.Contains(k, "json") {
			return content[k]
		}
	}
	return nil
}

func toSchemaOrRef(ref *openapi3.SchemaRef) *SchemaOrRef {
	if ref == nil {
		return nil
	}
	if ref.Ref != "" {
		return RefTo(refName(ref.Ref))
	}
	if ref.Value == nil {
		return nil
	}
	return Inline(toSchema(ref.Value))
}

func toSchema(v *openapi3.Schema) *Schema {
	s := &Schema{
		Format:      v.Format,
		Title:       strings.TrimSpace(v.Title),
		Description: strings.TrimSpace(v.Description),
		Nullable:    v.Nullable,
		Example:     v.Example,
		Default:     v.Default,
		Minimum:     v.Min,
		Maximum:     v.Max,
		MaxLength:   v.MaxLength,
		Required:    append([]string(nil), v.Required...),
	}
	if v.Type != "" {
		s.Types = []string{v.Type}
	}
	if v.MinLength > 0 {
		n := v.MinLength
		s.MinLength = &n
	}
	if v.MinItems > 0 {
		n := v.MinItems
		s.MinItems = &n
	}
	if len(v.Enum) > 0 {
		s.Enum = append([]any(nil), v.Enum...)
	}
	if v.Items != nil {
		s.Items = toSchemaOrRef(v.Items)
	}
	if len(v.Properties) > 0 {
		s.Properties = make(map[string]*SchemaOrRef, len(v.Properties))
		for name, p := range v.Properties {
			if sr := toSchemaOrRef(p); sr != nil {
				s.Properties[name] = sr
			}
		}
	}
	// allOf members are flattened into a single object.
	for _, member := range v.AllOf {
		if member == nil || member.Value == nil {
			continue
		}
		flat := toSchema(member.Value)
		if len(s.Types) == 0 {
			s.Types = flat.Types
		}
		if s.Properties == nil && len(flat.Properties) > 0 {
			s.Properties = map[string]*SchemaOrRef{}
		}
		for name, p := range flat.Properties {
			if _, exists := s.Properties[name]; !exists {
				s.Properties[name] = p
			}
		}
		s.Required = append(s.Required, flat.Required...)
	}
	if len(s.Types) == 0 && len(s.Properties) > 0 {
		s.Types = []string{"object"}
	}
	return s
}

// refName reduces "#/components/schemas/User" (or a file-relative ref) to
// the bare schema name.
func refName(ref string) string {
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return strings.TrimPrefix(ref, "#")
}

func splitPath(p string) []string {
	var out []string
	for _, seg := range strings.Split(p, "/") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			seg = ":" + strings.Trim(seg, "{}")
		}
		out = append(out, seg)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
