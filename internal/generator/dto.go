package generator

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/mark3labs/sdkgen/internal/naming"
	"github.com/mark3labs/sdkgen/internal/phpgen"
	"github.com/mark3labs/sdkgen/internal/spec"
)

const (
	dataClass     = `Spatie\LaravelData\Data`
	mapNameAttr   = `Spatie\LaravelData\Attributes\MapName`
	paginationDTO = "PaginatedResponseMetaDto"
)

// DTOStage emits one data class per object schema in the components, the
// nested classes they need, and the pagination envelopes used by paginated
// endpoints.
type DTOStage struct{}

func (DTOStage) Name() string { return "dto" }

func (DTOStage) Apply(_ context.Context, in Input, code GeneratedCode) (GeneratedCode, error) {
	b := &dtoBuilder{cfg: in.Config, comps: in.Spec.Components, files: map[string]*phpgen.File{}, reserved: map[string]bool{}}
	var issues []Issue

	for _, name := range in.Spec.Components.SchemaNames() {
		if s, _ := in.Spec.Components.Schema(name); isObjectSchema(s) {
			b.reserved[naming.DTOClassName(name)] = true
		}
	}

	for _, name := range in.Spec.Components.SchemaNames() {
		s, _ := in.Spec.Components.Schema(name)
		if !isObjectSchema(s) {
			continue
		}
		if err := b.build(naming.DTOClassName(name), s); err != nil {
			issues = append(issues, Issue{Stage: "dto", Artifact: name, Err: err})
		}
	}

	paginated := false
	for _, ep := range in.Spec.Endpoints {
		if ep.ResponseDTOIsPaginated {
			paginated = true
			break
		}
	}
	if paginated {
		b.buildPaginationMeta()
	}
	for _, ep := range in.Spec.Endpoints {
		if !ep.ResponseDTOIsPaginated || ep.ResponseDTO == "" {
			continue
		}
		item := naming.DTOClassName(ep.ResponseDTO)
		if b.files[item] == nil {
			issues = append(issues, issue("dto", item+"PaginatedResponseDto", "item DTO %q was not generated", item))
			continue
		}
		b.buildPaginatedEnvelope(item)
	}

	names := make([]string, 0, len(b.files))
	for name, f := range b.files {
		if f != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	files := make([]*phpgen.File, len(names))
	for i, name := range names {
		files[i] = b.files[name]
	}
	return code.WithDTOs(files...).WithIssues(issues...), nil
}

type dtoBuilder struct {
	cfg   Config
	comps *spec.Components
	// files holds finished classes; a nil entry marks a class being built.
	files map[string]*phpgen.File
	// reserved holds class names of component schemas.
	reserved map[string]bool
}

var errEmptySchema = errors.New("schema is empty")

// build generates class from s and everything it references. Classes
// already present (or in progress) are not built again, which also ends
// recursion on self-referencing schemas.
func (b *dtoBuilder) build(class string, s *spec.Schema) error {
	if s == nil {
		return errEmptySchema
	}
	if _, seen := b.files[class]; seen {
		return nil
	}
	b.files[class] = nil

	f := phpgen.NewFile(b.cfg.DTONamespace())
	c := f.AddClass(class)
	c.Extends = dataClass
	f.AddUseAs(dataClass, "SpatieData")
	c.Comment = docComment(s.Title, s.Description)
	ctor := c.AddMethod("__construct")

	type property struct {
		name, typ, itemClass string
		nullable             bool
		ref                  *spec.SchemaOrRef
	}
	var props []property
	for _, name := range s.PropertyNames() {
		ref := s.Properties[name]
		typ, itemClass, nullable := b.propertyType(class, name, ref, s.IsRequired(name))
		props = append(props, property{name: name, typ: typ, itemClass: itemClass, nullable: nullable, ref: ref})
	}
	// Parameters with a null default go last.
	sort.SliceStable(props, func(i, j int) bool { return !props[i].nullable && props[j].nullable })

	used := map[string]bool{}
	for _, prop := range props {
		v := naming.SafeVariableName(prop.name)
		for base, n := v, 2; used[strings.ToLower(v)]; n++ {
			v = base + strconv.Itoa(n)
		}
		used[strings.ToLower(v)] = true

		p := ctor.AddPromotedParameter(v)
		p.Type = prop.typ
		if prop.nullable {
			p.Nullable = true
			p.Default = "null"
		}
		if prop.itemClass != "" {
			p.Comment = strings.TrimSpace("@var " + prop.itemClass + "[] " + oneLine(describe(prop.ref, b.comps)))
		}
		if v != prop.name {
			f.AddUse(mapNameAttr)
			p.AddAttribute(mapNameAttr, phpgen.Quote(prop.name))
		}
	}

	b.files[class] = f
	return nil
}

// propertyType resolves the PHP type of one property. itemClass is set for
// arrays whose items are DTOs.
func (b *dtoBuilder) propertyType(parent, prop string, ref *spec.SchemaOrRef, required bool) (typ, itemClass string, nullable bool) {
	if ref == nil {
		return "mixed", "", !required
	}
	if ref.IsRef() {
		return b.refType(ref.Ref), "", !required
	}

	s := ref.Schema
	nullable = !required || s.IsNullable()
	switch {
	case s.Type() == "array":
		if s.Items != nil {
			if s.Items.IsRef() {
				if cls, ok := b.dtoFor(s.Items.Ref); ok {
					itemClass = cls
				}
			} else if isObjectSchema(s.Items.Schema) && len(s.Items.Schema.Properties) > 0 {
				cls := b.inlineName(parent + naming.SafeClassName(prop) + "Item")
				if b.build(cls, s.Items.Schema) == nil {
					itemClass = cls
				}
			}
		}
		return "array", itemClass, nullable
	case isObjectSchema(s) && len(s.Properties) > 0:
		cls := b.inlineName(parent + naming.SafeClassName(prop))
		if err := b.build(cls, s); err != nil {
			return "array", "", nullable
		}
		return b.cfg.DTOFQN(cls), "", nullable
	}
	return schemaPHPType(s), "", nullable
}

// inlineName picks a class name for an inline object that collides with
// neither a component schema nor an already generated class.
func (b *dtoBuilder) inlineName(base string) string {
	name := base
	for n := 1; b.reserved[name] || b.hasClass(name); n++ {
		name = base + "Object"
		if n > 1 {
			name += strconv.Itoa(n)
		}
	}
	return name
}

func (b *dtoBuilder) hasClass(name string) bool {
	_, ok := b.files[name]
	return ok
}

// refType resolves a reference to a component schema: object schemas are
// DTOs, anything else collapses to its primitive type.
func (b *dtoBuilder) refType(name string) string {
	if cls, ok := b.dtoFor(name); ok {
		return b.cfg.DTOFQN(cls)
	}
	if s, ok := b.comps.Schema(name); ok {
		return schemaPHPType(s)
	}
	return "mixed"
}

// dtoFor ensures the DTO for a named component schema exists.
func (b *dtoBuilder) dtoFor(name string) (string, bool) {
	s, ok := b.comps.Schema(name)
	if !ok || !isObjectSchema(s) {
		return "", false
	}
	cls := naming.DTOClassName(name)
	if err := b.build(cls, s); err != nil {
		return "", false
	}
	return cls, true
}

func (b *dtoBuilder) buildPaginationMeta() {
	if _, ok := b.files[paginationDTO]; ok {
		return
	}
	f := phpgen.NewFile(b.cfg.DTONamespace())
	c := f.AddClass(paginationDTO)
	c.Extends = dataClass
	f.AddUseAs(dataClass, "SpatieData")
	f.AddUse(mapNameAttr)
	c.Comment = "Pagination metadata for paginated responses"
	ctor := c.AddMethod("__construct")
	for _, wire := range []string{"current_page", "per_page", "last_page", "total", "from", "to"} {
		p := ctor.AddPromotedParameter(naming.SafeVariableName(wire))
		p.Type = "int"
		p.Nullable = true
		p.Default = "null"
		if p.Name != wire {
			p.AddAttribute(mapNameAttr, phpgen.Quote(wire))
		}
	}
	b.files[paginationDTO] = f
}

func (b *dtoBuilder) buildPaginatedEnvelope(item string) {
	class := item + "PaginatedResponseDto"
	if _, ok := b.files[class]; ok {
		return
	}
	f := phpgen.NewFile(b.cfg.DTONamespace())
	c := f.AddClass(class)
	c.Extends = dataClass
	f.AddUseAs(dataClass, "SpatieData")
	c.Comment = "Paginated response containing " + item + " items"
	ctor := c.AddMethod("__construct")
	data := ctor.AddPromotedParameter("data")
	data.Type = "array"
	data.Comment = "@var " + item + "[]"
	meta := ctor.AddPromotedParameter("meta")
	meta.Type = b.cfg.DTOFQN(paginationDTO)
	b.files[class] = f
}

func isObjectSchema(s *spec.Schema) bool {
	if s == nil {
		return false
	}
	return s.Type() == "object" || (s.Type() == "" && len(s.Properties) > 0)
}

// schemaPHPType maps JSON schema types onto PHP types. Several types form a
// union; "null" is expressed through nullability instead.
func schemaPHPType(s *spec.Schema) string {
	if s == nil {
		return "mixed"
	}
	var parts []string
	for _, t := range s.Types {
		if t == "null" {
			continue
		}
		mapped := primitivePHPType(t, s.Format)
		if mapped == "mixed" {
			return "mixed"
		}
		for _, m := range strings.Split(mapped, "|") {
			if !slices.Contains(parts, m) {
				parts = append(parts, m)
			}
		}
	}
	if len(parts) == 0 {
		if len(s.Properties) > 0 {
			return "array"
		}
		return "mixed"
	}
	return strings.Join(parts, "|")
}

func primitivePHPType(typ, format string) string {
	switch typ {
	case "integer":
		return "int"
	case "string":
		return "string"
	case "boolean":
		return "bool"
	case "object", "array":
		return "array"
	case "number":
		if format == "float" {
			return "float"
		}
		return "int|float"
	default:
		return "mixed"
	}
}

func describe(ref *spec.SchemaOrRef, comps *spec.Components) string {
	if s := ref.Resolve(comps); s != nil {
		return s.Description
	}
	return ""
}
