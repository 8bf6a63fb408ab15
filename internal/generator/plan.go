package generator

import (
	"strconv"
	"strings"

	"github.com/mark3labs/sdkgen/internal/naming"
	"github.com/mark3labs/sdkgen/internal/spec"
)

// Param is an endpoint parameter with the PHP variable and type it is
// emitted as. Var is unique within its endpoint.
type Param struct {
	spec.Parameter
	Var     string
	PHPType string
	// Optional marks a parameter emitted with a null default.
	Optional bool
}

// PlannedEndpoint carries the naming and filtering decisions for one
// endpoint. Request, resource and test generators all read from it so they
// agree on class names, method names and argument order.
type PlannedEndpoint struct {
	Endpoint     spec.Endpoint
	Resource     string
	RequestClass string
	MethodName   string

	PathParams   []Param
	BodyParams   []Param
	QueryParams  []Param
	HeaderParams []Param
}

// Params returns the constructor parameters in fixed order: path, body,
// query, header. Only the trailing run of nullable parameters is Optional,
// so a null default never precedes a required parameter.
func (p PlannedEndpoint) Params() []Param {
	out := make([]Param, 0, len(p.PathParams)+len(p.BodyParams)+len(p.QueryParams)+len(p.HeaderParams))
	out = append(out, p.PathParams...)
	out = append(out, p.BodyParams...)
	out = append(out, p.QueryParams...)
	out = append(out, p.HeaderParams...)
	for i := len(out) - 1; i >= 0 && out[i].Nullable; i-- {
		out[i].Optional = true
	}
	return out
}

func (p PlannedEndpoint) RequestFQN(cfg Config) string {
	return cfg.RequestNamespace(p.Resource) + `\` + p.RequestClass
}

// ResourcePlan groups endpoints sharing a normalized collection name.
// Accessor is the connector method returning the resource.
type ResourcePlan struct {
	Name      string
	Accessor  string
	Endpoints []PlannedEndpoint
}

func (r ResourcePlan) FQN(cfg Config) string {
	return cfg.ResourceNamespace() + `\` + r.Name
}

// PlanResources groups the endpoints of sp by resource class name, keeping
// the order in which resources and endpoints first appear.
func PlanResources(cfg Config, sp *spec.Specification) []ResourcePlan {
	var plans []ResourcePlan
	index := map[string]int{}
	classes := map[string]map[string]bool{}
	for _, ep := range sp.Endpoints {
		resource := naming.ResourceClassName(firstNonEmpty(ep.Collection, cfg.FallbackResourceName))
		i, ok := index[resource]
		if !ok {
			i = len(plans)
			index[resource] = i
			plans = append(plans, ResourcePlan{Name: resource})
			classes[resource] = map[string]bool{}
		}

		class := naming.RequestClassName(firstNonEmpty(ep.Name, naming.PathBasedName(string(ep.Method), ep.PathSegments)))
		// PHP class names are case-insensitive.
		if classes[resource][strings.ToLower(class)] {
			base := class
			for n := 2; classes[resource][strings.ToLower(class)]; n++ {
				class = base + strconv.Itoa(n)
			}
		}
		classes[resource][strings.ToLower(class)] = true

		plans[i].Endpoints = append(plans[i].Endpoints, planEndpoint(cfg, sp.Components, ep, resource, class))
	}

	accessors := map[string]bool{}
	for i := range plans {
		name := naming.SafeVariableName(plans[i].Name)
		if connectorMethods[strings.ToLower(name)] {
			name += "Resource"
		}
		for base, n := name, 2; accessors[strings.ToLower(name)]; n++ {
			name = base + strconv.Itoa(n)
		}
		accessors[strings.ToLower(name)] = true
		plans[i].Accessor = name
	}
	return plans
}

func planEndpoint(cfg Config, comps *spec.Components, ep spec.Endpoint, resource, class string) PlannedEndpoint {
	p := PlannedEndpoint{
		Endpoint:     ep,
		Resource:     resource,
		RequestClass: class,
		MethodName:   naming.SafeVariableName(class),
	}
	used := map[string]bool{}
	mk := func(in spec.Parameter) Param {
		v := naming.SafeVariableName(in.Name)
		if used[v] {
			base := v
			for n := 2; used[v]; n++ {
				v = base + strconv.Itoa(n)
			}
		}
		used[v] = true
		return Param{Parameter: in, Var: v, PHPType: parameterType(cfg, comps, in)}
	}

	declared := map[string]bool{}
	for _, in := range ep.PathParameters {
		declared[in.Name] = true
	}
	for _, in := range ep.PathParameters {
		p.PathParams = append(p.PathParams, mk(in))
	}
	// Path variables without a declared parameter still need a value.
	for _, seg := range ep.PathSegments {
		if spec.IsPathVariable(seg) && !declared[seg[1:]] {
			declared[seg[1:]] = true
			p.PathParams = append(p.PathParams, mk(spec.Parameter{Name: seg[1:], Type: "string"}))
		}
	}
	for _, in := range ep.BodyParameters {
		if !cfg.ignoredBody(in.Name) {
			p.BodyParams = append(p.BodyParams, mk(in))
		}
	}
	for _, in := range ep.QueryParameters {
		if !cfg.ignoredQuery(in.Name) {
			p.QueryParams = append(p.QueryParams, mk(in))
		}
	}
	for _, in := range ep.HeaderParameters {
		if !cfg.ignoredHeader(in.Name) {
			p.HeaderParams = append(p.HeaderParams, mk(in))
		}
	}
	return p
}

// pathVar returns the variable bound to a path segment such as ":id".
func (p PlannedEndpoint) pathVar(segment string) string {
	name := strings.TrimPrefix(segment, ":")
	for _, pp := range p.PathParams {
		if pp.Name == name {
			return pp.Var
		}
	}
	return naming.SafeVariableName(name)
}

// parameterType maps a normalized parameter onto a PHP type. Parameters
// typed by an object component schema become that DTO; other component
// schemas collapse to their primitive type.
func parameterType(cfg Config, comps *spec.Components, p spec.Parameter) string {
	if p.Ref != "" {
		s, ok := comps.Schema(p.Ref)
		switch {
		case !ok:
			return "mixed"
		case isObjectSchema(s):
			return cfg.DTOFQN(naming.DTOClassName(p.Ref))
		}
		return schemaPHPType(s)
	}
	switch p.Type {
	case "":
		return "mixed"
	case "object":
		return "array"
	case "float|int":
		return "int|float"
	}
	if strings.Contains(p.Type, `\`) {
		return cfg.DTOFQN(naming.DTOClassName(p.Type))
	}
	return p.Type
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
