package generator

import (
	"context"
	"strings"

	"github.com/mark3labs/sdkgen/internal/naming"
	"github.com/mark3labs/sdkgen/internal/phpgen"
	"github.com/mark3labs/sdkgen/internal/spec"
)

const (
	saloonRequest  = `Saloon\Http\Request`
	saloonResponse = `Saloon\Http\Response`
	saloonMethod   = `Saloon\Enums\Method`
	hasBody        = `Saloon\Contracts\Body\HasBody`
	hasJSONBody    = `Saloon\Traits\Body\HasJsonBody`
)

// RequestStage emits one request class per endpoint, grouped by resource.
// It runs after DTOStage so response materialization can refer to DTOs.
type RequestStage struct{}

func (RequestStage) Name() string { return "request" }

func (RequestStage) Apply(_ context.Context, in Input, code GeneratedCode) (GeneratedCode, error) {
	var files []*phpgen.File
	var issues []Issue
	for _, r := range PlanResources(in.Config, in.Spec) {
		for _, ep := range r.Endpoints {
			f, skipped := buildRequest(in.Config, ep, code)
			files = append(files, f)
			issues = append(issues, skipped...)
		}
	}
	return code.WithRequests(files...).WithIssues(issues...), nil
}

func buildRequest(cfg Config, ep PlannedEndpoint, code GeneratedCode) (*phpgen.File, []Issue) {
	var issues []Issue
	f := phpgen.NewFile(cfg.RequestNamespace(ep.Resource))
	c := f.AddClass(ep.RequestClass)
	c.Extends = saloonRequest
	f.AddUse(saloonRequest)
	c.Comment = docComment(firstNonEmpty(ep.Endpoint.Name, ep.RequestClass), ep.Endpoint.Description)

	if sendsBody(ep.Endpoint.Method) {
		f.AddUse(hasBody)
		f.AddUse(hasJSONBody)
		c.AddImplement(hasBody).AddTrait(hasJSONBody)
	}

	method := c.AddProperty("method")
	method.Visibility = phpgen.Protected
	method.Type = saloonMethod
	method.Value = f.AddUse(saloonMethod) + "::" + string(ep.Endpoint.Method)

	c.AddMethod("resolveEndpoint").
		AddBody("return \"" + endpointTemplate(ep) + "\";").
		ReturnType = "string"

	if params := ep.Params(); len(params) > 0 {
		ctor := c.AddMethod("__construct")
		for _, p := range params {
			pp := ctor.AddPromotedParameter(p.Var)
			pp.Visibility = phpgen.Protected
			pp.Type = p.PHPType
			if cfg.IsDTOType(p.PHPType) {
				f.AddUse(p.PHPType)
			}
			pp.Nullable = p.Nullable
			if p.Optional {
				pp.Default = "null"
			}
			pp.Comment = wrapText(p.Description, wrapWidth)
		}
	}

	addArrayMethod(c, "defaultBody", ep.BodyParams)
	addArrayMethod(c, "defaultQuery", ep.QueryParams)
	addArrayMethod(c, "defaultHeaders", ep.HeaderParams)

	if ep.Endpoint.ResponseDTO != "" {
		if err := addDTOFactory(cfg, f, ep.Endpoint, code); err != nil {
			issues = append(issues, Issue{Stage: "request", Artifact: ep.RequestClass + "::createDtoFromResponse", Err: err})
		}
	}
	return f, issues
}

// endpointTemplate joins the path segments with "/", turning ":name"
// segments into interpolations of the matching constructor property.
func endpointTemplate(ep PlannedEndpoint) string {
	parts := make([]string, len(ep.Endpoint.PathSegments))
	for i, seg := range ep.Endpoint.PathSegments {
		if spec.IsPathVariable(seg) {
			parts[i] = "{$this->" + ep.pathVar(seg) + "}"
			continue
		}
		parts[i] = escapeDoubleQuoted(seg)
	}
	return "/" + strings.Join(parts, "/")
}

func escapeDoubleQuoted(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `\$`).Replace(s)
}

func sendsBody(m spec.Method) bool {
	return m == spec.POST || m == spec.PUT || m == spec.PATCH
}

// addArrayMethod emits a method returning the non-null parameters keyed by
// their wire names.
func addArrayMethod(c *phpgen.Class, name string, params []Param) {
	if len(params) == 0 {
		return
	}
	lines := []string{"return array_filter(["}
	for _, p := range params {
		lines = append(lines, "\t"+phpgen.Quote(p.Name)+" => $this->"+p.Var+",")
	}
	lines = append(lines, "]);")
	m := c.AddMethod(name)
	m.ReturnType = "array"
	m.AddBody(strings.Join(lines, "\n"))
}

// addDTOFactory emits createDtoFromResponse. Paginated responses map the
// whole envelope; collections map a list found at the DTO path (or the top
// level); single responses map the object at the DTO path.
func addDTOFactory(cfg Config, f *phpgen.File, ep spec.Endpoint, code GeneratedCode) error {
	item := naming.DTOClassName(ep.ResponseDTO)
	if _, ok := code.DTO(item); !ok {
		return &missingDTOError{Class: item}
	}
	target := item
	if ep.ResponseDTOIsPaginated {
		target = item + "PaginatedResponseDto"
		if _, ok := code.DTO(target); !ok {
			return &missingDTOError{Class: target}
		}
	}

	m := f.Class.AddMethod("createDtoFromResponse")
	m.AddParameter("response").Type = saloonResponse
	f.AddUse(saloonResponse)
	ref := f.AddUse(cfg.DTOFQN(target))
	m.AddBody("$array = $response->json();")
	m.AddBody("")

	source := "$array"
	if ep.ResponseDTOPath != "" && !ep.ResponseDTOIsPaginated {
		source = "$array[" + phpgen.Quote(ep.ResponseDTOPath) + "]"
	}
	switch {
	case ep.ResponseDTOIsPaginated:
		m.ReturnType = cfg.DTOFQN(target)
		m.AddBody("return " + ref + "::from($array);")
	case ep.ResponseDTOIsCollection:
		m.ReturnType = "array"
		m.Comment = "@return " + ref + "[]"
		m.AddBody("return array_map(fn ($item) => " + ref + "::from($item), " + source + ");")
	default:
		m.ReturnType = cfg.DTOFQN(target)
		m.AddBody("return " + ref + "::from(" + source + ");")
	}
	return nil
}

type missingDTOError struct {
	Class string
}

func (e *missingDTOError) Error() string {
	return "response DTO " + e.Class + " was not generated"
}
