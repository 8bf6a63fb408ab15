package generator

import (
	"context"
	"strings"

	"github.com/mark3labs/sdkgen/internal/phpgen"
)

const baseResource = `Saloon\Http\BaseResource`

// ResourceStage emits one resource class per collection with a method per
// endpoint that sends the matching request.
type ResourceStage struct{}

func (ResourceStage) Name() string { return "resource" }

func (ResourceStage) Apply(_ context.Context, in Input, code GeneratedCode) (GeneratedCode, error) {
	var files []*phpgen.File
	for _, r := range PlanResources(in.Config, in.Spec) {
		files = append(files, buildResource(in.Config, r))
	}
	return code.WithResources(files...), nil
}

func buildResource(cfg Config, r ResourcePlan) *phpgen.File {
	f := phpgen.NewFile(cfg.ResourceNamespace())
	c := f.AddClass(r.Name)
	c.Extends = baseResource
	f.AddUse(baseResource)
	f.AddUse(saloonResponse)

	for _, ep := range r.Endpoints {
		req := f.AddUse(ep.RequestFQN(cfg))
		m := c.AddMethod(ep.MethodName)
		m.ReturnType = saloonResponse
		m.Comment = paramDocs(ep.Params())

		args := make([]string, 0, len(ep.Params()))
		for _, p := range ep.Params() {
			mp := m.AddParameter(p.Var)
			mp.Type = p.PHPType
			if cfg.IsDTOType(p.PHPType) {
				f.AddUse(p.PHPType)
			}
			mp.Nullable = p.Nullable
			if p.Optional {
				mp.Default = "null"
			}
			args = append(args, "$"+p.Var)
		}
		m.AddBody("return $this->connector->send(new " + req + "(" + strings.Join(args, ", ") + "));")
	}
	return f
}

// paramDocs lists described parameters as @param lines.
func paramDocs(params []Param) string {
	var lines []string
	for _, p := range params {
		if d := oneLine(p.Description); d != "" {
			lines = append(lines, "@param "+p.PHPTypeDoc()+" $"+p.Var+" "+d)
		}
	}
	return strings.Join(lines, "\n")
}

// PHPTypeDoc is the type as written in a docblock.
func (p Param) PHPTypeDoc() string {
	typ := p.PHPType
	if i := strings.LastIndex(typ, `\`); i >= 0 {
		typ = typ[i+1:]
	}
	if p.Nullable && typ != "mixed" {
		return typ + "|null"
	}
	return typ
}
