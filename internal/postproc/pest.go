package postproc

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/sdkgen/internal/generator"
	"github.com/mark3labs/sdkgen/internal/naming"
)

const saloonFacade = `Saloon\Laravel\Facades\Saloon`

// PestStage emits a Pest suite: tests/Pest.php, a TestCase and one test
// file per resource with an it() block per endpoint.
type PestStage struct{}

func (PestStage) Name() string { return "pest" }

func (PestStage) Apply(_ context.Context, in generator.Input, code generator.GeneratedCode) (generator.GeneratedCode, error) {
	cfg := in.Config
	var files []generator.TaggedOutputFile
	var issues []generator.Issue
	add := func(path string, content string, err error) {
		if err != nil {
			issues = append(issues, generator.Issue{Stage: "pest", Artifact: path, Err: err})
			return
		}
		files = append(files, generator.TaggedOutputFile{Tag: TagPest, Path: path, Content: content})
	}

	content, err := executeTemplate("pest", map[string]string{"TestCase": cfg.TestNamespace() + `\TestCase`})
	add("tests/Pest.php", content, err)
	content, err = executeTemplate("pest_testcase", map[string]string{"Namespace": cfg.TestNamespace()})
	add("tests/TestCase.php", content, err)

	auth, hasAuth := detectAuth(in.Spec)
	for _, r := range generator.PlanResources(cfg, in.Spec) {
		content, err := pestTest(cfg, code, r, hasAuth && auth.needsTokenRequest())
		add("tests/"+r.Name+"Test.php", content, err)
	}
	return code.WithFiles(files...).WithIssues(issues...), nil
}

type pestCase struct {
	Description string
	Request     string
	Stub        string
	Accessor    string
	Method      string
	Args        []string
}

type pestData struct {
	Uses          string
	Client        string
	Connector     string
	ConnectorArgs []string
	TokenRequest  bool
	Tests         []pestCase
}

func pestTest(cfg generator.Config, code generator.GeneratedCode, r generator.ResourcePlan, tokenRequest bool) (string, error) {
	if code.Connector() == nil {
		return "", fmt.Errorf("connector was not generated")
	}
	data := pestData{
		Client:        naming.SafeVariableName(cfg.ConnectorName),
		ConnectorArgs: connectorArgs(code),
		TokenRequest:  tokenRequest,
	}
	imp := newImports("", "")
	imp.add(mockResponse)
	imp.add(saloonFacade)
	data.Connector = imp.add(cfg.ConnectorFQN())

	for _, ep := range r.Endpoints {
		req := ep.RequestFQN(cfg)
		var ref string
		// A request named like its resource reads ambiguously in a test.
		if ep.RequestClass == r.Name {
			ref = imp.file.AddUseAs(req, ep.RequestClass+"Request")
		} else {
			ref = imp.add(req)
		}
		data.Tests = append(data.Tests, pestCase{
			Description: "calls the " + ep.MethodName + " method in the " + r.Name + " resource",
			Request:     ref,
			Stub:        stubName(r.Name, ep),
			Accessor:    r.Accessor,
			Method:      ep.MethodName,
			Args:        endpointArgs(ep),
		})
	}

	data.Uses = strings.Join(imp.lines(), "\n") + "\n"
	if tokenRequest {
		data.Uses += "// use " + cfg.Namespace + `\Requests\TokenRequest;` + "\n"
	}
	return executeTemplate("pest_resource", data)
}
