package generator

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/mark3labs/sdkgen/internal/naming"
	"github.com/mark3labs/sdkgen/internal/phpgen"
	"github.com/mark3labs/sdkgen/internal/spec"
)

const (
	saloonConnector = `Saloon\Http\Connector`
	authenticator   = `Saloon\Contracts\Authenticator`
	tokenAuth       = `Saloon\Http\Auth\TokenAuthenticator`
	basicAuth       = `Saloon\Http\Auth\BasicAuthenticator`
	headerAuth      = `Saloon\Http\Auth\HeaderAuthenticator`
	queryAuth       = `Saloon\Http\Auth\QueryAuthenticator`
)

// Methods already defined by Saloon's Connector; resource accessors must
// not shadow them.
var connectorMethods = map[string]bool{
	"send": true, "sendasync": true, "sendandretry": true, "boot": true,
	"resolvebaseurl": true, "defaultauth": true, "defaultheaders": true,
	"defaultquery": true, "defaultconfig": true, "headers": true, "query": true,
	"config": true, "middleware": true, "authenticate": true, "pool": true,
	"withmockclient": true, "getmockclient": true, "sender": true, "paginate": true,
}

var urlVariable = regexp.MustCompile(`\{([^{}]+)\}`)

// ConnectorStage emits the connector class: base URL, authentication and
// one accessor per resource.
type ConnectorStage struct{}

func (ConnectorStage) Name() string { return "connector" }

func (ConnectorStage) Apply(_ context.Context, in Input, code GeneratedCode) (GeneratedCode, error) {
	return code.WithConnector(buildConnector(in.Config, in.Spec)), nil
}

func buildConnector(cfg Config, sp *spec.Specification) *phpgen.File {
	f := phpgen.NewFile(cfg.Namespace)
	c := f.AddClass(cfg.ConnectorClass())
	c.Extends = saloonConnector
	f.AddUse(saloonConnector)
	c.Comment = docComment(sp.Name, sp.Description)

	used := map[string]bool{}
	unique := func(raw string) string {
		v := naming.SafeVariableName(raw)
		for base, n := v, 2; used[v]; n++ {
			v = base + strconv.Itoa(n)
		}
		used[v] = true
		return v
	}

	var ctorParams []*phpgen.Parameter
	promoted := func(name, typ, def string) *phpgen.Parameter {
		p := &phpgen.Parameter{Name: name, Type: typ, Promoted: true, Visibility: phpgen.Protected, Default: def}
		ctorParams = append(ctorParams, p)
		return p
	}

	authBody := ""
	if scheme, ok := sp.Components.PrimarySecurityScheme(); ok {
		authBody = authExpression(f, scheme, func(raw string) string {
			return promoted(unique(raw), "string", "").Name
		})
	}

	// Server variables without a default are required and come first.
	vars := map[string]string{}
	var withDefault []spec.Parameter
	for _, p := range sp.BaseURL.Parameters {
		if p.Default == "" {
			vars[p.Name] = promoted(unique(p.Name), "string", "").Name
			continue
		}
		withDefault = append(withDefault, p)
	}
	for _, p := range withDefault {
		vars[p.Name] = promoted(unique(p.Name), "string", phpgen.Quote(p.Default)).Name
	}

	if len(ctorParams) > 0 {
		ctor := c.AddMethod("__construct")
		ctor.Params = ctorParams
	}

	c.AddMethod("resolveBaseUrl").
		AddBody("return \"" + baseURLTemplate(sp.BaseURL.URL, vars) + "\";").
		ReturnType = "string"

	if authBody != "" {
		m := c.AddMethod("defaultAuth")
		m.Visibility = phpgen.Protected
		m.ReturnType = "?" + authenticator
		f.AddUse(authenticator)
		m.AddBody("return " + authBody + ";")
	}

	for _, r := range PlanResources(cfg, sp) {
		ref := f.AddUse(r.FQN(cfg))
		m := c.AddMethod(r.Accessor)
		m.ReturnType = r.FQN(cfg)
		m.AddBody("return new " + ref + "($this);")
	}
	return f
}

// authExpression returns the authenticator construction for scheme, adding
// constructor parameters through param. It returns "" when the scheme has
// no Saloon equivalent.
func authExpression(f *phpgen.File, scheme spec.SecurityScheme, param func(raw string) string) string {
	switch scheme.Type {
	case spec.SecurityAPIKey:
		name := firstNonEmpty(scheme.Name, "X-API-Key")
		switch strings.ToLower(scheme.In) {
		case "query":
			v := param("api key")
			return "new " + f.AddUse(queryAuth) + "(" + phpgen.Quote(name) + ", $this->" + v + ")"
		case "", "header":
			v := param("api key")
			return "new " + f.AddUse(headerAuth) + "($this->" + v + ", " + phpgen.Quote(name) + ")"
		}
	case spec.SecurityHTTP:
		if strings.EqualFold(scheme.Scheme, "basic") {
			user := param("username")
			pass := param("password")
			return "new " + f.AddUse(basicAuth) + "($this->" + user + ", $this->" + pass + ")"
		}
		v := param("token")
		return "new " + f.AddUse(tokenAuth) + "($this->" + v + ")"
	case spec.SecurityOAuth2, spec.SecurityOpenIDConnect:
		v := param("token")
		return "new " + f.AddUse(tokenAuth) + "($this->" + v + ")"
	}
	return ""
}

// baseURLTemplate interpolates server variables into the base URL.
func baseURLTemplate(url string, vars map[string]string) string {
	var b strings.Builder
	last := 0
	for _, loc := range urlVariable.FindAllStringSubmatchIndex(url, -1) {
		b.WriteString(escapeDoubleQuoted(url[last:loc[0]]))
		name := url[loc[2]:loc[3]]
		if v, ok := vars[name]; ok {
			b.WriteString("{$this->" + v + "}")
		} else {
			b.WriteString(escapeDoubleQuoted(url[loc[0]:loc[1]]))
		}
		last = loc[1]
	}
	b.WriteString(escapeDoubleQuoted(url[last:]))
	return b.String()
}
