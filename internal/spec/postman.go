package spec

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/mark3labs/sdkgen/internal/naming"
)

// PostmanParser reads Postman v2.x collection exports. Top-level folders
// become collections; nested folders inherit their top-level folder.
type PostmanParser struct{}

// headers managed by the HTTP client rather than exposed as parameters.
var implicitHeaders = map[string]struct{}{
	"accept":        {},
	"authorization": {},
	"content-type":  {},
	"user-agent":    {},
}

func (PostmanParser) Parse(ctx context.Context, path string) (*Specification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("read file %s: %v", path, err), Location: path, Cause: err}
	}
	if !gjson.ValidBytes(raw) {
		return nil, &SpecError{Code: ParseError, Message: "postman: collection is not valid JSON", Location: path}
	}
	root := gjson.ParseBytes(raw)
	if !root.Get("info").Exists() || !root.Get("item").IsArray() {
		return nil, &SpecError{Code: ParseError, Message: "postman: missing info or item sections", Location: path}
	}

	sp := &Specification{
		Name:        strings.TrimSpace(root.Get("info.name").String()),
		Description: postmanDescription(root.Get("info.description")),
		Components:  &Components{Schemas: map[string]*Schema{}, SecuritySchemes: map[string]SecurityScheme{}},
	}
	sp.BaseURL = postmanBaseURL(root.Get("variable"))
	if name, scheme, ok := postmanAuth(root.Get("auth")); ok {
		sp.Components.SecuritySchemes[name] = scheme
	}
	walkPostmanItems(root.Get("item"), "", &sp.Endpoints)
	return sp, nil
}

func walkPostmanItems(items gjson.Result, collection string, out *[]Endpoint) {
	items.ForEach(func(_, item gjson.Result) bool {
		if item.Get("item").IsArray() {
			next := collection
			if next == "" {
				next = strings.TrimSpace(item.Get("name").String())
			}
			walkPostmanItems(item.Get("item"), next, out)
			return true
		}
		if req := item.Get("request"); req.Exists() {
			*out = append(*out, postmanEndpoint(item, req, collection))
		}
		return true
	})
}

func postmanEndpoint(item, req gjson.Result, collection string) Endpoint {
	ep := Endpoint{
		Name:       strings.TrimSpace(item.Get("name").String()),
		Collection: collection,
	}
	url := req
	if req.IsObject() {
		ep.Method = ParseMethod(req.Get("method").String())
		ep.Description = postmanDescription(req.Get("description"))
		url = req.Get("url")
	} else {
		ep.Method = GET
	}

	ep.PathSegments = postmanPath(url)
	if ep.Name == "" {
		ep.Name = naming.PathBasedName(string(ep.Method), ep.PathSegments)
	}
	if ep.Collection == "" {
		for _, seg := range ep.PathSegments {
			if !IsPathVariable(seg) {
				ep.Collection = seg
				break
			}
		}
	}

	descriptions := map[string]string{}
	url.Get("variable").ForEach(func(_, v gjson.Result) bool {
		descriptions[v.Get("key").String()] = postmanDescription(v.Get("description"))
		return true
	})
	for _, seg := range ep.PathSegments {
		if IsPathVariable(seg) {
			name := seg[1:]
			ep.PathParameters = append(ep.PathParameters, Parameter{Name: name, Type: "string", Description: descriptions[name]})
		}
	}

	url.Get("query").ForEach(func(_, q gjson.Result) bool {
		if q.Get("disabled").Bool() || q.Get("key").String() == "" {
			return true
		}
		ep.QueryParameters = append(ep.QueryParameters, Parameter{
			Name:        q.Get("key").String(),
			Type:        inferScalarType(q.Get("value").String()),
			Nullable:    true,
			Description: postmanDescription(q.Get("description")),
		})
		return true
	})

	req.Get("header").ForEach(func(_, h gjson.Result) bool {
		key := h.Get("key").String()
		if _, skip := implicitHeaders[strings.ToLower(key)]; skip || key == "" || h.Get("disabled").Bool() {
			return true
		}
		ep.HeaderParameters = append(ep.HeaderParameters, Parameter{
			Name:        key,
			Type:        "string",
			Nullable:    true,
			Description: postmanDescription(h.Get("description")),
		})
		return true
	})

	ep.BodyParameters = postmanBody(req.Get("body"))

	if resp := item.Get("response.0.body"); resp.Exists() && gjson.Valid(resp.String()) {
		body := gjson.Parse(resp.String())
		if body.IsObject() || body.IsArray() {
			s := schemaFromJSON(body)
			s.Example = body.Value()
			ep.Response = Inline(s)
		}
	}
	return ep
}

func postmanPath(url gjson.Result) []string {
	var raw []string
	if path := url.Get("path"); path.IsArray() {
		path.ForEach(func(_, seg gjson.Result) bool {
			if seg.IsObject() {
				raw = append(raw, seg.Get("value").String())
			} else {
				raw = append(raw, seg.String())
			}
			return true
		})
	} else {
		s := url.String()
		if url.IsObject() {
			s = url.Get("raw").String()
		}
		s = strings.SplitN(s, "?", 2)[0]
		if i := strings.Index(s, "://"); i >= 0 {
			s = s[i+3:]
		}
		parts := strings.Split(s, "/")
		if len(parts) > 0 {
			raw = parts[1:]
		}
	}

	var out []string
	for _, seg := range raw {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		if strings.HasPrefix(seg, "{{") && strings.HasSuffix(seg, "}}") {
			seg = ":" + strings.TrimSuffix(strings.TrimPrefix(seg, "{{"), "}}")
		}
		out = append(out, seg)
	}
	return out
}

func postmanBody(body gjson.Result) []Parameter {
	var out []Parameter
	switch body.Get("mode").String() {
	case "raw":
		raw := body.Get("raw").String()
		if !gjson.Valid(raw) {
			return nil
		}
		doc := gjson.Parse(raw)
		if !doc.IsObject() {
			return nil
		}
		doc.ForEach(func(key, value gjson.Result) bool {
			p := Parameter{Name: key.String(), Type: jsonType(value)}
			if value.Type == gjson.Null {
				p.Nullable = true
			}
			out = append(out, p)
			return true
		})
	case "urlencoded", "formdata":
		body.Get(body.Get("mode").String()).ForEach(func(_, field gjson.Result) bool {
			if field.Get("disabled").Bool() {
				return true
			}
			out = append(out, Parameter{
				Name:        field.Get("key").String(),
				Type:        "string",
				Description: postmanDescription(field.Get("description")),
			})
			return true
		})
	}
	return out
}

// schemaFromJSON infers a schema from a sample value, keeping leaf values
// as examples.
func schemaFromJSON(v gjson.Result) *Schema {
	s := &Schema{}
	switch {
	case v.IsObject():
		s.Types = []string{"object"}
		s.Properties = map[string]*SchemaOrRef{}
		v.ForEach(func(key, value gjson.Result) bool {
			s.Properties[key.String()] = Inline(schemaFromJSON(value))
			s.Required = append(s.Required, key.String())
			return true
		})
	case v.IsArray():
		s.Types = []string{"array"}
		if first := v.Get("0"); first.Exists() {
			s.Items = Inline(schemaFromJSON(first))
		}
	default:
		switch v.Type {
		case gjson.String:
			s.Types = []string{"string"}
		case gjson.Number:
			if v.Num == float64(int64(v.Num)) {
				s.Types = []string{"integer"}
			} else {
				s.Types = []string{"number"}
			}
		case gjson.True, gjson.False:
			s.Types = []string{"boolean"}
		case gjson.Null:
			s.Nullable = true
		}
		s.Example = v.Value()
	}
	return s
}

func jsonType(v gjson.Result) string {
	switch {
	case v.IsObject(), v.IsArray():
		return "array"
	}
	switch v.Type {
	case gjson.String:
		return "string"
	case gjson.Number:
		if v.Num == float64(int64(v.Num)) && !strings.Contains(v.Raw, ".") {
			return "int"
		}
		return "float"
	case gjson.True, gjson.False:
		return "bool"
	default:
		return "mixed"
	}
}

func inferScalarType(value string) string {
	if value == "" || strings.HasPrefix(value, "{{") {
		return "string"
	}
	r := gjson.Parse(value)
	if r.Raw != value {
		return "string"
	}
	return jsonType(r)
}

func postmanDescription(v gjson.Result) string {
	if v.IsObject() {
		return strings.TrimSpace(v.Get("content").String())
	}
	return strings.TrimSpace(v.String())
}

func postmanBaseURL(vars gjson.Result) BaseURL {
	var b BaseURL
	for _, key := range []string{"baseUrl", "base_url", "baseURL", "url"} {
		vars.ForEach(func(_, v gjson.Result) bool {
			if v.Get("key").String() == key {
				b.URL = strings.TrimRight(v.Get("value").String(), "/")
				return false
			}
			return true
		})
		if b.URL != "" {
			break
		}
	}
	return b
}

func postmanAuth(auth gjson.Result) (string, SecurityScheme, bool) {
	typ := auth.Get("type").String()
	switch typ {
	case "bearer":
		return "bearer", SecurityScheme{Type: SecurityHTTP, Scheme: "bearer"}, true
	case "basic":
		return "basic", SecurityScheme{Type: SecurityHTTP, Scheme: "basic"}, true
	case "oauth2":
		return "oauth2", SecurityScheme{Type: SecurityOAuth2}, true
	case "apikey":
		scheme := SecurityScheme{Type: SecurityAPIKey, Name: "X-API-Key", In: "header"}
		auth.Get("apikey").ForEach(func(_, kv gjson.Result) bool {
			switch kv.Get("key").String() {
			case "key":
				scheme.Name = kv.Get("value").String()
			case "in":
				scheme.In = kv.Get("value").String()
			}
			return true
		})
		return "apikey", scheme, true
	}
	return "", SecurityScheme{}, false
}
