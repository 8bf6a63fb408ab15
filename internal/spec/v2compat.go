package spec

import "strings"

var v2Methods = map[string]struct{}{
	"get": {}, "post": {}, "put": {}, "patch": {}, "delete": {}, "options": {}, "head": {},
}

// fixV2BodyParams rewrites Swagger 2 operations that openapi2conv rejects:
// several "in: body" parameters are merged into one object body, and body
// parameters mixed with formData are turned into formData fields. It
// reports whether the tree changed.
func fixV2BodyParams(doc map[string]any) bool {
	paths, _ := doc["paths"].(map[string]any)
	changed := false
	for _, rawItem := range paths {
		item, _ := rawItem.(map[string]any)
		for method, rawOp := range item {
			if _, ok := v2Methods[strings.ToLower(method)]; !ok {
				continue
			}
			op, _ := rawOp.(map[string]any)
			params, _ := op["parameters"].([]any)
			if len(params) == 0 {
				continue
			}
			var bodies, rest []map[string]any
			hasForm := false
			for _, p := range params {
				pm, _ := p.(map[string]any)
				if pm == nil {
					continue
				}
				switch strings.ToLower(stringField(pm, "in")) {
				case "body":
					bodies = append(bodies, pm)
					continue
				case "formdata":
					hasForm = true
				}
				rest = append(rest, pm)
			}
			switch {
			case len(bodies) > 0 && hasForm:
				for _, b := range bodies {
					rest = append(rest, bodyAsFormField(b))
				}
				op["parameters"] = toAnySlice(rest)
				consumes, _ := op["consumes"].([]any)
				if !containsValue(consumes, "multipart/form-data") {
					op["consumes"] = append(consumes, "multipart/form-data")
				}
				changed = true
			case len(bodies) > 1:
				props := map[string]any{}
				var required []any
				for _, b := range bodies {
					name := stringField(b, "name")
					if name == "" {
						name = "field"
					}
					schema, _ := b["schema"].(map[string]any)
					if schema == nil {
						schema = map[string]any{"type": "string"}
					}
					props[name] = schema
					if req, _ := b["required"].(bool); req {
						required = append(required, name)
					}
				}
				body := map[string]any{"type": "object", "properties": props}
				if len(required) > 0 {
					body["required"] = required
				}
				merged := map[string]any{"in": "body", "name": "body", "schema": body}
				op["parameters"] = append([]any{merged}, toAnySlice(rest)...)
				changed = true
			}
		}
	}
	return changed
}

func bodyAsFormField(b map[string]any) map[string]any {
	field := map[string]any{
		"in":   "formData",
		"name": stringField(b, "name"),
		"type": "string",
	}
	if schema, ok := b["schema"].(map[string]any); ok {
		if t := stringField(schema, "type"); t != "" && t != "object" && t != "array" {
			field["type"] = t
		}
	}
	if req, ok := b["required"].(bool); ok {
		field["required"] = req
	}
	if d := stringField(b, "description"); d != "" {
		field["description"] = d
	}
	return field
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func containsValue(list []any, want string) bool {
	for _, v := range list {
		if s, _ := v.(string); s == want {
			return true
		}
	}
	return false
}

func toAnySlice(in []map[string]any) []any {
	out := make([]any, len(in))
	for i, m := range in {
		out[i] = m
	}
	return out
}
