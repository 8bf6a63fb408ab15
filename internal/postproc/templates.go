package postproc

import (
	"bytes"
	"embed"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates *template.Template

func init() {
	var err error
	templates, err = template.New("").
		Funcs(templateFuncs).
		ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		panic(err)
	}
}

var templateFuncs = template.FuncMap{
	"join": strings.Join,
	// args renders named arguments one per line inside a call, or nothing.
	"args": func(args []string, indent string) string {
		if len(args) == 0 {
			return ""
		}
		return "\n" + indent + "    " + strings.Join(args, ",\n"+indent+"    ") + ",\n" + indent
	},
}

// executeTemplate renders a named template.
func executeTemplate(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
