package phpgen

import (
	"strings"
)

const indent = "\t"

// String prints the file.
func (f *File) String() string {
	var b strings.Builder
	b.WriteString("<?php\n\n")
	if f.Namespace != "" {
		b.WriteString("namespace " + f.Namespace + ";\n\n")
	}
	if uses := f.Uses(); len(uses) > 0 {
		for _, u := range uses {
			b.WriteString("use " + u.Name)
			if u.Alias != "" && u.Alias != shortName(u.Name) {
				b.WriteString(" as " + u.Alias)
			}
			b.WriteString(";\n")
		}
		b.WriteString("\n")
	}
	if f.Class != nil {
		f.printClass(&b, f.Class)
	}
	return b.String()
}

func (f *File) printClass(b *strings.Builder, c *Class) {
	writeDocComment(b, c.Comment, "")
	b.WriteString("class " + c.Name)
	if c.Extends != "" {
		b.WriteString(" extends " + f.Simplify(c.Extends))
	}
	if len(c.Implements) > 0 {
		names := make([]string, len(c.Implements))
		for i, n := range c.Implements {
			names[i] = f.Simplify(n)
		}
		b.WriteString(" implements " + strings.Join(names, ", "))
	}
	b.WriteString("\n{\n")

	var sections []string
	if len(c.Traits) > 0 {
		var s strings.Builder
		for _, t := range c.Traits {
			s.WriteString(indent + "use " + f.Simplify(t) + ";\n")
		}
		sections = append(sections, s.String())
	}
	if len(c.Properties) > 0 {
		var s strings.Builder
		for i, p := range c.Properties {
			if i > 0 {
				s.WriteString("\n")
			}
			f.printProperty(&s, p)
		}
		sections = append(sections, s.String())
	}
	for _, m := range c.Methods {
		var s strings.Builder
		f.printMethod(&s, m)
		sections = append(sections, s.String())
	}
	b.WriteString(strings.Join(sections, "\n"))
	b.WriteString("}\n")
}

func (f *File) printProperty(b *strings.Builder, p *Property) {
	writeDocComment(b, p.Comment, indent)
	b.WriteString(indent + string(visibilityOr(p.Visibility)))
	if p.Static {
		b.WriteString(" static")
	}
	if t := f.TypeString(p.Type, p.Nullable); t != "" {
		b.WriteString(" " + t)
	}
	b.WriteString(" $" + p.Name)
	if p.Value != "" {
		b.WriteString(" = " + p.Value)
	}
	b.WriteString(";\n")
}

func (f *File) printMethod(b *strings.Builder, m *Method) {
	writeDocComment(b, m.Comment, indent)
	b.WriteString(indent + string(visibilityOr(m.Visibility)))
	if m.Static {
		b.WriteString(" static")
	}
	b.WriteString(" function " + m.Name + "(")

	multiline := false
	for _, p := range m.Params {
		if p.Promoted || len(p.Attributes) > 0 || p.Comment != "" {
			multiline = true
		}
	}
	if multiline {
		b.WriteString("\n")
		for _, p := range m.Params {
			writeDocComment(b, p.Comment, indent+indent)
			for _, a := range p.Attributes {
				b.WriteString(indent + indent + f.attribute(a) + "\n")
			}
			b.WriteString(indent + indent + f.parameter(p) + ",\n")
		}
		b.WriteString(indent + ")")
	} else {
		params := make([]string, len(m.Params))
		for i, p := range m.Params {
			params[i] = f.parameter(p)
		}
		b.WriteString(strings.Join(params, ", ") + ")")
	}
	if rt := f.TypeString(m.ReturnType, false); rt != "" {
		b.WriteString(": " + rt)
	}

	if multiline {
		b.WriteString(" {\n")
	} else {
		b.WriteString("\n" + indent + "{\n")
	}
	for _, chunk := range m.Body {
		for _, line := range strings.Split(chunk, "\n") {
			if strings.TrimSpace(line) == "" {
				b.WriteString("\n")
				continue
			}
			b.WriteString(indent + indent + line + "\n")
		}
	}
	b.WriteString(indent + "}\n")
}

func (f *File) parameter(p *Parameter) string {
	var s strings.Builder
	if p.Promoted {
		s.WriteString(string(visibilityOr(p.Visibility)) + " ")
	}
	if t := f.TypeString(p.Type, p.Nullable); t != "" {
		s.WriteString(t + " ")
	}
	s.WriteString("$" + p.Name)
	if p.Default != "" {
		s.WriteString(" = " + p.Default)
	}
	return s.String()
}

func (f *File) attribute(a Attribute) string {
	name := f.Simplify(a.Name)
	if len(a.Args) == 0 {
		return "#[" + name + "]"
	}
	return "#[" + name + "(" + strings.Join(a.Args, ", ") + ")]"
}

// TypeString renders a type declaration as it reads inside this file. A
// leading "?" on typ also marks it nullable. Nullable unions gain a "null"
// member; mixed is already nullable.
func (f *File) TypeString(typ string, nullable bool) string {
	if strings.HasPrefix(typ, "?") {
		typ = typ[1:]
		nullable = true
	}
	if typ == "" {
		return ""
	}
	parts := strings.Split(typ, "|")
	hasNull := false
	for i, part := range parts {
		parts[i] = f.Simplify(strings.TrimSpace(part))
		if parts[i] == "null" {
			hasNull = true
		}
	}
	if !nullable || typ == "mixed" || hasNull {
		return strings.Join(parts, "|")
	}
	if len(parts) == 1 {
		return "?" + parts[0]
	}
	return strings.Join(append(parts, "null"), "|")
}

func writeDocComment(b *strings.Builder, comment, prefix string) {
	comment = strings.TrimRight(comment, "\n ")
	if strings.TrimSpace(comment) == "" {
		return
	}
	b.WriteString(prefix + "/**\n")
	for _, line := range strings.Split(comment, "\n") {
		line = strings.TrimRight(line, " ")
		if line == "" {
			b.WriteString(prefix + " *\n")
			continue
		}
		b.WriteString(prefix + " * " + line + "\n")
	}
	b.WriteString(prefix + " */\n")
}

func visibilityOr(v Visibility) Visibility {
	if v == "" {
		return Public
	}
	return v
}
