// Package naming maps raw identifiers from API descriptions onto safe PHP
// class, variable and package names. Every function is total and
// deterministic.
package naming

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// reserved holds PHP keywords and type names that cannot be used as class
// names, or as variables without confusing readers.
var reserved = map[string]struct{}{
	"abstract": {}, "and": {}, "array": {}, "as": {}, "break": {}, "callable": {},
	"case": {}, "catch": {}, "class": {}, "clone": {}, "const": {}, "continue": {},
	"declare": {}, "default": {}, "do": {}, "echo": {}, "else": {}, "elseif": {},
	"empty": {}, "enddeclare": {}, "endfor": {}, "endforeach": {}, "endif": {},
	"endswitch": {}, "endwhile": {}, "enum": {}, "eval": {}, "exit": {}, "extends": {},
	"final": {}, "finally": {}, "fn": {}, "for": {}, "foreach": {}, "function": {},
	"global": {}, "goto": {}, "if": {}, "implements": {}, "include": {},
	"include_once": {}, "instanceof": {}, "insteadof": {}, "interface": {},
	"isset": {}, "list": {}, "match": {}, "namespace": {}, "new": {}, "or": {},
	"print": {}, "private": {}, "protected": {}, "public": {}, "readonly": {},
	"require": {}, "require_once": {}, "return": {}, "static": {}, "switch": {},
	"throw": {}, "trait": {}, "try": {}, "unset": {}, "use": {}, "var": {},
	"while": {}, "xor": {}, "yield": {},
	"int": {}, "float": {}, "bool": {}, "string": {}, "true": {}, "false": {},
	"null": {}, "void": {}, "iterable": {}, "object": {}, "mixed": {}, "never": {},
	"self": {}, "parent": {}, "numeric": {},
}

// IsReserved reports whether name collides with a PHP reserved word.
func IsReserved(name string) bool {
	_, ok := reserved[strings.ToLower(name)]
	return ok
}

// Words splits raw into words on non-alphanumeric runes and camel-case
// boundaries. Acronyms stay whole: "MyAPI_Test" gives My, API, Test.
func Words(raw string) []string {
	var words []string
	for _, chunk := range strings.FieldsFunc(raw, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		words = append(words, splitCamel(chunk)...)
	}
	return words
}

func splitCamel(s string) []string {
	runes := []rune(s)
	var out []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := false
		switch {
		case unicode.IsUpper(cur) && (unicode.IsLower(prev) || unicode.IsDigit(prev)):
			boundary = true
		case unicode.IsUpper(cur) && unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			boundary = true
		}
		if boundary {
			out = append(out, string(runes[start:i]))
			start = i
		}
	}
	return append(out, string(runes[start:]))
}

// SafeClassName returns a PascalCase class identifier for raw.
func SafeClassName(raw string) string {
	words := Words(raw)
	if len(words) == 0 {
		return "Unnamed"
	}
	titleCaser := cases.Title(language.English, cases.NoLower)
	var b strings.Builder
	for _, w := range words {
		b.WriteString(titleCaser.String(w))
	}
	name := b.String()
	if unicode.IsDigit([]rune(name)[0]) {
		name = "Class" + name
	}
	if IsReserved(name) {
		name += "Class"
	}
	return name
}

// SafeVariableName returns a lowerCamelCase identifier for raw that never
// collides with a reserved word or $this.
func SafeVariableName(raw string) string {
	words := Words(raw)
	if len(words) == 0 {
		return "value"
	}
	titleCaser := cases.Title(language.English, cases.NoLower)
	var b strings.Builder
	b.WriteString(strings.ToLower(words[0]))
	for _, w := range words[1:] {
		b.WriteString(titleCaser.String(w))
	}
	name := b.String()
	if unicode.IsDigit([]rune(name)[0]) {
		name = "_" + name
	}
	if IsReserved(name) || name == "this" {
		name += "_"
	}
	return name
}

// DTOClassName normalizes a schema or type name into a single class name.
// Namespace-qualified names keep only their last segment; dotted names such
// as "v1.User" collapse into "V1User".
func DTOClassName(raw string) string {
	if i := strings.LastIndex(raw, `\`); i >= 0 {
		raw = raw[i+1:]
	}
	return SafeClassName(raw)
}

func ResourceClassName(raw string) string { return SafeClassName(raw) }

func RequestClassName(raw string) string { return SafeClassName(raw) }

// PathBasedName derives an operation name from the HTTP method and path
// segments. Variables (":id") contribute "By" plus their name, so
// GET /users/:id becomes GetUsersById.
func PathBasedName(method string, segments []string) string {
	parts := []string{strings.ToLower(method)}
	for _, seg := range segments {
		if strings.HasPrefix(seg, ":") {
			parts = append(parts, "by", seg[1:])
			continue
		}
		parts = append(parts, seg)
	}
	return SafeClassName(strings.Join(parts, " "))
}

// Normalize rejoins the words of raw with single spaces.
func Normalize(raw string) string {
	return strings.Join(Words(raw), " ")
}

// Kebab lowercases the words of raw and joins them with hyphens.
func Kebab(raw string) string {
	return strings.ToLower(strings.Join(Words(raw), "-"))
}
