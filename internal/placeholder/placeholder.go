// Package placeholder holds the value-for-type policy used wherever
// generated code needs sample data: feature-test arguments, DTO test
// fixtures and connector arguments all draw from here so they stay
// consistent with each other.
package placeholder

import (
	"strings"

	"github.com/mark3labs/sdkgen/internal/phpgen"
)

// Value returns the placeholder for a normalized PHP type:
// 'test string', 123, 123.45, true or an empty array. DTO and unknown
// types yield nil.
func Value(typ string) any {
	switch strings.TrimPrefix(typ, "?") {
	case "string":
		return "test string"
	case "int", "integer":
		return 123
	case "float", "float|int", "int|float":
		return 123.45
	case "bool", "boolean":
		return true
	case "array":
		return []any{}
	default:
		return nil
	}
}

// Literal is Value rendered as a PHP expression.
func Literal(typ string) string {
	return phpgen.Export(Value(typ))
}

// ForProperty refines Value for strings using the property name, so DTO
// fixtures read like real payloads. Unions take their first member.
func ForProperty(typ, property string) any {
	typ = strings.TrimPrefix(typ, "?")
	if i := strings.Index(typ, "|"); i >= 0 && typ != "int|float" && typ != "float|int" {
		typ = typ[:i]
	}
	if typ != "string" {
		return Value(typ)
	}
	name := strings.ToLower(property)
	switch {
	case strings.Contains(name, "email"):
		return "test@example.com"
	case strings.Contains(name, "url"), strings.Contains(name, "link"):
		return "https://example.com"
	case strings.Contains(name, "phone"):
		return "+1234567890"
	case strings.Contains(name, "id"):
		return "test-id-123"
	case strings.Contains(name, "name"):
		return "Test Name"
	case strings.Contains(name, "description"):
		return "Test description"
	default:
		return "test string"
	}
}
