package phpgen

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Raw is a PHP expression printed verbatim by Export.
type Raw string

// Entry is one key/value pair of an ordered associative array.
type Entry struct {
	Key   string
	Value any
}

// Map is an associative array that keeps insertion order.
type Map []Entry

// Export renders a Go value as a PHP literal. Arrays span several lines
// with four-space indentation; nested arrays indent one level deeper.
func Export(v any) string {
	var b strings.Builder
	export(&b, v, 0)
	return b.String()
}

// ExportIndent renders v like Export, indenting continuation lines by
// level*4 spaces so the literal can sit inside already-indented code.
func ExportIndent(v any, level int) string {
	var b strings.Builder
	export(&b, v, level)
	return b.String()
}

// Quote returns a single-quoted PHP string literal.
func Quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

func export(b *strings.Builder, v any, level int) {
	switch val := v.(type) {
	case nil:
		b.WriteString("null")
	case Raw:
		b.WriteString(string(val))
	case bool:
		b.WriteString(strconv.FormatBool(val))
	case string:
		b.WriteString(Quote(val))
	case int:
		b.WriteString(strconv.Itoa(val))
	case int64:
		b.WriteString(strconv.FormatInt(val, 10))
	case uint64:
		b.WriteString(strconv.FormatUint(val, 10))
	case float64:
		b.WriteString(formatFloat(val))
	case Map:
		entries := make([]arrayEntry, len(val))
		for i, e := range val {
			entries[i] = arrayEntry{key: Quote(e.Key), value: e.Value}
		}
		writeArray(b, entries, level)
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		entries := make([]arrayEntry, len(keys))
		for i, k := range keys {
			entries[i] = arrayEntry{key: Quote(k), value: val[k]}
		}
		writeArray(b, entries, level)
	case []any:
		entries := make([]arrayEntry, len(val))
		for i, item := range val {
			entries[i] = arrayEntry{value: item}
		}
		writeArray(b, entries, level)
	case []string:
		entries := make([]arrayEntry, len(val))
		for i, item := range val {
			entries[i] = arrayEntry{value: item}
		}
		writeArray(b, entries, level)
	default:
		b.WriteString(Quote(fmt.Sprint(val)))
	}
}

type arrayEntry struct {
	key   string
	value any
}

func writeArray(b *strings.Builder, entries []arrayEntry, level int) {
	if len(entries) == 0 {
		b.WriteString("[]")
		return
	}
	inner := strings.Repeat("    ", level+1)
	b.WriteString("[\n")
	for _, e := range entries {
		b.WriteString(inner)
		if e.key != "" {
			b.WriteString(e.key)
			b.WriteString(" => ")
		}
		export(b, e.value, level+1)
		b.WriteString(",\n")
	}
	b.WriteString(strings.Repeat("    ", level))
	b.WriteString("]")
}

func formatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return "0.0"
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
