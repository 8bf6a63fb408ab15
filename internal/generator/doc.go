package generator

import (
	"strings"
)

const wrapWidth = 100

// docComment joins a title and a wrapped description into a docblock body.
func docComment(title, description string) string {
	var parts []string
	if t := oneLine(title); t != "" {
		parts = append(parts, t)
	}
	if d := wrapText(description, wrapWidth); d != "" {
		parts = append(parts, d)
	}
	return strings.Join(parts, "\n\n")
}

// wrapText re-flows each paragraph of s to at most width columns. Words
// longer than width stay on their own line.
func wrapText(s string, width int) string {
	s = sanitizeComment(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	var out []string
	for _, line := range strings.Split(s, "\n") {
		words := strings.Fields(line)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		cur := words[0]
		for _, w := range words[1:] {
			if len(cur)+1+len(w) > width {
				out = append(out, cur)
				cur = w
				continue
			}
			cur += " " + w
		}
		out = append(out, cur)
	}
	return strings.Join(out, "\n")
}

func oneLine(s string) string {
	return sanitizeComment(strings.Join(strings.Fields(s), " "))
}

// sanitizeComment keeps text from closing the surrounding docblock.
func sanitizeComment(s string) string {
	return strings.ReplaceAll(s, "*/", "*\\/")
}
