// Package frontmatter separates the leading metadata block of a markdown
// document from its body.
//
// The block is delimited by lines containing only "---" and holds one
// "key: value" pair per line. Values are typed as strings, numbers, booleans
// or arrays of strings. Parsing is best effort: malformed lines are skipped
// and Split never fails.
package frontmatter

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Document is the result of splitting a raw markdown document.
type Document struct {
	Content  string
	Metadata Metadata
}

// Whitespace may precede either delimiter and follow it on its line.
var blockRe = regexp.MustCompile(`(?s)^\s*---[ \t]*\n(.*?)\n[ \t]*---\s*(?:\n(.*))?$`)

// Split separates the front matter block from the body of raw. When raw does
// not start with a front matter block the whole input is returned as the
// content together with empty metadata.
func Split(raw string) Document {
	s := strings.TrimPrefix(raw, "\ufeff")
	s = strings.ReplaceAll(s, "\r\n", "\n")

	m := blockRe.FindStringSubmatch(s)
	if m == nil {
		return Document{Content: raw, Metadata: Metadata{}}
	}

	return Document{
		Content:  strings.TrimSpace(m[2]),
		Metadata: Parse(m[1]),
	}
}

// Parse reads the body of a front matter block line by line.
func Parse(block string) Metadata {
	md := Metadata{}
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		colon := strings.IndexByte(line, ':')
		if colon == -1 {
			continue
		}

		key := strings.TrimSpace(line[:colon])
		if key == "" {
			continue
		}
		md[key] = parseValue(strings.TrimSpace(line[colon+1:]))
	}
	return md
}

func parseValue(v string) Value {
	if isQuoted(v) {
		return StringValue(v[1 : len(v)-1])
	}

	if strings.HasPrefix(v, "[") && strings.HasSuffix(v, "]") {
		return StringsValue(parseList(v[1 : len(v)-1]))
	}

	if n, ok := parseNumber(v); ok {
		return NumberValue(n)
	}

	switch v {
	case "true":
		return BoolValue(true)
	case "false":
		return BoolValue(false)
	}

	return StringValue(v)
}

func isQuoted(v string) bool {
	if len(v) < 2 {
		return false
	}
	first, last := v[0], v[len(v)-1]
	return (first == '"' || first == '\'') && first == last
}

func parseList(inner string) []string {
	if strings.TrimSpace(inner) == "" {
		return []string{}
	}

	parts := strings.Split(inner, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.NewReplacer(`"`, "", `'`, "").Replace(p)
		out = append(out, p)
	}
	return out
}

// parseNumber accepts decimal literals only. Inf and NaN spellings, which
// strconv tolerates, stay strings.
func parseNumber(v string) (float64, bool) {
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return 0, false
	}
	return n, true
}
