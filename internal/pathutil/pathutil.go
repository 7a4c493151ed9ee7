package pathutil

import (
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DocsPrefix is the route prefix every page path is addressed under.
const DocsPrefix = "/docs"

var orderPrefix = regexp.MustCompile(`^\d+[-_]`)

// NormalizePath converts Windows-style separators to the current platform's separator
// and cleans the resulting path.
func NormalizePath(p string) string {
	if p == "" {
		return ""
	}

	// Replace Windows separators and collapse redundant separators/segments.
	replaced := strings.ReplaceAll(p, "\\", "/")
	return filepath.Clean(filepath.FromSlash(replaced))
}

// DocsRelative returns the path to target relative to the docs root. The
// returned path always uses forward slashes.
func DocsRelative(docsRoot, target string) (string, error) {
	base := NormalizePath(docsRoot)
	cleanedTarget := NormalizePath(target)

	rel, err := filepath.Rel(base, cleanedTarget)
	if err != nil {
		return "", err
	}

	return filepath.ToSlash(rel), nil
}

// MarkdownPath resolves a route-addressable page path such as
// "/docs/public/01-intro/setup" to the markdown file that backs it, relative
// to the docs root ("public/01-intro/setup.md"). Percent-encoded segments are
// decoded; a path that fails to decode is used as-is.
func MarkdownPath(pagePath string) string {
	decoded, err := url.PathUnescape(pagePath)
	if err != nil {
		decoded = pagePath
	}

	cleaned := strings.TrimPrefix(decoded, DocsPrefix)
	cleaned = strings.TrimPrefix(path.Clean("/"+cleaned), "/")
	if cleaned == "" || cleaned == "." {
		return ""
	}
	if strings.EqualFold(path.Ext(cleaned), ".md") {
		return cleaned
	}
	return cleaned + ".md"
}

// PagePath builds the route for a markdown file relative to the docs root,
// the inverse of MarkdownPath.
func PagePath(rel string) string {
	rel = strings.TrimSuffix(filepath.ToSlash(rel), ".md")
	rel = strings.Trim(rel, "/")
	return DocsPrefix + "/" + rel
}

// ScopeOf returns the first segment below the docs prefix, which names the
// scope a page belongs to.
func ScopeOf(pagePath string) string {
	rel := MarkdownPath(pagePath)
	if i := strings.IndexByte(rel, '/'); i >= 0 {
		return rel[:i]
	}
	return ""
}

// DisplayName turns a file or directory name into a human readable title:
// numeric ordering prefixes ("01-", "2_") are dropped, dashes and
// underscores become spaces and every word starts with an upper-case letter.
func DisplayName(name string) string {
	name = strings.TrimSuffix(name, ".md")
	name = orderPrefix.ReplaceAllString(name, "")
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)

	caser := cases.Title(language.Und, cases.NoLower)
	words := strings.Split(name, " ")
	for i, w := range words {
		words[i] = caser.String(w)
	}
	return strings.Join(words, " ")
}
