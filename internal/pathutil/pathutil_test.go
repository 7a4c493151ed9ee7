package pathutil

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestDocsRelativeReturnsForwardSlashes(t *testing.T) {
	rootParts := []string{"srv", "portal", "docs"}
	fileParts := append(append([]string{}, rootParts...), "public", "setup.md")

	posixRoot := filepath.Join(rootParts...)
	posixFile := filepath.Join(fileParts...)

	rel, err := DocsRelative(posixRoot, posixFile)
	if err != nil {
		t.Fatalf("DocsRelative returned error for POSIX paths: %v", err)
	}
	if rel != "public/setup.md" {
		t.Fatalf("expected relative path 'public/setup.md', got %q", rel)
	}

	windowsRoot := strings.ReplaceAll(posixRoot, string(filepath.Separator), "\\")
	windowsFile := strings.ReplaceAll(posixFile, string(filepath.Separator), "\\")

	rel, err = DocsRelative(windowsRoot, windowsFile)
	if err != nil {
		t.Fatalf("DocsRelative returned error for Windows paths: %v", err)
	}
	if rel != "public/setup.md" {
		t.Fatalf("expected relative path 'public/setup.md', got %q", rel)
	}
}

func TestMarkdownPath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/docs/public/01-intro/setup", "public/01-intro/setup.md"},
		{"/docs/public/getting%20started", "public/getting started.md"},
		{"/docs/internal/ops.md", "internal/ops.md"},
		{"public/guide", "public/guide.md"},
		{"/docs/../../etc/passwd", "etc/passwd.md"},
		{"/docs", ""},
		{"/docs/bad%zzpath", "bad%zzpath.md"},
	}

	for _, tc := range cases {
		if got := MarkdownPath(tc.in); got != tc.want {
			t.Fatalf("MarkdownPath(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestPagePathInvertsMarkdownPath(t *testing.T) {
	page := PagePath("public/01-intro/setup.md")
	if page != "/docs/public/01-intro/setup" {
		t.Fatalf("unexpected page path %q", page)
	}
	if got := MarkdownPath(page); got != "public/01-intro/setup.md" {
		t.Fatalf("expected round trip, got %q", got)
	}
	if got := ScopeOf(page); got != "public" {
		t.Fatalf("expected scope public, got %q", got)
	}
}

func TestDisplayName(t *testing.T) {
	cases := map[string]string{
		"01-getting-started":  "Getting Started",
		"02_api_reference":    "Api Reference",
		"faq.md":              "Faq",
		"10-release-notes.md": "Release Notes",
		"CLI-usage":           "CLI Usage",
	}
	for in, want := range cases {
		if got := DisplayName(in); got != want {
			t.Fatalf("DisplayName(%q): expected %q, got %q", in, want, got)
		}
	}
}
