package build

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Paintersrp/portal/internal/config"
	"github.com/Paintersrp/portal/internal/docsmap"
	"github.com/Paintersrp/portal/internal/state"
)

func newTestState(t *testing.T) *state.State {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"public/01-start/install.md": "---\ntitle: Install\n---\nInstall the agent.",
		"internal/runbook.md":        "Restart the agent.",
	}
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("failed to create %s: %v", filepath.Dir(full), err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", rel, err)
		}
	}

	cfg := config.Default()
	cfg.DocsRoot = root
	cfg.MapFile = filepath.Join(root, "docs-map.json")

	s, err := state.New(context.Background(), cfg, state.Options{Quiet: true})
	if err != nil {
		t.Fatalf("failed to create state: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func execute(t *testing.T, s *state.State, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewCmdBuild(s)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SilenceUsage = true
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestBuildWritesMapAndSummary(t *testing.T) {
	interactive = func() bool { return false }
	s := newTestState(t)

	out, err := execute(t, s)
	if err != nil {
		t.Fatalf("build returned error: %v", err)
	}
	if !strings.Contains(out, "1 sections, 1 pages") {
		t.Fatalf("expected public summary, got %q", out)
	}
	if !strings.Contains(out, "0 sections, 1 pages") {
		t.Fatalf("expected internal summary, got %q", out)
	}
	if strings.Index(out, "public:") > strings.Index(out, "internal:") {
		t.Fatalf("expected scopes in config order, got %q", out)
	}

	m, err := docsmap.Load(s.Config.MapFile)
	if err != nil {
		t.Fatalf("expected a readable docs map, got %v", err)
	}
	if len(m["public"]) != 1 {
		t.Fatalf("unexpected public tree: %+v", m["public"])
	}
}

func TestBuildAsksBeforeReplacing(t *testing.T) {
	s := newTestState(t)
	if err := os.WriteFile(s.Config.MapFile, []byte("{}"), 0o644); err != nil {
		t.Fatalf("failed to seed map: %v", err)
	}

	var asked string
	interactive = func() bool { return true }
	confirm = func(prompt string) (bool, error) {
		asked = prompt
		return false, nil
	}
	t.Cleanup(func() { interactive = func() bool { return false } })

	out, err := execute(t, s)
	if err != nil {
		t.Fatalf("build returned error: %v", err)
	}
	if !strings.Contains(asked, "docs-map.json") {
		t.Fatalf("expected prompt to name the map file, got %q", asked)
	}
	if !strings.Contains(out, "Build cancelled.") {
		t.Fatalf("expected cancellation message, got %q", out)
	}
	data, _ := os.ReadFile(s.Config.MapFile)
	if string(data) != "{}" {
		t.Fatalf("expected the map to be left alone, got %q", data)
	}

	asked = ""
	if _, err := execute(t, s, "--force"); err != nil {
		t.Fatalf("forced build returned error: %v", err)
	}
	if asked != "" {
		t.Fatalf("expected --force to skip the prompt")
	}
}

func TestBuildRejectsArguments(t *testing.T) {
	s := newTestState(t)
	if _, err := execute(t, s, "extra"); err == nil {
		t.Fatalf("expected an error for a positional argument")
	}
}
