package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Paintersrp/portal/internal/config"
	"github.com/Paintersrp/portal/internal/docsmap"
	"github.com/Paintersrp/portal/internal/services/session"
	"github.com/Paintersrp/portal/internal/state"
)

func newTestState(t *testing.T) *state.State {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"public/install.md":   "---\ntitle: Install\ndescription: Getting the agent running\n---\nDownload the agent and install it.",
		"public/upgrade.md":   "---\ntitle: Upgrade\n---\nStop the agent before you install the new build.",
		"internal/runbook.md": "---\ntitle: Runbook\n---\nRestart the agent.",
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
	cmd := NewCmdSearch(s)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SilenceUsage = true
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSearchPrintsRankedResults(t *testing.T) {
	out, err := execute(t, newTestState(t), "install")
	if err != nil {
		t.Fatalf("search returned error: %v", err)
	}
	install := strings.Index(out, "Install (")
	upgrade := strings.Index(out, "Upgrade (")
	if install < 0 || upgrade < 0 || install > upgrade {
		t.Fatalf("expected Install ranked above Upgrade, got %q", out)
	}
	if !strings.Contains(out, "/docs/public/install") {
		t.Fatalf("expected result paths, got %q", out)
	}
	if !strings.Contains(out, "2 of 3 documents matched.") {
		t.Fatalf("expected a match summary, got %q", out)
	}
}

func TestSearchJSONWithScopeAndLimit(t *testing.T) {
	out, err := execute(t, newTestState(t), "agent", "--scope", "public", "--json", "--limit", "1")
	if err != nil {
		t.Fatalf("search returned error: %v", err)
	}

	var snap session.Snapshot
	if err := json.Unmarshal([]byte(out), &snap); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", out, err)
	}
	if snap.Scope != "public" || snap.Term != "agent" {
		t.Fatalf("unexpected snapshot header: %+v", snap)
	}
	if len(snap.Results) != 1 {
		t.Fatalf("expected the limit to apply, got %d results", len(snap.Results))
	}
	if snap.DocumentCount != 2 {
		t.Fatalf("expected 2 public documents, got %d", snap.DocumentCount)
	}
}

func TestSearchNoResults(t *testing.T) {
	out, err := execute(t, newTestState(t), "kubernetes")
	if err != nil {
		t.Fatalf("search returned error: %v", err)
	}
	if !strings.Contains(out, `No results for "kubernetes"`) {
		t.Fatalf("expected a no results message, got %q", out)
	}
}

func TestSearchRejectsUnknownScope(t *testing.T) {
	_, err := execute(t, newTestState(t), "agent", "--scope", "secret")
	if !errors.Is(err, docsmap.ErrUnknownScope) {
		t.Fatalf("expected ErrUnknownScope, got %v", err)
	}
}

func TestSearchRequiresTerm(t *testing.T) {
	if _, err := execute(t, newTestState(t)); err == nil {
		t.Fatalf("expected an error without a term")
	}
}
