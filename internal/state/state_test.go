package state

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Paintersrp/portal/internal/config"
	"github.com/Paintersrp/portal/internal/docsmap"
)

func writeDoc(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("failed to create %s: %v", filepath.Dir(full), err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", rel, err)
	}
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	writeDoc(t, root, "public/01-start/install.md", "---\ntitle: Install\n---\nInstall the agent.")
	writeDoc(t, root, "internal/runbook.md", "Restart the agent.")

	cfg := config.Default()
	cfg.DocsRoot = root
	cfg.MapFile = filepath.Join(root, "docs-map.json")
	return cfg
}

func settle(t *testing.T, s interface{ Wait(context.Context) error }) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("session did not settle: %v", err)
	}
}

func TestNewBuildsFromDocsRootWithoutMap(t *testing.T) {
	cfg := newTestConfig(t)
	var logs bytes.Buffer

	s, err := New(context.Background(), cfg, Options{Stderr: &logs})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer s.Close()

	if _, ok := s.Source.(docsmap.BuilderSource); !ok {
		t.Fatalf("expected a builder source without a map file, got %T", s.Source)
	}
	if !strings.Contains(logs.String(), "docs map") {
		t.Fatalf("expected missing map to be logged, got %q", logs.String())
	}
	if !strings.HasPrefix(logs.String(), "portal: ") {
		t.Fatalf("expected portal log prefix, got %q", logs.String())
	}
	if s.Authority != nil {
		t.Fatalf("expected no authority without a jwt secret")
	}

	sess := s.NewSession("public")
	settle(t, sess)
	if got := sess.DocumentCount(); got != 1 {
		t.Fatalf("expected 1 public document, got %d", got)
	}
}

func TestRebuildWritesMapAndSwitchesSource(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Server.JWTSecret = "secret"

	s, err := New(context.Background(), cfg, Options{Quiet: true})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer s.Close()
	if s.Authority == nil {
		t.Fatalf("expected an authority when a secret is configured")
	}

	m, err := s.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("Rebuild returned error: %v", err)
	}
	if len(m["public"]) != 1 || m["public"][0].Section != "Start" {
		t.Fatalf("unexpected public tree: %+v", m["public"])
	}

	loaded, err := docsmap.Load(cfg.MapFile)
	if err != nil {
		t.Fatalf("failed to load written map: %v", err)
	}
	if len(loaded["internal"]) != 1 {
		t.Fatalf("expected internal page in written map, got %+v", loaded)
	}

	again, err := New(context.Background(), cfg, Options{Quiet: true})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer again.Close()
	if _, ok := again.Source.(docsmap.FileSource); !ok {
		t.Fatalf("expected a file source once the map exists, got %T", again.Source)
	}
}

func TestSessionsCoverEveryScope(t *testing.T) {
	s, err := New(context.Background(), newTestConfig(t), Options{Quiet: true})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	sessions := s.Sessions()
	if len(sessions) != 3 {
		t.Fatalf("expected public, internal and all sessions, got %d", len(sessions))
	}
	for _, sess := range sessions {
		settle(t, sess)
	}
	if got := sessions[""].DocumentCount(); got != 2 {
		t.Fatalf("expected the all-scope session to hold 2 documents, got %d", got)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if got := sessions["public"].DocumentCount(); got != 0 {
		t.Fatalf("expected sessions to be closed with the state, got %d documents", got)
	}
}

func TestNewRejectsBadBackend(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Fetch.Backend = "afs"
	if _, err := New(context.Background(), cfg, Options{Quiet: true}); err == nil {
		t.Fatalf("expected an error for an afs backend without a base url")
	}
}

func TestDocsWatcherCoalescesMarkdownChanges(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "public/a.md", "a")

	w, err := NewDocsWatcher(root, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("NewDocsWatcher returned error: %v", err)
	}
	defer w.Close()

	batches := make(chan []string, 4)
	w.OnChange(func(paths []string) { batches <- paths })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	writeDoc(t, root, "public/a.md", "changed")
	writeDoc(t, root, "public/b.md", "new")
	writeDoc(t, root, "public/notes.txt", "ignored")

	select {
	case paths := <-batches:
		if strings.Join(paths, ",") != "public/a.md,public/b.md" {
			t.Fatalf("expected both markdown files in one batch, got %v", paths)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("expected a change batch")
	}
}
