package search

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Paintersrp/portal/internal/docsmap"
	"github.com/Paintersrp/portal/internal/fetch"
	"github.com/Paintersrp/portal/internal/pathutil"
	docsearch "github.com/Paintersrp/portal/internal/search"
	"github.com/Paintersrp/portal/internal/services/session"
)

var testTree = docsmap.Map{
	"public": {
		{Section: "Guides", Pages: []docsmap.Node{
			{Title: "Install", Path: "/docs/public/guides/install"},
			{Title: "Upgrade", Path: "/docs/public/guides/upgrade"},
		}},
	},
	"internal": {
		{Title: "Runbook", Path: "/docs/internal/runbook"},
	},
}

var testPages = map[string]string{
	"public/guides/install.md": "# Install\n\nInstall the agent on every host.",
	"public/guides/upgrade.md": "Upgrade the agent in place.",
	"internal/runbook.md":      "Restart the agent.",
}

func testFetcher() fetch.Fetcher {
	return fetch.FetcherFunc(func(ctx context.Context, pagePath string) (string, error) {
		raw, ok := testPages[pathutil.MarkdownPath(pagePath)]
		if !ok {
			return "", fetch.ErrNotFound
		}
		return raw, nil
	})
}

func newTestModel(t *testing.T, copyFn func(string) error) Model {
	t.Helper()
	f := testFetcher()
	sess := session.NewSession(docsmap.StaticSource(testTree), docsearch.NewIndexer(f, docsearch.Config{}), session.Options{Scope: "public"})
	t.Cleanup(func() { sess.Close() })
	settle(t, sess)

	m := New(Options{
		Session:  sess,
		Fetcher:  f,
		Scopes:   []string{"public", "internal"},
		Debounce: time.Millisecond,
		Copy:     copyFn,
	})
	t.Cleanup(m.Close)

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(Model)
}

func settle(t *testing.T, sess *session.Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sess.Wait(ctx); err != nil {
		t.Fatalf("session did not settle: %v", err)
	}
}

func typeTerm(t *testing.T, m Model, term string) Model {
	t.Helper()
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(term)})
	if cmd == nil {
		t.Fatalf("expected a debounce command after typing")
	}
	m = updated.(Model)
	if m.input.Value() != term {
		t.Fatalf("expected input %q, got %q", term, m.input.Value())
	}
	updated, _ = m.Update(debounceMsg{tag: m.pending})
	return updated.(Model)
}

func TestDebouncedTermUpdatesResults(t *testing.T) {
	m := newTestModel(t, nil)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("agent")})
	m = updated.(Model)
	stale := m.pending
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(" in")})
	m = updated.(Model)

	updated, _ = m.Update(debounceMsg{tag: stale})
	m = updated.(Model)
	if m.session.Term() != "" {
		t.Fatalf("expected a stale debounce to be ignored, got term %q", m.session.Term())
	}

	updated, _ = m.Update(debounceMsg{tag: m.pending})
	m = updated.(Model)
	if m.session.Term() != "agent in" {
		t.Fatalf("expected term to be applied, got %q", m.session.Term())
	}
	items := m.list.Items()
	if len(items) != 1 || items[0].(resultItem).result.Path != "/docs/public/guides/upgrade" {
		t.Fatalf("expected the upgrade page, got %+v", items)
	}
}

func TestResultItemHighlightsExcerpt(t *testing.T) {
	m := typeTerm(t, newTestModel(t, nil), "agent")
	if len(m.list.Items()) != 2 {
		t.Fatalf("expected two results, got %d", len(m.list.Items()))
	}
	item := m.list.Items()[0].(resultItem)
	if !strings.Contains(item.Title(), "Install") || !strings.Contains(item.Title(), "Guides") {
		t.Fatalf("expected title and section in item title, got %q", item.Title())
	}
	if want := matchStyle.Render("agent"); !strings.Contains(item.Description(), want) {
		t.Fatalf("expected highlighted term in %q", item.Description())
	}
}

func TestCopyPath(t *testing.T) {
	var copied []string
	m := typeTerm(t, newTestModel(t, func(s string) error {
		copied = append(copied, s)
		return nil
	}), "agent")

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = updated.(Model)
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlY})
	m = updated.(Model)

	if len(copied) != 1 || copied[0] != "/docs/public/guides/upgrade" {
		t.Fatalf("expected the selected path to be copied, got %v", copied)
	}
	if !strings.Contains(m.status, "Copied /docs/public/guides/upgrade") {
		t.Fatalf("expected copy status, got %q", m.status)
	}
}

func TestCopyFailureIsReported(t *testing.T) {
	m := typeTerm(t, newTestModel(t, func(string) error {
		return errors.New("no clipboard")
	}), "agent")

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlY})
	m = updated.(Model)
	if !strings.Contains(m.status, "no clipboard") {
		t.Fatalf("expected copy failure status, got %q", m.status)
	}
}

func TestPreviewOpensAndCloses(t *testing.T) {
	m := typeTerm(t, newTestModel(t, nil), "install")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatalf("expected a preview command")
	}
	msg, ok := cmd().(previewMsg)
	if !ok {
		t.Fatalf("expected a previewMsg")
	}
	if msg.err != nil {
		t.Fatalf("preview failed: %v", msg.err)
	}

	updated, _ := m.Update(msg)
	m = updated.(Model)
	if !m.previewing || m.previewPath != "/docs/public/guides/install" {
		t.Fatalf("expected preview of the install page, got previewing=%v path=%q", m.previewing, m.previewPath)
	}
	if !strings.Contains(m.View(), "host") {
		t.Fatalf("expected rendered page in view")
	}

	updated, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)
	if m.previewing || cmd != nil {
		t.Fatalf("expected esc to return to results")
	}
	if len(m.list.Items()) != 1 {
		t.Fatalf("expected results to survive the preview, got %d", len(m.list.Items()))
	}
}

func TestPreviewErrorStaysOnResults(t *testing.T) {
	m := newTestModel(t, nil)
	updated, _ := m.Update(previewMsg{path: "/docs/public/gone", err: fetch.ErrNotFound})
	m = updated.(Model)
	if m.previewing {
		t.Fatalf("expected failed preview to stay on results")
	}
	if !strings.Contains(m.status, "/docs/public/gone") {
		t.Fatalf("expected failure status, got %q", m.status)
	}
}

func TestTabCyclesScope(t *testing.T) {
	m := newTestModel(t, nil)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = updated.(Model)
	if m.session.Scope() != "internal" {
		t.Fatalf("expected scope internal, got %q", m.session.Scope())
	}
	if !strings.Contains(m.status, "Internal") {
		t.Fatalf("expected scope status, got %q", m.status)
	}

	settle(t, m.session)
	m = typeTerm(t, m, "restart")
	if len(m.list.Items()) != 1 {
		t.Fatalf("expected the runbook, got %d results", len(m.list.Items()))
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = updated.(Model)
	if m.session.Scope() != "public" {
		t.Fatalf("expected scope to wrap to public, got %q", m.session.Scope())
	}
}

func TestInputDisabledWhileIndexing(t *testing.T) {
	release := make(chan struct{})
	f := fetch.FetcherFunc(func(ctx context.Context, pagePath string) (string, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
		return testPages[pathutil.MarkdownPath(pagePath)], nil
	})
	sess := session.NewSession(docsmap.StaticSource(testTree), docsearch.NewIndexer(f, docsearch.Config{}), session.Options{Scope: "public"})
	defer sess.Close()

	m := New(Options{Session: sess, Fetcher: f})
	defer m.Close()

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	m = updated.(Model)
	if cmd != nil || m.input.Value() != "" {
		t.Fatalf("expected input to be ignored while indexing, got %q", m.input.Value())
	}
	if !strings.Contains(m.View(), "Indexing") {
		t.Fatalf("expected indexing indicator in view")
	}

	close(release)
	settle(t, sess)

	updated, _ = m.Update(sessionMsg{event: session.EventIndexed})
	m = updated.(Model)
	if !strings.Contains(m.status, "Indexed 2 documents") {
		t.Fatalf("expected indexed status, got %q", m.status)
	}
}

func TestQuitKeys(t *testing.T) {
	m := newTestModel(t, nil)

	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC}); cmd == nil {
		t.Fatalf("expected quit command on ctrl+c")
	}
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc}); cmd == nil {
		t.Fatalf("expected quit command on esc from results")
	}
}
