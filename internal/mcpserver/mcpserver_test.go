package mcpserver

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Paintersrp/portal/internal/config"
	"github.com/Paintersrp/portal/internal/docsmap"
	"github.com/Paintersrp/portal/internal/fetch"
	"github.com/Paintersrp/portal/internal/pathutil"
	"github.com/Paintersrp/portal/internal/search"
	"github.com/Paintersrp/portal/internal/services/session"
)

var testTree = docsmap.Map{
	"public": {
		{Section: "Guides", Pages: []docsmap.Node{
			{Title: "Install", Path: "/docs/public/guides/install"},
		}},
		{Title: "FAQ", Path: "/docs/public/faq"},
	},
	"internal": {
		{Title: "Runbook", Path: "/docs/internal/runbook"},
	},
}

var testPages = map[string]string{
	"public/guides/install.md": "---\ntitle: Install Guide\n---\nInstall the agent.",
	"public/faq.md":            "Questions about the agent.",
	"internal/runbook.md":      "Restart the agent.",
}

func connect(t *testing.T, allow func(string) bool) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	cfg := config.Default()
	f := fetch.FetcherFunc(func(ctx context.Context, pagePath string) (string, error) {
		raw, ok := testPages[pathutil.MarkdownPath(pagePath)]
		if !ok {
			return "", fetch.ErrNotFound
		}
		return raw, nil
	})
	src := docsmap.StaticSource(testTree)
	ix := search.NewIndexer(f, search.Config{ScopeOrder: cfg.ScopeNames()})

	sessions := map[string]*session.Session{}
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	for _, scope := range cfg.ScopeNames() {
		sess := session.NewSession(src, ix, session.Options{Scope: scope})
		t.Cleanup(func() { sess.Close() })
		if err := sess.Wait(waitCtx); err != nil {
			t.Fatalf("session %q did not settle: %v", scope, err)
		}
		sessions[scope] = sess
	}

	server := New(Options{Config: cfg, Sessions: sessions, Source: src, Fetcher: f, Allow: allow})
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect failed: %v", err)
	}
	t.Cleanup(func() { serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "portal-test"}, nil)
	clientSession, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect failed: %v", err)
	}
	t.Cleanup(func() { clientSession.Close() })
	return clientSession
}

func call(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any, out any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool %s failed: %v", name, err)
	}
	if res.IsError || out == nil {
		return res
	}
	data, err := json.Marshal(res.StructuredContent)
	if err != nil {
		t.Fatalf("failed to marshal structured content: %v", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("failed to decode structured content: %v", err)
	}
	return res
}

func publicOnly(scope string) bool { return scope == "public" }

func TestListsTools(t *testing.T) {
	cs := connect(t, nil)
	res, err := cs.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range res.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"search_docs", "get_page", "list_pages"} {
		if !names[want] {
			t.Fatalf("expected tool %s, got %v", want, names)
		}
	}
}

func TestSearchDocs(t *testing.T) {
	cs := connect(t, nil)

	var snap session.Snapshot
	call(t, cs, "search_docs", map[string]any{"term": "agent"}, &snap)
	if snap.DocumentCount != 3 || len(snap.Results) != 3 {
		t.Fatalf("expected three results over all scopes, got %+v", snap)
	}
	if snap.Results[0].Path != "/docs/public/guides/install" {
		t.Fatalf("expected the install page first, got %s", snap.Results[0].Path)
	}

	call(t, cs, "search_docs", map[string]any{"term": "agent", "scope": "internal", "limit": 1}, &snap)
	if len(snap.Results) != 1 || snap.Results[0].Path != "/docs/internal/runbook" {
		t.Fatalf("expected the runbook only, got %+v", snap.Results)
	}
}

func TestSearchDocsHonorsAllow(t *testing.T) {
	cs := connect(t, publicOnly)

	var snap session.Snapshot
	call(t, cs, "search_docs", map[string]any{"term": "agent"}, &snap)
	if snap.DocumentCount != 2 {
		t.Fatalf("expected only public documents, got %d", snap.DocumentCount)
	}
	for _, r := range snap.Results {
		if pathutil.ScopeOf(r.Path) != "public" {
			t.Fatalf("unexpected result %s", r.Path)
		}
	}

	if res := call(t, cs, "search_docs", map[string]any{"term": "agent", "scope": "internal"}, nil); !res.IsError {
		t.Fatalf("expected an error result for a disallowed scope")
	}
}

func TestGetPage(t *testing.T) {
	cs := connect(t, publicOnly)

	var page PageOutput
	call(t, cs, "get_page", map[string]any{"path": "/docs/public/guides/install"}, &page)
	if page.Title != "Install Guide" || page.Content != "Install the agent." {
		t.Fatalf("unexpected page: %+v", page)
	}

	if res := call(t, cs, "get_page", map[string]any{"path": "/docs/internal/runbook"}, nil); !res.IsError {
		t.Fatalf("expected an error result for a disallowed page")
	}
	if res := call(t, cs, "get_page", map[string]any{"path": "/docs/public/missing"}, nil); !res.IsError {
		t.Fatalf("expected an error result for a missing page")
	}
}

func TestListPages(t *testing.T) {
	cs := connect(t, nil)

	var list ListOutput
	call(t, cs, "list_pages", map[string]any{"scope": "public"}, &list)
	want := []PageRef{
		{Path: "/docs/public/guides/install", Title: "Install", Section: "Guides"},
		{Path: "/docs/public/faq", Title: "FAQ", Section: "Public"},
	}
	if len(list.Pages) != len(want) {
		t.Fatalf("expected %d pages, got %+v", len(want), list.Pages)
	}
	for i := range want {
		if list.Pages[i] != want[i] {
			t.Fatalf("expected page %d to be %+v, got %+v", i, want[i], list.Pages[i])
		}
	}
}
