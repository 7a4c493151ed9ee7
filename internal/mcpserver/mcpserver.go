// Package mcpserver exposes documentation search as Model Context Protocol
// tools.
package mcpserver

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"path"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Paintersrp/portal/internal/config"
	"github.com/Paintersrp/portal/internal/constants"
	"github.com/Paintersrp/portal/internal/docsmap"
	"github.com/Paintersrp/portal/internal/fetch"
	"github.com/Paintersrp/portal/internal/frontmatter"
	"github.com/Paintersrp/portal/internal/pathutil"
	"github.com/Paintersrp/portal/internal/services/session"
)

// Options wire the tools to the portal.
type Options struct {
	Config   *config.Config
	Sessions map[string]*session.Session
	Source   docsmap.Source
	Fetcher  fetch.Fetcher
	// Allow reports whether a scope may be served. Nil allows every
	// configured scope.
	Allow  func(scope string) bool
	Logger *log.Logger
}

// SearchInput are the arguments of search_docs.
type SearchInput struct {
	Term  string `json:"term" jsonschema:"text to look for in titles, descriptions, tags and content"`
	Scope string `json:"scope,omitempty" jsonschema:"scope to search, all permitted scopes when empty"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, unlimited when zero"`
}

// PageInput are the arguments of get_page.
type PageInput struct {
	Path string `json:"path" jsonschema:"page path such as /docs/public/guides/install"`
}

// PageOutput is the result of get_page.
type PageOutput struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ListInput are the arguments of list_pages.
type ListInput struct {
	Scope string `json:"scope" jsonschema:"scope whose pages are listed"`
}

// PageRef names one page of the docs map.
type PageRef struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Section string `json:"section"`
}

// ListOutput is the result of list_pages.
type ListOutput struct {
	Scope string    `json:"scope"`
	Pages []PageRef `json:"pages"`
}

type tools struct {
	cfg      *config.Config
	sessions map[string]*session.Session
	source   docsmap.Source
	fetcher  fetch.Fetcher
	allow    func(string) bool
	logger   *log.Logger
}

// New builds an MCP server with the search_docs, get_page and list_pages
// tools.
func New(opts Options) *mcp.Server {
	t := &tools{
		cfg:      opts.Config,
		sessions: opts.Sessions,
		source:   opts.Source,
		fetcher:  opts.Fetcher,
		allow:    opts.Allow,
		logger:   opts.Logger,
	}
	if t.cfg == nil {
		t.cfg = config.Default()
	}
	if t.logger == nil {
		t.logger = log.New(io.Discard, "", 0)
	}

	server := mcp.NewServer(&mcp.Implementation{Name: constants.AppName, Version: constants.Version}, nil)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_docs",
		Description: "Search the documentation portal. Results are ranked by relevance.",
	}, t.search)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_page",
		Description: "Return the markdown body of a documentation page.",
	}, t.page)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_pages",
		Description: "List the pages of a documentation scope.",
	}, t.list)
	return server
}

// ServeStdio runs server over stdin and stdout until ctx is cancelled or the
// client disconnects.
func ServeStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler serves server over the streamable HTTP transport.
func HTTPHandler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)
}

func (t *tools) allowed(scope string) bool {
	if !t.cfg.HasScope(scope) {
		return false
	}
	return t.allow == nil || t.allow(scope)
}

func (t *tools) search(ctx context.Context, req *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, session.Snapshot, error) {
	var snap session.Snapshot
	if in.Scope != "" {
		if !t.allowed(in.Scope) {
			return nil, snap, fmt.Errorf("%w: %s", docsmap.ErrUnknownScope, in.Scope)
		}
		sess, ok := t.sessions[in.Scope]
		if !ok {
			return nil, snap, fmt.Errorf("scope %q is not indexed", in.Scope)
		}
		snap = sess.Snapshot(in.Term)
	} else {
		var sessions []*session.Session
		for _, name := range t.cfg.ScopeNames() {
			if t.allowed(name) {
				sessions = append(sessions, t.sessions[name])
			}
		}
		snap = session.QueryAll(in.Term, sessions...)
	}

	if in.Limit > 0 && len(snap.Results) > in.Limit {
		snap.Results = snap.Results[:in.Limit]
	}
	t.logger.Printf("mcp: search_docs %q (scope %s): %d results", in.Term, scopeLabel(in.Scope), len(snap.Results))
	return nil, snap, nil
}

func (t *tools) page(ctx context.Context, req *mcp.CallToolRequest, in PageInput) (*mcp.CallToolResult, PageOutput, error) {
	var out PageOutput
	scope := pathutil.ScopeOf(in.Path)
	if !t.allowed(scope) {
		return nil, out, fmt.Errorf("%w: %s", fetch.ErrNotFound, in.Path)
	}
	if t.fetcher == nil {
		return nil, out, fmt.Errorf("no document fetcher configured")
	}

	raw, err := t.fetcher.Fetch(ctx, in.Path)
	if err != nil {
		return nil, out, err
	}
	doc := frontmatter.Split(raw)

	out.Path = in.Path
	out.Content = doc.Content
	out.Title = pathutil.DisplayName(path.Base(in.Path))
	if title, ok := doc.Metadata.String("title"); ok && title != "" {
		out.Title = title
	}
	return nil, out, nil
}

func (t *tools) list(ctx context.Context, req *mcp.CallToolRequest, in ListInput) (*mcp.CallToolResult, ListOutput, error) {
	out := ListOutput{Scope: in.Scope, Pages: []PageRef{}}
	if !t.allowed(in.Scope) {
		return nil, out, fmt.Errorf("%w: %s", docsmap.ErrUnknownScope, in.Scope)
	}
	if t.source == nil {
		return nil, out, fmt.Errorf("docs map is not configured")
	}

	tree, err := t.source.Load(ctx)
	if err != nil {
		return nil, out, err
	}
	nodes, err := tree.Scope(in.Scope)
	if err != nil {
		return nil, out, err
	}
	docsmap.Walk(nodes, pathutil.DisplayName(in.Scope), func(e docsmap.Entry) {
		out.Pages = append(out.Pages, PageRef{Path: e.Page.Path, Title: e.Page.Title, Section: e.Section})
	})
	return nil, out, nil
}

func scopeLabel(scope string) string {
	if scope == "" {
		return "all"
	}
	return scope
}
