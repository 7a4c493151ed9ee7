package server

import (
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/Paintersrp/portal/internal/auth"
	"github.com/Paintersrp/portal/internal/docsmap"
	"github.com/Paintersrp/portal/internal/fetch"
	"github.com/Paintersrp/portal/internal/pathutil"
	"github.com/Paintersrp/portal/internal/render"
	"github.com/Paintersrp/portal/internal/services/session"
)

// SearchResponse is the body of GET /api/search.
type SearchResponse = session.Snapshot

type errorResponse struct {
	Error string `json:"error"`
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { display: flex; gap: 2rem; max-width: 72rem; margin: 2rem auto; font-family: system-ui, sans-serif; line-height: 1.6; }
nav { min-width: 14rem; font-size: 0.9rem; }
nav .level-3 { padding-left: 1rem; }
article { flex: 1; min-width: 0; }
pre { padding: 1rem; overflow-x: auto; }
</style>
</head>
<body>
{{- if .Headings}}
<nav>
<strong>On this page</strong>
{{- range .Headings}}
<div class="level-{{.Level}}"><a href="#{{.ID}}">{{.Text}}</a></div>
{{- end}}
</nav>
{{- end}}
<article>
{{- if .Description}}
<p><em>{{.Description}}</em></p>
{{- end}}
{{.Body}}
</article>
</body>
</html>
`))

type renderedPage struct {
	raw  string
	page render.Page
}

type pageView struct {
	Title       string
	Description string
	Headings    []render.Heading
	Body        template.HTML
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	pagePath := pathutil.DocsPrefix + "/" + r.PathValue("path")
	if err := s.authorize(r, pathutil.ScopeOf(pagePath)); err != nil {
		s.writeError(w, err)
		return
	}
	if s.fetcher == nil {
		s.writeError(w, fetch.ErrNotFound)
		return
	}

	raw, err := s.fetcher.Fetch(r.Context(), pagePath)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if strings.EqualFold(path.Ext(pagePath), ".md") {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = io.WriteString(w, raw)
		return
	}

	page, err := s.renderPage(pagePath, raw)
	if err != nil {
		s.writeError(w, err)
		return
	}

	view := pageView{
		Title:    pathutil.DisplayName(path.Base(pagePath)),
		Headings: page.Headings,
		Body:     template.HTML(page.HTML),
	}
	if title, ok := page.Metadata.String("title"); ok && title != "" {
		view.Title = title
	}
	if desc, ok := page.Metadata.String("description"); ok {
		view.Description = desc
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, view); err != nil {
		s.logger.Printf("server: render %s: %v", pagePath, err)
	}
}

// renderPage renders raw, reusing the cached result while the source of
// pagePath is unchanged.
func (s *Server) renderPage(pagePath, raw string) (render.Page, error) {
	if cached, ok := s.pages.Get(pagePath); ok && cached.raw == raw {
		return cached.page, nil
	}
	page, err := render.Render(raw)
	if err != nil {
		return render.Page{}, err
	}
	s.pages.Put(pagePath, renderedPage{raw: raw, page: page})
	return page, nil
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	if s.source == nil {
		s.writeError(w, errors.New("docs map is not configured"))
		return
	}

	scope := r.URL.Query().Get("scope")
	if scope != "" {
		if err := s.authorize(r, scope); err != nil {
			s.writeError(w, err)
			return
		}
	}

	tree, err := s.source.Load(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	if scope != "" {
		nodes, err := tree.Scope(scope)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, nodes)
		return
	}

	visible := docsmap.Map{}
	for _, name := range s.readable(r) {
		if nodes, ok := tree[name]; ok {
			visible[name] = nodes
		}
	}
	writeJSON(w, http.StatusOK, visible)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	term, scope := q.Get("q"), q.Get("scope")

	if scope != "" {
		if err := s.authorize(r, scope); err != nil {
			s.writeError(w, err)
			return
		}
		sess, ok := s.sessions[scope]
		if !ok {
			s.writeError(w, docsmap.ErrUnknownScope)
			return
		}
		writeJSON(w, http.StatusOK, sess.Snapshot(term))
		return
	}

	readable := s.readable(r)
	if all, ok := s.sessions[""]; ok && len(readable) == len(s.cfg.Scopes) {
		writeJSON(w, http.StatusOK, all.Snapshot(term))
		return
	}

	var sessions []*session.Session
	for _, name := range readable {
		sessions = append(sessions, s.sessions[name])
	}
	writeJSON(w, http.StatusOK, session.QueryAll(term, sessions...))
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		status = http.StatusUnauthorized
		w.Header().Set("WWW-Authenticate", `Bearer realm="portal"`)
	case errors.Is(err, auth.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, fetch.ErrNotFound), errors.Is(err, docsmap.ErrUnknownScope):
		status = http.StatusNotFound
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Printf("server: %v", err)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
