// Package server exposes the documentation portal over HTTP: raw and
// rendered pages, the docs map and the search API.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/Paintersrp/portal/internal/auth"
	"github.com/Paintersrp/portal/internal/cache"
	"github.com/Paintersrp/portal/internal/config"
	"github.com/Paintersrp/portal/internal/docsmap"
	"github.com/Paintersrp/portal/internal/fetch"
	"github.com/Paintersrp/portal/internal/services/session"
)

const (
	shutdownTimeout = 5 * time.Second
	pageCacheSize   = 256
)

// Options wire a Server to its collaborators.
type Options struct {
	Config  *config.Config
	Source  docsmap.Source
	Fetcher fetch.Fetcher
	// Sessions are keyed by scope. The "" session, when present, covers
	// every scope and serves callers that may read all of them.
	Sessions  map[string]*session.Session
	Authority *auth.Authority
	// MCP, when set, is mounted at /mcp.
	MCP    http.Handler
	Logger *log.Logger
}

// Server serves the portal.
type Server struct {
	cfg       *config.Config
	source    docsmap.Source
	fetcher   fetch.Fetcher
	sessions  map[string]*session.Session
	authority *auth.Authority
	logger    *log.Logger
	mux       *http.ServeMux
	pages     *cache.LRU[string, renderedPage]
}

func New(opts Options) *Server {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	sessions := opts.Sessions
	if sessions == nil {
		sessions = map[string]*session.Session{}
	}

	s := &Server{
		cfg:       cfg,
		source:    opts.Source,
		fetcher:   opts.Fetcher,
		sessions:  sessions,
		authority: opts.Authority,
		logger:    logger,
		mux:       http.NewServeMux(),
		pages:     cache.NewLRU[string, renderedPage](pageCacheSize),
	}

	s.mux.HandleFunc("GET /docs/{path...}", s.handlePage)
	s.mux.HandleFunc("GET /api/tree", s.handleTree)
	s.mux.HandleFunc("GET /api/search", s.handleSearch)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	if opts.MCP != nil {
		s.mux.Handle("/mcp", opts.MCP)
	}
	return s
}

// Handler returns the portal's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = s.cfg.Server.Addr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("server: listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	s.logger.Printf("server: stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"status": "ok"}
	scopes := map[string]session.Stats{}
	for name, sess := range s.sessions {
		if name == "" {
			continue
		}
		scopes[name] = sess.Stats()
	}
	status["scopes"] = scopes
	writeJSON(w, http.StatusOK, status)
}

// authorize checks that the request may read scope. Public scopes are open.
func (s *Server) authorize(r *http.Request, scope string) error {
	if !s.cfg.HasScope(scope) {
		return fmt.Errorf("%w: %s", docsmap.ErrUnknownScope, scope)
	}
	if !s.cfg.IsProtected(scope) {
		return nil
	}
	if s.authority == nil {
		return fmt.Errorf("%w: scope %q is protected", auth.ErrUnauthorized, scope)
	}
	_, err := s.authority.Authorize(credentials(r), scope)
	return err
}

// readable returns the configured scopes the request may read, in order.
func (s *Server) readable(r *http.Request) []string {
	var scopes []string
	for _, name := range s.cfg.ScopeNames() {
		if s.authorize(r, name) == nil {
			scopes = append(scopes, name)
		}
	}
	return scopes
}

// credentials returns the Authorization header, falling back to an
// access_token query parameter so rendered pages can be opened in a browser.
func credentials(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return h
	}
	if token := r.URL.Query().Get("access_token"); token != "" {
		return "Bearer " + token
	}
	return ""
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Printf("server: %s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Microsecond))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
