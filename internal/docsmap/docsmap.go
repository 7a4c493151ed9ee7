// Package docsmap models the navigation tree of the documentation portal: a
// set of scopes, each holding nested sections whose leaves are pages.
package docsmap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
)

// DefaultOrder is assigned to pages that do not declare an order.
const DefaultOrder = 999

// Node is either a section, which groups child nodes under a display name, or
// a page, which addresses one markdown document. The JSON form matches the
// generated docs map consumed by the web front end.
type Node struct {
	Section     string   `json:"section,omitempty"`
	Title       string   `json:"title,omitempty"`
	Path        string   `json:"path,omitempty"`
	Order       int      `json:"order,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Pages       []Node   `json:"pages,omitempty"`
}

// IsSection reports whether the node groups other nodes.
func (n Node) IsSection() bool {
	return n.Section != "" || len(n.Pages) > 0
}

// Map holds the tree of every scope, keyed by scope name.
type Map map[string][]Node

// Select returns the top-level nodes to walk for scope. An empty scope
// concatenates every scope listed in order, followed by any remaining scopes
// of the map in name order. Unknown scopes select nothing.
func (m Map) Select(scope string, order []string) []Node {
	if scope != "" {
		return m[scope]
	}

	var out []Node
	for _, name := range m.ScopeOrder(order) {
		out = append(out, m[name]...)
	}
	return out
}

// ScopeOrder lists the scopes of the map, preferred names first.
func (m Map) ScopeOrder(preferred []string) []string {
	seen := make(map[string]struct{}, len(m))
	out := make([]string, 0, len(m))
	for _, name := range preferred {
		if _, ok := m[name]; !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}

	rest := make([]string, 0)
	for name := range m {
		if _, ok := seen[name]; !ok {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// Entry is a page together with the display name of the section that owns it.
type Entry struct {
	Section string
	Page    Node
}

// Walk visits every page below nodes depth first, in tree order. Pages that
// sit directly in nodes are reported with section as their owner.
func Walk(nodes []Node, section string, fn func(Entry)) {
	for _, n := range nodes {
		if n.IsSection() {
			Walk(n.Pages, n.Section, fn)
			continue
		}
		fn(Entry{Section: section, Page: n})
	}
}

// Flatten returns the entries Walk would visit.
func Flatten(nodes []Node, section string) []Entry {
	var out []Entry
	Walk(nodes, section, func(e Entry) {
		out = append(out, e)
	})
	return out
}

// Source yields the current docs map.
type Source interface {
	Load(ctx context.Context) (Map, error)
}

// StaticSource serves an already built map.
type StaticSource Map

func (s StaticSource) Load(context.Context) (Map, error) {
	return Map(s), nil
}

// BuilderSource regenerates the map from the docs directory on every Load.
type BuilderSource struct {
	Builder Builder
}

func (s BuilderSource) Load(ctx context.Context) (Map, error) {
	return s.Builder.Build(ctx)
}

// FileSource reads the docs map from a JSON file on every Load.
type FileSource struct {
	Path string
}

func (s FileSource) Load(ctx context.Context) (Map, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Load(s.Path)
}

// Load reads a docs map written by Save.
func Load(path string) (Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read docs map %s: %w", path, err)
	}

	m := Map{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid docs map JSON %s: %w", path, err)
	}
	return m, nil
}

// Save writes m to path as indented JSON. Concurrent writers are serialized
// through a lock file next to path and readers never observe a partial file.
func Save(path string, m Map) error {
	if path == "" {
		return errors.New("docs map path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create docs map dir: %w", err)
	}

	lock := flock.New(path + ".lock")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	locked, err := lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("cannot lock docs map %s: %w", path, err)
	}
	if !locked {
		return fmt.Errorf("docs map %s is locked by another process", path)
	}
	defer func() { _ = lock.Unlock() }()

	if m == nil {
		m = Map{}
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".docs-map-*.json")
	if err != nil {
		return fmt.Errorf("cannot create temp docs map: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("cannot write docs map: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("cannot install docs map: %w", err)
	}
	return nil
}

// Count returns the number of sections and pages below nodes.
func Count(nodes []Node) (sections, pages int) {
	for _, n := range nodes {
		if n.IsSection() {
			s, p := Count(n.Pages)
			sections += s + 1
			pages += p
			continue
		}
		pages++
	}
	return sections, pages
}
