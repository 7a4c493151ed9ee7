package docsmap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/Paintersrp/portal/internal/pathutil"
)

// ErrUnknownScope reports a scope the map does not contain.
var ErrUnknownScope = errors.New("unknown scope")

// Scope returns the top-level nodes of name.
func (m Map) Scope(name string) ([]Node, error) {
	nodes, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScope, name)
	}
	return nodes, nil
}

// Builder generates a docs map from a directory holding one subdirectory per
// scope.
type Builder struct {
	Root   string
	Scopes []string
	Logger *log.Logger
}

// Build walks every scope below Root. A scope without a directory yields an
// empty tree.
func (b Builder) Build(ctx context.Context) (Map, error) {
	if b.Root == "" {
		return nil, errors.New("docs root is required")
	}
	info, err := os.Stat(b.Root)
	if err != nil {
		return nil, fmt.Errorf("docs root %s: %w", b.Root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("docs root %s is not a directory", b.Root)
	}

	m := make(Map, len(b.Scopes))
	for _, scope := range b.Scopes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dir := filepath.Join(b.Root, scope)
		if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
			m[scope] = []Node{}
			continue
		}

		nodes, err := b.readDir(ctx, dir, scope)
		if err != nil {
			return nil, err
		}
		m[scope] = nodes
	}
	return m, nil
}

func (b Builder) logger() *log.Logger {
	if b.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return b.Logger
}

func (b Builder) readDir(ctx context.Context, dir, rel string) ([]Node, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", dir, err)
	}

	nodes := make([]Node, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := entry.Name()
		full := filepath.Join(dir, name)
		childRel := rel + "/" + name

		if entry.IsDir() {
			pages, err := b.readDir(ctx, full, childRel)
			if err != nil {
				return nil, err
			}
			if len(pages) == 0 {
				continue
			}
			nodes = append(nodes, Node{
				Section: pathutil.DisplayName(name),
				Path:    pathutil.DocsPrefix + "/" + childRel,
				Pages:   pages,
			})
			continue
		}

		if !entry.Type().IsRegular() || !strings.HasSuffix(name, ".md") {
			continue
		}

		page, err := readPage(full, childRel)
		if err != nil {
			b.logger().Printf("docsmap: skip %s: %v", full, err)
			continue
		}
		nodes = append(nodes, page)
	}

	sortNodes(nodes)
	return nodes, nil
}

type pageMeta struct {
	Title       string
	Order       int
	Description string
	Tags        []string
}

func readPage(full, rel string) (Node, error) {
	data, err := os.ReadFile(full)
	if err != nil {
		return Node{}, err
	}

	meta, err := parsePageMeta(splitFrontMatter(data))
	if err != nil {
		return Node{}, err
	}

	name := strings.TrimSuffix(filepath.Base(full), ".md")
	page := Node{
		Title:       meta.Title,
		Path:        pathutil.PagePath(rel),
		Order:       meta.Order,
		Description: meta.Description,
		Tags:        meta.Tags,
	}
	if page.Title == "" {
		page.Title = pathutil.DisplayName(name)
	}
	if page.Order == 0 {
		page.Order = DefaultOrder
	}
	return page, nil
}

var frontMatterRe = regexp.MustCompile(`(?s)^\x{feff}?---[ \t]*\r?\n(.*?)\r?\n---[ \t]*(?:\r?\n|$)`)

func splitFrontMatter(data []byte) []byte {
	m := frontMatterRe.FindSubmatch(data)
	if m == nil {
		return nil
	}
	return m[1]
}

// parsePageMeta reads the keys the docs map cares about from a YAML front
// matter block. Unknown keys are ignored; malformed YAML is an error.
func parsePageMeta(fm []byte) (pageMeta, error) {
	var meta pageMeta
	if len(fm) == 0 {
		return meta, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(fm, &doc); err != nil {
		return meta, fmt.Errorf("invalid front matter: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return meta, nil
	}

	mapping := doc.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return meta, nil
	}

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key, value := mapping.Content[i].Value, mapping.Content[i+1]
		switch key {
		case "title":
			if value.Kind == yaml.ScalarNode {
				meta.Title = value.Value
			}
		case "description":
			if value.Kind == yaml.ScalarNode {
				meta.Description = value.Value
			}
		case "order":
			if value.Kind == yaml.ScalarNode {
				if n, err := strconv.ParseFloat(value.Value, 64); err == nil {
					meta.Order = int(n)
				}
			}
		case "tags":
			meta.Tags = flattenYAMLValue(value)
		}
	}
	return meta, nil
}

func flattenYAMLValue(node *yaml.Node) []string {
	switch node.Kind {
	case yaml.SequenceNode:
		vals := make([]string, 0, len(node.Content))
		for _, child := range node.Content {
			if child.Kind == yaml.ScalarNode {
				vals = append(vals, child.Value)
			}
		}
		return vals
	case yaml.ScalarNode:
		if node.Value == "" {
			return nil
		}
		return []string{node.Value}
	default:
		return nil
	}
}

// sortNodes puts sections before pages, then orders pages by their order
// value and falls back to a locale aware comparison of display names.
func sortNodes(nodes []Node) {
	col := collate.New(language.Und)
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if a.IsSection() != b.IsSection() {
			return a.IsSection()
		}
		if !a.IsSection() && a.Order != b.Order {
			return a.Order < b.Order
		}
		return col.CompareString(label(a), label(b)) < 0
	})
}

func label(n Node) string {
	if n.Title != "" {
		return n.Title
	}
	return n.Section
}
