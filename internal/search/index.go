package search

import (
	"context"
	"io"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/Paintersrp/portal/internal/docsmap"
	"github.com/Paintersrp/portal/internal/fetch"
	"github.com/Paintersrp/portal/internal/frontmatter"
	"github.com/Paintersrp/portal/internal/pathutil"
)

// Indexer turns the pages of a docs map into searchable documents.
type Indexer struct {
	fetcher fetch.Fetcher
	cfg     Config
	logger  *log.Logger
}

// NewIndexer constructs an indexer that reads page bodies through f.
func NewIndexer(f fetch.Fetcher, cfg Config) *Indexer {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = DefaultConcurrency
	}
	cfg.ScopeOrder = append([]string(nil), cfg.ScopeOrder...)

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Indexer{fetcher: f, cfg: cfg, logger: logger}
}

// Entries lists the pages a pass over scope visits, in walk order. Pages that
// sit directly below a scope are owned by a section named after the scope.
func (ix *Indexer) Entries(tree docsmap.Map, scope string) []docsmap.Entry {
	if scope != "" {
		return docsmap.Flatten(tree[scope], pathutil.DisplayName(scope))
	}

	var entries []docsmap.Entry
	for _, name := range tree.ScopeOrder(ix.cfg.ScopeOrder) {
		entries = append(entries, docsmap.Flatten(tree[name], pathutil.DisplayName(name))...)
	}
	return entries
}

// Index runs a full pass over scope. An empty scope covers every scope in the
// tree. Pages that cannot be fetched are logged and left out. The only error
// returned is the context's: a cancelled pass yields no documents.
func (ix *Indexer) Index(ctx context.Context, tree docsmap.Map, scope string) ([]Document, error) {
	entries := ix.Entries(tree, scope)
	if len(entries) == 0 {
		return []Document{}, ctx.Err()
	}

	slots := make([]*Document, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.cfg.Concurrency)

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			doc, err := ix.load(gctx, entry)
			if err != nil {
				if gctx.Err() == nil {
					ix.logger.Printf("search: skip %s: %v", entry.Page.Path, err)
				}
				return nil
			}
			slots[i] = &doc
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(slots))
	for _, doc := range slots {
		if doc != nil {
			docs = append(docs, *doc)
		}
	}
	return docs, nil
}

func (ix *Indexer) load(ctx context.Context, entry docsmap.Entry) (Document, error) {
	raw, err := ix.fetcher.Fetch(ctx, entry.Page.Path)
	if err != nil {
		return Document{}, err
	}
	return NewDocument(entry, frontmatter.Split(raw)), nil
}

// NewDocument combines a page descriptor with its parsed body. Description
// and tags declared on the descriptor win over the front matter; title and
// path always come from the descriptor.
func NewDocument(entry docsmap.Entry, parsed frontmatter.Document) Document {
	page := entry.Page
	doc := Document{
		Path:        page.Path,
		Title:       page.Title,
		Section:     entry.Section,
		Content:     parsed.Content,
		Description: page.Description,
		Tags:        append([]string(nil), page.Tags...),
		Metadata:    parsed.Metadata,
	}

	if doc.Description == "" {
		doc.Description, _ = parsed.Metadata.String("description")
	}
	if len(doc.Tags) == 0 {
		doc.Tags, _ = parsed.Metadata.Strings("tags")
	}
	return doc
}
