// Package fzf lets the user pick a documentation page with a fuzzy finder
// that previews the rendered page.
package fzf

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ktr0731/go-fuzzyfinder"

	"github.com/Paintersrp/portal/internal/docsmap"
	"github.com/Paintersrp/portal/internal/fetch"
	"github.com/Paintersrp/portal/internal/render"
)

// ErrNoSelection is returned when the finder is closed without a choice.
var ErrNoSelection = errors.New("no page selected")

type findFunc func(slice interface{}, itemFunc func(i int) string, opts ...fuzzyfinder.Option) (int, error)

// Picker runs the finder over a set of pages.
type Picker struct {
	fetcher fetch.Fetcher
	Header  string
	entries []docsmap.Entry
	find    findFunc

	mu       sync.Mutex
	previews map[int]string
}

func NewPicker(f fetch.Fetcher, entries []docsmap.Entry, header string) *Picker {
	return &Picker{
		fetcher:  f,
		Header:   header,
		entries:  entries,
		find:     fuzzyfinder.Find,
		previews: make(map[int]string),
	}
}

// Pick shows the finder, seeded with query, and returns the chosen page.
func (p *Picker) Pick(ctx context.Context, query string) (docsmap.Entry, error) {
	if len(p.entries) == 0 {
		return docsmap.Entry{}, fmt.Errorf("%w: no pages to choose from", ErrNoSelection)
	}

	options := []fuzzyfinder.Option{
		fuzzyfinder.WithContext(ctx),
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			return p.preview(ctx, i, w)
		}),
	}
	if query != "" {
		options = append(options, fuzzyfinder.WithQuery(query))
	}
	if p.Header != "" {
		options = append(options, fuzzyfinder.WithHeader(p.Header))
	}

	idx, err := p.find(p.entries, func(i int) string {
		return Label(p.entries[i])
	}, options...)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return docsmap.Entry{}, ErrNoSelection
		}
		return docsmap.Entry{}, fmt.Errorf("error selecting page: %w", err)
	}
	if idx < 0 || idx >= len(p.entries) {
		return docsmap.Entry{}, ErrNoSelection
	}
	return p.entries[idx], nil
}

// Label is the finder line for a page.
func Label(e docsmap.Entry) string {
	label := e.Page.Title
	if e.Section != "" {
		label = e.Section + " / " + label
	}
	if len(e.Page.Tags) == 0 {
		return label + " [No tags] "
	}
	return fmt.Sprintf("%s [Tags: %s] ", label, strings.Join(e.Page.Tags, ", "))
}

func (p *Picker) preview(ctx context.Context, i, w int) string {
	if i < 0 || i >= len(p.entries) {
		return ""
	}

	p.mu.Lock()
	cached, ok := p.previews[i]
	p.mu.Unlock()
	if ok {
		return cached
	}

	if p.fetcher == nil {
		return "No document fetcher configured"
	}
	raw, err := p.fetcher.Fetch(ctx, p.entries[i].Page.Path)
	if err != nil {
		return "Error reading page"
	}

	width := w - 4
	if width <= 0 || width > render.DefaultWidth {
		width = render.DefaultWidth
	}
	out, err := render.Terminal(raw, width)
	if err != nil {
		return "Error rendering markdown"
	}

	p.mu.Lock()
	p.previews[i] = out
	p.mu.Unlock()
	return out
}

// Entries returns the pages offered by the picker.
func (p *Picker) Entries() []docsmap.Entry {
	return p.entries
}
