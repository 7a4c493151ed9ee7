package fzf

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ktr0731/go-fuzzyfinder"

	"github.com/Paintersrp/portal/internal/docsmap"
	"github.com/Paintersrp/portal/internal/fetch"
)

func testEntries() []docsmap.Entry {
	return []docsmap.Entry{
		{Section: "Guides", Page: docsmap.Node{Title: "Install", Path: "/docs/public/guides/install", Tags: []string{"cli", "setup"}}},
		{Section: "Public", Page: docsmap.Node{Title: "FAQ", Path: "/docs/public/faq"}},
	}
}

func TestLabel(t *testing.T) {
	entries := testEntries()
	if got := Label(entries[0]); got != "Guides / Install [Tags: cli, setup] " {
		t.Fatalf("unexpected label %q", got)
	}
	if got := Label(entries[1]); got != "Public / FAQ [No tags] " {
		t.Fatalf("unexpected label %q", got)
	}
}

func TestPickReturnsSelection(t *testing.T) {
	p := NewPicker(nil, testEntries(), "Pages")
	var labels []string
	p.find = func(slice interface{}, itemFunc func(int) string, opts ...fuzzyfinder.Option) (int, error) {
		for i := range slice.([]docsmap.Entry) {
			labels = append(labels, itemFunc(i))
		}
		return 1, nil
	}

	entry, err := p.Pick(context.Background(), "faq")
	if err != nil {
		t.Fatalf("Pick returned error: %v", err)
	}
	if entry.Page.Path != "/docs/public/faq" {
		t.Fatalf("expected the FAQ, got %+v", entry)
	}
	if len(labels) != 2 {
		t.Fatalf("expected every entry to be labelled, got %v", labels)
	}
}

func TestPickAbort(t *testing.T) {
	p := NewPicker(nil, testEntries(), "")
	p.find = func(interface{}, func(int) string, ...fuzzyfinder.Option) (int, error) {
		return -1, fuzzyfinder.ErrAbort
	}
	if _, err := p.Pick(context.Background(), ""); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}

	empty := NewPicker(nil, nil, "")
	if _, err := empty.Pick(context.Background(), ""); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection for no pages, got %v", err)
	}
}

func TestPreviewRendersAndCaches(t *testing.T) {
	calls := 0
	f := fetch.FetcherFunc(func(ctx context.Context, path string) (string, error) {
		calls++
		if path == "/docs/public/faq" {
			return "", fetch.ErrNotFound
		}
		return "# Install\n\nRun the installer.", nil
	})
	p := NewPicker(f, testEntries(), "")

	out := p.preview(context.Background(), 0, 80)
	if !strings.Contains(out, "installer") {
		t.Fatalf("expected rendered preview, got %q", out)
	}
	p.preview(context.Background(), 0, 80)
	if calls != 1 {
		t.Fatalf("expected preview to be cached, fetched %d times", calls)
	}

	if got := p.preview(context.Background(), 1, 80); got != "Error reading page" {
		t.Fatalf("expected read error preview, got %q", got)
	}
	if got := p.preview(context.Background(), -1, 80); got != "" {
		t.Fatalf("expected empty preview without selection, got %q", got)
	}
}
