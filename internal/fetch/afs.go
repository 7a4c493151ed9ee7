package fetch

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/viant/afs"
	"github.com/viant/afs/url"

	"github.com/Paintersrp/portal/internal/pathutil"
)

// AFSFetcher reads documents through viant/afs, so the docs root may live on
// the local disk (file://), in memory (mem://) or behind a static web server
// (http:// or https://).
type AFSFetcher struct {
	fs      afs.Service
	baseURL string
}

func NewAFSFetcher(baseURL string) *AFSFetcher {
	return &AFSFetcher{fs: afs.New(), baseURL: baseURL}
}

// NewFileFetcher reads documents from a local docs directory.
func NewFileFetcher(docsRoot string) (*AFSFetcher, error) {
	abs, err := filepath.Abs(pathutil.NormalizePath(docsRoot))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve docs root %q: %w", docsRoot, err)
	}
	return NewAFSFetcher("file://" + filepath.ToSlash(abs)), nil
}

// BaseURL is the location page paths are resolved against.
func (f *AFSFetcher) BaseURL() string {
	return f.baseURL
}

func (f *AFSFetcher) Fetch(ctx context.Context, pagePath string) (string, error) {
	rel := pathutil.MarkdownPath(pagePath)
	if rel == "" {
		return "", fmt.Errorf("%w: %q", ErrNotFound, pagePath)
	}

	URL := url.Join(f.baseURL, rel)
	exists, err := f.fs.Exists(ctx, URL)
	if err != nil {
		return "", fmt.Errorf("failed to check %s: %w", URL, err)
	}
	if !exists {
		return "", fmt.Errorf("%w: %s", ErrNotFound, pagePath)
	}

	data, err := f.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", URL, err)
	}
	return string(data), nil
}
