// Package fetch retrieves the raw markdown behind a page path from the
// configured storage backend.
package fetch

import (
	"context"
	"errors"
	"fmt"

	"github.com/Paintersrp/portal/internal/config"
)

// ErrNotFound reports a page path with no markdown document behind it.
var ErrNotFound = errors.New("document not found")

// Fetcher returns the raw markdown text addressed by a page path such as
// "/docs/public/intro/setup".
type Fetcher interface {
	Fetch(ctx context.Context, pagePath string) (string, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, pagePath string) (string, error)

func (f FetcherFunc) Fetch(ctx context.Context, pagePath string) (string, error) {
	return f(ctx, pagePath)
}

// New builds the fetcher selected by cfg. The file backend reads below
// docsRoot.
func New(ctx context.Context, cfg config.FetchConfig, docsRoot string) (Fetcher, error) {
	switch cfg.Backend {
	case "", config.BackendFile:
		return NewFileFetcher(docsRoot)
	case config.BackendAFS:
		if cfg.BaseURL == "" {
			return nil, errors.New("afs backend requires fetch.base_url")
		}
		return NewAFSFetcher(cfg.BaseURL), nil
	case config.BackendS3:
		return NewS3Fetcher(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported fetch backend %q", cfg.Backend)
	}
}
