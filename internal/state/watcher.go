package state

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Paintersrp/portal/internal/pathutil"
)

// DocsWatcher reports markdown changes below the docs root. Bursts of events
// are coalesced: the callback fires once the tree has been quiet for the
// configured interval.
type DocsWatcher struct {
	watcher  *fsnotify.Watcher
	root     string
	quiet    time.Duration
	done     chan struct{}
	once     sync.Once
	mu       sync.Mutex
	onChange func([]string)
	onError  func(error)
}

func NewDocsWatcher(root string, quiet time.Duration) (*DocsWatcher, error) {
	normalized := pathutil.NormalizePath(root)
	if normalized == "" {
		return nil, errors.New("docs directory cannot be empty")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	watcher := &DocsWatcher{
		watcher: w,
		root:    normalized,
		quiet:   quiet,
		done:    make(chan struct{}),
	}
	if err := watcher.addRecursive(normalized); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	return watcher, nil
}

// OnChange registers the callback that receives the docs-relative paths of
// changed markdown files, sorted and without duplicates.
func (w *DocsWatcher) OnChange(fn func([]string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// OnError registers a callback for watcher errors.
func (w *DocsWatcher) OnError(fn func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = fn
}

// Run delivers change batches until ctx is cancelled or the watcher closes.
func (w *DocsWatcher) Run(ctx context.Context) error {
	changed := make(map[string]struct{})
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.done:
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.addRecursive(event.Name)
					continue
				}
			}
			if !w.isRelevant(event) {
				continue
			}
			rel, err := w.relativePath(event.Name)
			if err != nil || rel == "" {
				continue
			}
			changed[rel] = struct{}{}
			timer.Reset(w.quiet)

		case <-timer.C:
			if len(changed) == 0 {
				continue
			}
			paths := make([]string, 0, len(changed))
			for p := range changed {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			changed = make(map[string]struct{})
			w.emit(paths)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			if err != nil {
				w.mu.Lock()
				fn := w.onError
				w.mu.Unlock()
				if fn != nil {
					fn(err)
				}
			}
		}
	}
}

func (w *DocsWatcher) emit(paths []string) {
	w.mu.Lock()
	fn := w.onChange
	w.mu.Unlock()
	if fn != nil {
		fn(paths)
	}
}

func (w *DocsWatcher) Close() error {
	if w == nil {
		return nil
	}

	var closeErr error
	w.once.Do(func() {
		close(w.done)
		closeErr = w.watcher.Close()
	})
	return closeErr
}

func (w *DocsWatcher) addRecursive(root string) error {
	normalized := pathutil.NormalizePath(root)
	return filepath.WalkDir(normalized, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				return filepath.SkipDir
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return w.watcher.Add(path)
	})
}

func (w *DocsWatcher) isRelevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return strings.EqualFold(filepath.Ext(event.Name), ".md")
}

func (w *DocsWatcher) relativePath(path string) (string, error) {
	rel, err := pathutil.DocsRelative(w.root, pathutil.NormalizePath(path))
	if err != nil {
		return "", err
	}
	if rel == "." || rel == "" || strings.HasPrefix(rel, "..") {
		return "", nil
	}
	return rel, nil
}
