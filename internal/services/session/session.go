// Package session keeps the searchable collection of one scope resident in
// memory and recomputes results whenever the term or the collection changes.
package session

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/Paintersrp/portal/internal/docsmap"
	"github.com/Paintersrp/portal/internal/search"
)

// ErrClosed signals that the session has been shut down.
var ErrClosed = errors.New("search session closed")

// Event names a change observers can react to.
type Event int

const (
	// EventIndexing fires when a pass starts and the collection is dropped.
	EventIndexing Event = iota
	// EventIndexed fires when a pass installs a new collection.
	EventIndexed
	// EventResults fires whenever Results changes.
	EventResults
)

func (e Event) String() string {
	switch e {
	case EventIndexing:
		return "indexing"
	case EventIndexed:
		return "indexed"
	case EventResults:
		return "results"
	default:
		return "unknown"
	}
}

// Options parameterize a session.
type Options struct {
	// Scope selects the partition of the docs map. Empty covers every scope.
	Scope  string
	Logger *log.Logger
}

// Stats captures lightweight instrumentation about the session.
type Stats struct {
	Scope       string
	Documents   int
	Passes      uint64
	LastIndexed time.Time
	LastError   string
}

// Session owns the indexed collection of a scope. Every scope change starts a
// full indexing pass; while a pass runs the collection is empty and queries
// return no results. A pass that is superseded by a newer one is cancelled
// and its output discarded.
type Session struct {
	mu      sync.RWMutex
	source  docsmap.Source
	indexer *search.Indexer
	logger  *log.Logger

	scope    string
	term     string
	docs     []search.Document
	results  []search.Result
	loading  bool
	indexing bool
	closed   bool

	generation  uint64
	version     uint64
	cancel      context.CancelFunc
	done        chan struct{}
	lastIndexed time.Time
	lastErr     error

	subs    map[int]func(Event)
	nextSub int

	now func() time.Time
}

// NewSession constructs a session and starts indexing opts.Scope.
func NewSession(source docsmap.Source, indexer *search.Indexer, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	s := &Session{
		source:  source,
		indexer: indexer,
		logger:  logger,
		scope:   opts.Scope,
		results: []search.Result{},
		subs:    make(map[int]func(Event)),
		now:     time.Now,
	}

	s.mu.Lock()
	s.startPassLocked()
	s.mu.Unlock()
	s.notify(EventIndexing, EventResults)
	return s
}

// Term returns the current search term.
func (s *Session) Term() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.term
}

// SetTerm replaces the term and recomputes the results.
func (s *Session) SetTerm(term string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.term = term
	s.loading = true
	s.version++
	version := s.version
	docs, indexing := s.docs, s.indexing
	s.mu.Unlock()

	results := query(docs, indexing, term)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.version == version {
		s.results = results
		s.loading = false
	}
	s.mu.Unlock()
	s.notify(EventResults)
}

// Results returns the results for the current term.
func (s *Session) Results() []search.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]search.Result{}, s.results...)
}

// IsLoading reports whether results are being recomputed.
func (s *Session) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// IsIndexing reports whether an indexing pass is in progress.
func (s *Session) IsIndexing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexing
}

// DocumentCount returns the size of the resident collection.
func (s *Session) DocumentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Scope returns the partition the session indexes.
func (s *Session) Scope() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scope
}

// SetScope switches the session to scope, discarding the current collection
// and starting a new pass. Setting the current scope is a no-op.
func (s *Session) SetScope(scope string) {
	s.mu.Lock()
	if s.closed || scope == s.scope {
		s.mu.Unlock()
		return
	}
	s.scope = scope
	s.startPassLocked()
	s.mu.Unlock()
	s.notify(EventIndexing, EventResults)
}

// Reindex starts a new pass over the current scope.
func (s *Session) Reindex() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.startPassLocked()
	s.mu.Unlock()
	s.notify(EventIndexing, EventResults)
}

// Documents returns a snapshot of the resident collection.
func (s *Session) Documents() []search.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]search.Document{}, s.docs...)
}

// Query searches the resident collection without changing the session term.
func (s *Session) Query(term string) []search.Result {
	s.mu.RLock()
	docs, indexing, closed := s.docs, s.indexing, s.closed
	s.mu.RUnlock()

	if closed {
		return []search.Result{}
	}
	return query(docs, indexing, term)
}

// Wait blocks until no pass is in flight. A pass started while waiting is
// waited for as well.
func (s *Session) Wait(ctx context.Context) error {
	for {
		s.mu.RLock()
		done, closed := s.done, s.closed
		s.mu.RUnlock()

		if closed {
			return ErrClosed
		}

		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}

		s.mu.RLock()
		current, closed := s.done, s.closed
		s.mu.RUnlock()

		if closed {
			return ErrClosed
		}
		if current == done {
			return nil
		}
	}
}

// Subscribe registers fn for change notifications. Notifications are
// delivered synchronously from the goroutine that caused the change and must
// not call back into Subscribe. The returned function removes fn.
func (s *Session) Subscribe(fn func(Event)) func() {
	if fn == nil {
		return func() {}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Stats returns instrumentation about the session lifecycle.
func (s *Session) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		Scope:       s.scope,
		Documents:   len(s.docs),
		Passes:      s.generation,
		LastIndexed: s.lastIndexed,
	}
	if s.lastErr != nil {
		stats.LastError = s.lastErr.Error()
	}
	return stats
}

// Close cancels any pass in flight and releases the collection. Later calls
// are no-ops.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	s.docs = nil
	s.results = []search.Result{}
	s.indexing = false
	s.loading = false
	s.subs = nil
	return nil
}

func (s *Session) startPassLocked() {
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.generation++
	s.version++
	s.cancel = cancel
	s.done = make(chan struct{})
	s.indexing = true
	s.loading = false
	s.docs = nil
	s.results = []search.Result{}

	go s.run(ctx, s.generation, s.scope, s.done)
}

func (s *Session) run(ctx context.Context, generation uint64, scope string, done chan struct{}) {
	defer close(done)

	docs, err := s.index(ctx, scope)
	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	if s.closed || generation != s.generation {
		s.mu.Unlock()
		return
	}
	s.docs = docs
	s.indexing = false
	s.lastIndexed = s.now()
	s.lastErr = err
	s.version++
	s.results = query(s.docs, false, s.term)
	s.loading = false
	s.mu.Unlock()

	if err == nil {
		s.logger.Printf("search: indexed %d documents (scope %s)", len(docs), scopeLabel(scope))
	}
	s.notify(EventIndexed, EventResults)
}

// index runs one pass. A tree that cannot be loaded leaves the scope with an
// empty collection.
func (s *Session) index(ctx context.Context, scope string) ([]search.Document, error) {
	if s.source == nil || s.indexer == nil {
		err := errors.New("search session has no docs source")
		s.logger.Printf("search: %v", err)
		return []search.Document{}, err
	}

	tree, err := s.source.Load(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Printf("search: cannot load docs map for scope %s: %v", scopeLabel(scope), err)
		}
		return []search.Document{}, err
	}

	docs, err := s.indexer.Index(ctx, tree, scope)
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *Session) notify(events ...Event) {
	s.mu.RLock()
	subs := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.RUnlock()

	for _, ev := range events {
		for _, fn := range subs {
			fn(ev)
		}
	}
}

func query(docs []search.Document, indexing bool, term string) []search.Result {
	if indexing {
		return []search.Result{}
	}
	return search.Search(docs, term)
}

func scopeLabel(scope string) string {
	if scope == "" {
		return "all"
	}
	return scope
}
