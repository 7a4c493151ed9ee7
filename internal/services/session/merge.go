package session

import (
	"sort"

	"github.com/Paintersrp/portal/internal/search"
)

// Snapshot is the answer to one query over one or more sessions.
type Snapshot struct {
	Term          string          `json:"term"`
	Scope         string          `json:"scope"`
	Indexing      bool            `json:"indexing"`
	DocumentCount int             `json:"documentCount"`
	Results       []search.Result `json:"results"`
}

// Snapshot answers term against the session without changing its term. Every
// field comes from the same collection.
func (s *Session) Snapshot(term string) Snapshot {
	s.mu.RLock()
	scope, docs, indexing, closed := s.scope, s.docs, s.indexing, s.closed
	s.mu.RUnlock()

	snap := Snapshot{
		Term:          term,
		Scope:         scope,
		Indexing:      indexing,
		DocumentCount: len(docs),
		Results:       []search.Result{},
	}
	if !closed {
		snap.Results = query(docs, indexing, term)
	}
	return snap
}

// QueryAll answers term over several scope sessions as one collection.
// Sessions are visited in the given order and ties keep that order, so the
// outcome matches a single session over the same scopes. Any session still
// indexing gates the whole answer.
func QueryAll(term string, sessions ...*Session) Snapshot {
	snap := Snapshot{Term: term, Results: []search.Result{}}
	for _, s := range sessions {
		if s == nil {
			continue
		}
		one := s.Snapshot(term)
		snap.Indexing = snap.Indexing || one.Indexing
		snap.DocumentCount += one.DocumentCount
		snap.Results = append(snap.Results, one.Results...)
	}
	if snap.Indexing {
		snap.Results = []search.Result{}
		return snap
	}
	sort.SliceStable(snap.Results, func(i, j int) bool {
		return snap.Results[i].Score > snap.Results[j].Score
	})
	return snap
}
