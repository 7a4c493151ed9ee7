package search

import (
	"log"

	"github.com/Paintersrp/portal/internal/frontmatter"
)

// Scoring weights. A content occurrence scores ContentWeight and at most
// MaxContentMatches occurrences are collected per document.
const (
	TitleWeight       = 10
	DescriptionWeight = 5
	TagWeight         = 3
	ContentWeight     = 1
	MaxContentMatches = 3
	ContextRadius     = 50
)

// DefaultConcurrency bounds the fetches an indexing pass keeps in flight.
const DefaultConcurrency = 8

// Config describes indexer behavior.
type Config struct {
	// Concurrency bounds how many pages are fetched at once. Values below one
	// fall back to DefaultConcurrency.
	Concurrency int
	// ScopeOrder lists the scopes concatenated, in order, when a pass covers
	// every scope. Scopes not listed follow in name order.
	ScopeOrder []string
	// Logger receives per-page fetch failures. Nil discards them.
	Logger *log.Logger
}

// Document is the searchable form of one page, built during an indexing pass
// and never modified afterwards.
type Document struct {
	Path        string               `json:"path"`
	Title       string               `json:"title"`
	Section     string               `json:"section"`
	Content     string               `json:"content"`
	Description string               `json:"description,omitempty"`
	Tags        []string             `json:"tags,omitempty"`
	Metadata    frontmatter.Metadata `json:"-"`
}

// ContentMatch is one occurrence of the term in a document body. Position and
// the bounds of Context are measured in characters.
type ContentMatch struct {
	Text     string `json:"text"`
	Context  string `json:"context"`
	Position int    `json:"position"`
}

// Result captures a document match.
type Result struct {
	Title          string         `json:"title"`
	Path           string         `json:"path"`
	Section        string         `json:"section"`
	Description    string         `json:"description,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
	ContentMatches []ContentMatch `json:"contentMatches"`
	Score          int            `json:"score"`
}
