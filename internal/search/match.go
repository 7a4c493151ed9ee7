package search

import (
	"sort"
	"strings"
	"unicode"
)

// Search scores every document against term and returns the matches, best
// first. Matching is a case-insensitive substring test with no tokenization.
// Documents with equal scores keep their collection order. The input is never
// modified.
func Search(docs []Document, term string) []Result {
	if strings.TrimSpace(term) == "" || len(docs) == 0 {
		return []Result{}
	}

	needle := lowerRunes(term)
	results := make([]Result, 0)
	for _, doc := range docs {
		res, ok := score(doc, needle)
		if ok {
			results = append(results, res)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

func score(doc Document, needle []rune) (Result, bool) {
	total := 0
	if containsRunes(lowerRunes(doc.Title), needle) {
		total += TitleWeight
	}
	if doc.Description != "" && containsRunes(lowerRunes(doc.Description), needle) {
		total += DescriptionWeight
	}
	for _, tag := range doc.Tags {
		if containsRunes(lowerRunes(tag), needle) {
			total += TagWeight
			break
		}
	}

	matches := findContentMatches(doc.Content, needle)
	total += len(matches) * ContentWeight
	if total == 0 {
		return Result{}, false
	}

	return Result{
		Title:          doc.Title,
		Path:           doc.Path,
		Section:        doc.Section,
		Description:    doc.Description,
		Tags:           append([]string(nil), doc.Tags...),
		ContentMatches: matches,
		Score:          total,
	}, true
}

// findContentMatches returns the first MaxContentMatches occurrences of needle
// in content. Occurrences may overlap.
func findContentMatches(content string, needle []rune) []ContentMatch {
	matches := make([]ContentMatch, 0)
	if len(needle) == 0 || content == "" {
		return matches
	}

	runes := []rune(content)
	lowered := lowerSlice(runes)
	for from := 0; len(matches) < MaxContentMatches; {
		at := indexRunes(lowered, needle, from)
		if at == -1 {
			break
		}

		end := at + len(needle)
		start := max(0, at-ContextRadius)
		stop := min(len(runes), end+ContextRadius)
		matches = append(matches, ContentMatch{
			Text:     string(runes[at:end]),
			Context:  string(runes[start:stop]),
			Position: at,
		})
		from = at + 1
	}
	return matches
}

// Highlight wraps every case-insensitive occurrence of term in text with wrap.
// Occurrences are found left to right without overlap.
func Highlight(text, term string, wrap func(string) string) string {
	needle := lowerRunes(term)
	if len(needle) == 0 || text == "" || wrap == nil {
		return text
	}

	runes := []rune(text)
	lowered := lowerSlice(runes)

	var b strings.Builder
	last := 0
	for {
		at := indexRunes(lowered, needle, last)
		if at == -1 {
			break
		}
		b.WriteString(string(runes[last:at]))
		b.WriteString(wrap(string(runes[at : at+len(needle)])))
		last = at + len(needle)
	}
	b.WriteString(string(runes[last:]))
	return b.String()
}

func lowerRunes(s string) []rune {
	return lowerSlice([]rune(s))
}

// lowerSlice folds case one rune at a time so rune offsets line up with the
// original text.
func lowerSlice(runes []rune) []rune {
	out := make([]rune, len(runes))
	for i, r := range runes {
		out[i] = unicode.ToLower(r)
	}
	return out
}

func containsRunes(haystack, needle []rune) bool {
	return indexRunes(haystack, needle, 0) >= 0
}

func indexRunes(haystack, needle []rune, from int) int {
	if len(needle) == 0 {
		return -1
	}
	for i := from; i+len(needle) <= len(haystack); i++ {
		if haystack[i] != needle[0] {
			continue
		}
		match := true
		for j := 1; j < len(needle); j++ {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
