// Package search turns a song name into a single video URL: it asks a
// Searcher for candidates, drops the ones that look like trailers or fall
// outside the duration window, and ranks the rest by views.
package search

import (
	"context"
	"sort"
	"strings"
)

// Candidate is one search hit. It lives only until a selection is made.
type Candidate struct {
	Title           string `json:"title"`
	URL             string `json:"url"`
	Channel         string `json:"channel"`
	ViewCount       int64  `json:"view_count"`
	DurationSeconds int    `json:"duration_seconds"`
}

// Searcher is the narrow capability the ranker needs from the downloader
// tool. Tests supply a fake.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Candidate, error)
}

// Policy bounds which candidates survive filtering. A MaxSeconds of zero
// disables the upper bound.
type Policy struct {
	Limit      int
	MinSeconds int
	MaxSeconds int
	Denylist   []string
	Allowlist  []string
}

// Accept applies the duration bounds first, then the keyword rule: a
// denylisted word rejects the title unless an allow phrase is also present.
func (p Policy) Accept(c Candidate) bool {
	if c.DurationSeconds < p.MinSeconds {
		return false
	}
	if p.MaxSeconds > 0 && c.DurationSeconds > p.MaxSeconds {
		return false
	}

	title := strings.ToLower(c.Title)
	if !containsAny(title, p.Denylist) {
		return true
	}
	return containsAny(title, p.Allowlist)
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		needle = strings.ToLower(strings.TrimSpace(needle))
		if needle != "" && strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}

// Filter keeps the candidates p accepts, in their original order.
func Filter(candidates []Candidate, p Policy) []Candidate {
	kept := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if p.Accept(c) {
			kept = append(kept, c)
		}
	}
	return kept
}

// Rank sorts by view count, highest first. Ties keep search order.
func Rank(candidates []Candidate) []Candidate {
	ranked := append([]Candidate(nil), candidates...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ViewCount > ranked[j].ViewCount
	})
	return ranked
}

// AugmentQuery biases a query toward complete uploads.
func AugmentQuery(query string) string {
	query = strings.TrimSpace(query)
	lower := strings.ToLower(query)
	if strings.Contains(query, "完整") || strings.Contains(lower, "full") {
		return query + " full song"
	}
	return query + " 完整版 full song"
}
