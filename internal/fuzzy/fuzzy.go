// Package fuzzy resolves imprecise names against a candidate set using a
// Ratcliff/Obershelp similarity ratio.
package fuzzy

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	// DefaultThreshold is the minimum ratio for general name lookups
	DefaultThreshold = 0.6
	// MeetingThreshold is the looser minimum used for meeting titles
	MeetingThreshold = 0.5
	// MaxResults caps the number of suggestions returned
	MaxResults = 5
)

// Match is a candidate whose name scored at or above the threshold
type Match[T any] struct {
	Candidate T
	Name      string
	Score     float64
}

// Percent renders the score as a whole percentage, e.g. "85%"
func (m Match[T]) Percent() string {
	return fmt.Sprintf("%d%%", int(math.Round(m.Score*100)))
}

// Ratio returns the similarity of a and b in [0,1], compared case-insensitively
// character by character.
func Ratio(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" && b == "" {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	matcher := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return matcher.Ratio()
}

// FindSimilar scores every candidate's name against query and returns those at or
// above threshold, best first, capped at MaxResults. Equal scores keep input order,
// so the result is deterministic for a given candidate slice.
func FindSimilar[T any](query string, candidates []T, name func(T) string, threshold float64) []Match[T] {
	if strings.TrimSpace(query) == "" || len(candidates) == 0 || name == nil {
		return nil
	}

	matches := make([]Match[T], 0, len(candidates))
	for _, c := range candidates {
		n := name(c)
		score := Ratio(query, n)
		if score >= threshold {
			matches = append(matches, Match[T]{Candidate: c, Name: n, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > MaxResults {
		matches = matches[:MaxResults]
	}
	return matches
}

// Best returns the top match, if any
func Best[T any](query string, candidates []T, name func(T) string, threshold float64) (Match[T], bool) {
	matches := FindSimilar(query, candidates, name, threshold)
	if len(matches) == 0 {
		var zero Match[T]
		return zero, false
	}
	return matches[0], true
}

// Suggestions renders matches as "did you mean" lines with percentages
func Suggestions[T any](matches []Match[T]) []string {
	lines := make([]string, 0, len(matches))
	for _, m := range matches {
		lines = append(lines, fmt.Sprintf("- %q (%s match)", m.Name, m.Percent()))
	}
	return lines
}
