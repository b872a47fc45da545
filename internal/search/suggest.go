package search

import (
	"strings"

	"github.com/hyperjump/artcollector/internal/models"
)

// maxSuggestDistance bounds how far a typed filter may be from a list name
// and still be offered as a correction.
const maxSuggestDistance = 3

// FindReference reports whether value names an item in items exactly.
func FindReference(value string, items []models.ReferenceItem) bool {
	for _, it := range items {
		if it.Name == value {
			return true
		}
	}
	return false
}

// SuggestReference returns the item name closest to value, comparing without
// case. Ties keep list order. ok is false when nothing is within range.
func SuggestReference(value string, items []models.ReferenceItem) (name string, ok bool) {
	want := strings.ToLower(strings.TrimSpace(value))
	if want == "" {
		return "", false
	}
	best := maxSuggestDistance + 1
	for _, it := range items {
		d := editDistance(want, strings.ToLower(it.Name))
		if d < best {
			best, name = d, it.Name
		}
	}
	return name, best <= maxSuggestDistance
}

// editDistance is the optimal string alignment distance: insertions,
// deletions, substitutions and adjacent transpositions each cost one.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	// Three rolling rows: two back for transpositions.
	prev2 := make([]int, len(rb)+1)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				curr[j] = min(curr[j], prev2[j-2]+1)
			}
		}
		prev2, prev, curr = prev, curr, prev2
	}
	return prev[len(rb)]
}
