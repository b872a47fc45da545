package search

import (
	"testing"

	"github.com/hyperjump/artcollector/internal/models"
)

func TestEditDistance(t *testing.T) {
	tests := []struct {
		name     string
		a        string
		b        string
		expected int
	}{
		{"identical", "vessels", "vessels", 0},
		{"empty a", "", "coins", 5},
		{"empty b", "coins", "", 5},
		{"one substitution", "coins", "coens", 1},
		{"one insertion", "print", "prints", 1},
		{"one deletion", "prints", "print", 1},
		{"transposition", "scuplture", "sculpture", 1},
		{"kitten to sitting", "kitten", "sitting", 3},
		{"unicode", "café", "cafe", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := editDistance(tt.a, tt.b); got != tt.expected {
				t.Errorf("editDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.expected)
			}
			if got := editDistance(tt.b, tt.a); got != tt.expected {
				t.Errorf("editDistance is not symmetric for %q, %q", tt.a, tt.b)
			}
		})
	}
}

func TestSuggestReference(t *testing.T) {
	items := []models.ReferenceItem{
		{ID: 1, Name: "Sculpture"},
		{ID: 2, Name: "Prints"},
		{ID: 3, Name: "Paintings"},
	}
	tests := []struct {
		name   string
		value  string
		want   string
		wantOK bool
	}{
		{"case only", "sculpture", "Sculpture", true},
		{"typo", "Scuplture", "Sculpture", true},
		{"short typo", "print", "Prints", true},
		{"too far", "Furniture", "", false},
		{"blank", "  ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SuggestReference(tt.value, items)
			if ok != tt.wantOK {
				t.Fatalf("SuggestReference(%q) ok = %v, want %v", tt.value, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("SuggestReference(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}

	if _, ok := SuggestReference("anything", nil); ok {
		t.Error("empty list should not suggest")
	}
}

func TestFindReference(t *testing.T) {
	items := []models.ReferenceItem{{ID: 1, Name: "19th century"}}
	if !FindReference("19th century", items) {
		t.Error("exact name should be found")
	}
	if FindReference("19th Century", items) {
		t.Error("lookup is case sensitive")
	}
}
