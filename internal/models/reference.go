// Package models defines the data structures shared by the catalog client, the
// search orchestrator and the UI: reference items, query input and result records.
package models

// ReferenceItem is one entry of a reference list (a century or a classification).
// Filters address items by Name, not by ID.
type ReferenceItem struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ReferenceKind names one of the two reference lists.
type ReferenceKind string

const (
	// Centuries is the century reference list.
	Centuries ReferenceKind = "century"
	// Classifications is the classification reference list.
	Classifications ReferenceKind = "classification"
)

// Names returns the display names of items in order.
func Names(items []ReferenceItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}
