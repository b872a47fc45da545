// Package cli provides output writers for the artcollector commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hyperjump/artcollector/internal/models"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

// WriteResults writes result records to w in the given format.
func WriteResults(w io.Writer, records []models.ResultRecord, format OutputFormat) error {
	if format == OutputJSON {
		if records == nil {
			records = []models.ResultRecord{}
		}
		return writeJSON(w, records)
	}
	fmt.Fprintf(w, "\nFound %d results\n\n", len(records))
	for i, r := range records {
		writeOneRecord(w, i+1, r)
	}
	return nil
}

func writeOneRecord(w io.Writer, rank int, r models.ResultRecord) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "%d. %s\n", rank, Truncate(r.DisplayTitle(), 120))
	fmt.Fprintf(w, "ID: %d", r.ID)
	if r.ObjectNumber != "" {
		fmt.Fprintf(w, " | Object: %s", r.ObjectNumber)
	}
	fmt.Fprintln(w)
	if meta := joinNonEmpty(", ", r.Classification, r.Century, r.Culture, r.Dated); meta != "" {
		fmt.Fprintln(w, meta)
	}
	if r.URL != "" {
		fmt.Fprintln(w, r.URL)
	}
	if r.Description != "" {
		fmt.Fprintf(w, "\n%s\n", TruncateWords(r.Description, 40))
	}
	fmt.Fprintln(w)
}

// WriteReferences writes both reference lists with their counts.
func WriteReferences(w io.Writer, centuries, classifications []models.ReferenceItem, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string][]models.ReferenceItem{
			"centuries":       nonNil(centuries),
			"classifications": nonNil(classifications),
		})
	}
	writeReferenceList(w, "Classification", classifications)
	writeReferenceList(w, "Century", centuries)
	return nil
}

func writeReferenceList(w io.Writer, label string, items []models.ReferenceItem) {
	fmt.Fprintf(w, "%s (%d)\n", label, len(items))
	for _, it := range items {
		fmt.Fprintf(w, "  %6d  %s\n", it.ID, it.Name)
	}
	fmt.Fprintln(w)
}

// ListStatus is one reference list row of the status report.
type ListStatus struct {
	Kind      string    `json:"kind"`
	Items     int       `json:"items"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Status is the report printed by the status command.
type Status struct {
	Source         string       `json:"source"`
	BaseURL        string       `json:"base_url,omitempty"`
	CollectionPath string       `json:"collection_path,omitempty"`
	DatabasePath   string       `json:"database_path"`
	CachedLists    []ListStatus `json:"cached_lists"`
	DiskUsageBytes int64        `json:"disk_usage_bytes"`
}

// WriteStatus writes a status report.
func WriteStatus(w io.Writer, s Status, format OutputFormat) error {
	if format == OutputJSON {
		if s.CachedLists == nil {
			s.CachedLists = []ListStatus{}
		}
		return writeJSON(w, s)
	}
	fmt.Fprintf(w, "Source:     %s\n", s.Source)
	if s.BaseURL != "" {
		fmt.Fprintf(w, "API:        %s\n", s.BaseURL)
	}
	if s.CollectionPath != "" {
		fmt.Fprintf(w, "Collection: %s\n", s.CollectionPath)
	}
	fmt.Fprintf(w, "Database:   %s (%s)\n", s.DatabasePath, FormatBytes(s.DiskUsageBytes))
	if len(s.CachedLists) == 0 {
		fmt.Fprintln(w, "Cached:     none")
		return nil
	}
	for _, l := range s.CachedLists {
		fmt.Fprintf(w, "Cached:     %s, %d items, fetched %s\n", l.Kind, l.Items, l.FetchedAt.Local().Format(time.RFC3339))
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func nonNil(items []models.ReferenceItem) []models.ReferenceItem {
	if items == nil {
		return []models.ReferenceItem{}
	}
	return items
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
