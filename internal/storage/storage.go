// Package storage persists reference lists between runs so the catalog does not
// refetch them on every start.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hyperjump/artcollector/internal/models"
)

// ErrNotFound is returned when a reference list has never been cached.
var ErrNotFound = errors.New("reference list not cached")

// ListInfo describes one cached reference list.
type ListInfo struct {
	Kind      models.ReferenceKind
	Items     int
	FetchedAt time.Time
}

// Storage defines reference-list persistence operations.
type Storage interface {
	// SaveReferences replaces the cached list for kind. An empty list is cached as empty.
	SaveReferences(ctx context.Context, kind models.ReferenceKind, items []models.ReferenceItem) error
	// LoadReferences returns the cached list in its original order, or ErrNotFound.
	LoadReferences(ctx context.Context, kind models.ReferenceKind) ([]models.ReferenceItem, error)
	// ClearReferences drops every cached list.
	ClearReferences(ctx context.Context) error
	// Lists describes the cached lists.
	Lists(ctx context.Context) ([]ListInfo, error)

	Close() error
}
