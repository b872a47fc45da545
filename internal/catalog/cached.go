package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/artcollector/internal/models"
	"github.com/hyperjump/artcollector/internal/search"
	"github.com/hyperjump/artcollector/internal/storage"
	"go.uber.org/zap"
)

// ReferenceStore is the part of storage.Storage the cache needs.
type ReferenceStore interface {
	SaveReferences(ctx context.Context, kind models.ReferenceKind, items []models.ReferenceItem) error
	LoadReferences(ctx context.Context, kind models.ReferenceKind) ([]models.ReferenceItem, error)
	ClearReferences(ctx context.Context) error
}

// CachedReferences serves reference lists from a store, falling back to the
// wrapped catalog on a miss. Queries always go to the wrapped catalog.
type CachedReferences struct {
	next   search.Catalog
	store  ReferenceStore
	logger *zap.Logger
}

// NewCachedReferences wraps next with store. A nil logger is replaced by a no-op.
func NewCachedReferences(next search.Catalog, store ReferenceStore, logger *zap.Logger) *CachedReferences {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedReferences{next: next, store: store, logger: logger}
}

// FetchAllCenturies returns the cached centuries, fetching them on a miss.
func (c *CachedReferences) FetchAllCenturies(ctx context.Context) ([]models.ReferenceItem, error) {
	return c.load(ctx, models.Centuries, c.next.FetchAllCenturies)
}

// FetchAllClassifications returns the cached classifications, fetching them on a miss.
func (c *CachedReferences) FetchAllClassifications(ctx context.Context) ([]models.ReferenceItem, error) {
	return c.load(ctx, models.Classifications, c.next.FetchAllClassifications)
}

// FetchQueryResults delegates to the wrapped catalog.
func (c *CachedReferences) FetchQueryResults(ctx context.Context, input models.QueryInput) ([]models.ResultRecord, error) {
	return c.next.FetchQueryResults(ctx, input)
}

// Refresh drops the cached lists and fetches both again.
func (c *CachedReferences) Refresh(ctx context.Context) error {
	if err := c.store.ClearReferences(ctx); err != nil {
		return fmt.Errorf("clear reference cache: %w", err)
	}
	if _, err := c.FetchAllCenturies(ctx); err != nil {
		return err
	}
	_, err := c.FetchAllClassifications(ctx)
	return err
}

func (c *CachedReferences) load(ctx context.Context, kind models.ReferenceKind, fetch func(context.Context) ([]models.ReferenceItem, error)) ([]models.ReferenceItem, error) {
	items, err := c.store.LoadReferences(ctx, kind)
	if err == nil {
		c.logger.Debug("reference list served from cache", zap.String("kind", string(kind)), zap.Int("items", len(items)))
		return items, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		c.logger.Warn("reference cache read failed", zap.String("kind", string(kind)), zap.Error(err))
	}

	items, err = fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.store.SaveReferences(ctx, kind, items); err != nil {
		c.logger.Warn("reference cache write failed", zap.String("kind", string(kind)), zap.Error(err))
	}
	return items, nil
}
