package main

import (
	"context"
	"fmt"

	"github.com/hyperjump/artcollector/internal/catalog"
	"github.com/hyperjump/artcollector/internal/config"
	"github.com/hyperjump/artcollector/internal/search"
	"github.com/hyperjump/artcollector/internal/storage"
	"github.com/hyperjump/artcollector/internal/watcher"
	"github.com/hyperjump/artcollector/pkg/utils"
	"go.uber.org/zap"
)

// Components holds the catalog stack chosen by the config.
type Components struct {
	Catalog search.Catalog
	// References is set when remote reference lists are cached on disk.
	References *catalog.CachedReferences
	// Local is set for the offline catalog.
	Local   *catalog.LocalCatalog
	Storage storage.Storage
	Watch   *watcher.Watcher
}

// Close releases every component.
func (c *Components) Close() {
	if c.Watch != nil {
		c.Watch.Stop()
	}
	if c.Local != nil {
		_ = c.Local.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	switch cfg.Catalog.Source {
	case config.SourceLocal:
		local := catalog.NewLocalCatalog(cfg.Catalog.IndexPath,
			catalog.WithLocalLogger(utils.Named(logger, "catalog")),
			catalog.WithLocalPageSize(cfg.API.PageSize),
		)
		if err := local.Load(ctx, cfg.Catalog.CollectionPath); err != nil {
			_ = local.Close()
			return nil, err
		}
		return &Components{Catalog: local, Local: local}, nil

	default:
		client, err := catalog.NewHTTPClientFromConfig(&cfg.API, utils.Named(logger, "api"))
		if err != nil {
			return nil, err
		}
		if !cfg.Storage.DiskCacheOrDefault() {
			return &Components{Catalog: client}, nil
		}
		store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("open reference cache: %w", err)
		}
		refs := catalog.NewCachedReferences(client, store, utils.Named(logger, "cache"))
		return &Components{Catalog: refs, References: refs, Storage: store}, nil
	}
}

// startWatch reloads the local collection whenever its file changes.
// It is a no-op for the remote source or when watching is disabled.
func (c *Components) startWatch(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if c.Local == nil || !cfg.Catalog.WatchOrDefault() {
		return nil
	}
	local := c.Local
	c.Watch = watcher.NewWatcher(cfg.Catalog.CollectionPath, func(path string) {
		if err := local.Load(ctx, path); err != nil {
			logger.Warn("collection reload failed", zap.String("path", path), zap.Error(err))
		}
	}, watcher.WithLogger(utils.Named(logger, "watcher")))
	return c.Watch.Start(ctx)
}
