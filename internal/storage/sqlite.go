package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/artcollector/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases from splitting per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS reference_lists (
		kind TEXT PRIMARY KEY,
		fetched_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reference_items (
		kind TEXT NOT NULL,
		position INTEGER NOT NULL,
		id INTEGER NOT NULL,
		name TEXT NOT NULL,
		PRIMARY KEY (kind, position)
	);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveReferences replaces the cached list for kind in one transaction.
func (s *SQLiteStorage) SaveReferences(ctx context.Context, kind models.ReferenceKind, items []models.ReferenceItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reference_items WHERE kind = ?`, string(kind)); err != nil {
		return fmt.Errorf("failed to clear %s items: %w", kind, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO reference_lists (kind, fetched_at) VALUES (?, ?)
		 ON CONFLICT(kind) DO UPDATE SET fetched_at = excluded.fetched_at`,
		string(kind), time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to record %s list: %w", kind, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO reference_items (kind, position, id, name) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()
	for i, it := range items {
		if _, err := stmt.ExecContext(ctx, string(kind), i, it.ID, it.Name); err != nil {
			return fmt.Errorf("failed to insert %s item %d: %w", kind, it.ID, err)
		}
	}
	return tx.Commit()
}

// LoadReferences returns the cached list for kind in saved order.
func (s *SQLiteStorage) LoadReferences(ctx context.Context, kind models.ReferenceKind) ([]models.ReferenceItem, error) {
	var fetchedAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT fetched_at FROM reference_lists WHERE kind = ?`, string(kind),
	).Scan(&fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, kind)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name FROM reference_items WHERE kind = ? ORDER BY position`, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]models.ReferenceItem, 0)
	for rows.Next() {
		var it models.ReferenceItem
		if err := rows.Scan(&it.ID, &it.Name); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ClearReferences drops every cached list.
func (s *SQLiteStorage) ClearReferences(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM reference_items`); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM reference_lists`)
	return err
}

// Lists describes the cached lists ordered by kind.
func (s *SQLiteStorage) Lists(ctx context.Context) ([]ListInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT l.kind, l.fetched_at, COUNT(i.id)
		 FROM reference_lists l LEFT JOIN reference_items i ON i.kind = l.kind
		 GROUP BY l.kind, l.fetched_at ORDER BY l.kind`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ListInfo
	for rows.Next() {
		var info ListInfo
		var kind string
		if err := rows.Scan(&kind, &info.FetchedAt, &info.Items); err != nil {
			return nil, err
		}
		info.Kind = models.ReferenceKind(kind)
		out = append(out, info)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
