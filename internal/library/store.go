// Package library maintains the sidecar's index of materialized entries and
// notifies the host when a folder needs rescanning. The index is what makes
// duplicate detection by provider id possible without querying the host on
// every request.
package library

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"jfresolve/models"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// ErrNotFound is returned when no entry matches a lookup.
var ErrNotFound = errors.New("library item not found")

// Store is the sqlite-backed library index.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the index database at path and applies
// pending migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open library index: %w", err)
	}

	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, err
	}
	if err := goose.Up(db, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate library index: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Create inserts an item and its provider-id map in one transaction.
func (s *Store) Create(ctx context.Context, item models.LibraryItem) error {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO items (id, kind, name, path, virtual, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		item.ID, item.Kind.Slug(), item.Name, item.Path, boolInt(item.Virtual), item.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert item %s: %w", item.ID, err)
	}

	for provider, providerID := range item.ProviderIDs {
		if strings.TrimSpace(providerID) == "" {
			continue
		}
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO item_provider_ids (item_id, provider, provider_id) VALUES (?, ?, ?)`,
			item.ID, provider, providerID)
		if err != nil {
			return fmt.Errorf("insert provider id %s=%s: %w", provider, providerID, err)
		}
	}
	return tx.Commit()
}

// Get loads one item by identifier.
func (s *Store) Get(ctx context.Context, id string) (*models.LibraryItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, name, path, virtual, created_at FROM items WHERE id = ?`, id)
	return s.scanItem(ctx, row)
}

// FindByProviderIDs returns the first item that matches any of the given
// provider-id pairs, or ErrNotFound. This is the duplicate-detection query
// the orchestrator runs before materializing.
func (s *Store) FindByProviderIDs(ctx context.Context, providerIDs map[string]string) (*models.LibraryItem, error) {
	for provider, providerID := range providerIDs {
		if strings.TrimSpace(providerID) == "" {
			continue
		}
		row := s.db.QueryRowContext(ctx,
			`SELECT i.id, i.kind, i.name, i.path, i.virtual, i.created_at
			   FROM items i
			   JOIN item_provider_ids p ON p.item_id = i.id
			  WHERE p.provider = ? AND p.provider_id = ?
			  LIMIT 1`, provider, providerID)
		item, err := s.scanItem(ctx, row)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return item, nil
	}
	return nil, ErrNotFound
}

// Delete removes an item and, via cascade, its provider ids.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	return err
}

func (s *Store) scanItem(ctx context.Context, row *sql.Row) (*models.LibraryItem, error) {
	var (
		item     models.LibraryItem
		kindSlug string
		virtual  int
	)
	err := row.Scan(&item.ID, &kindSlug, &item.Name, &item.Path, &virtual, &item.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	kind, err := models.ParseMediaKind(kindSlug)
	if err != nil {
		return nil, err
	}
	item.Kind = kind
	item.Virtual = virtual != 0
	item.ProviderIDs = map[string]string{}

	rows, err := s.db.QueryContext(ctx,
		`SELECT provider, provider_id FROM item_provider_ids WHERE item_id = ?`, item.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var provider, providerID string
		if err := rows.Scan(&provider, &providerID); err != nil {
			return nil, err
		}
		item.ProviderIDs[provider] = providerID
	}
	return &item, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
