package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

func execAll(tx *sql.Tx, queries []string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Catalog items",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS catalog_items (
					id TEXT PRIMARY KEY,
					display_name TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					category TEXT NOT NULL DEFAULT '',
					option_groups TEXT NOT NULL DEFAULT '[]',
					ingredients TEXT NOT NULL DEFAULT '[]',
					allergens TEXT NOT NULL DEFAULT '[]',
					popularity_rank INTEGER NOT NULL DEFAULT 0,
					embedding BLOB,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_catalog_items_name ON catalog_items(display_name)`,
			})
		},
	},
	{
		Version:     2,
		Description: "Finalized orders",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS orders (
					id TEXT PRIMARY KEY,
					guest_id TEXT NOT NULL,
					session_id TEXT NOT NULL DEFAULT '',
					created_at INTEGER NOT NULL,
					UNIQUE (guest_id, created_at)
				)`,
				`CREATE INDEX idx_orders_guest_created ON orders(guest_id, created_at DESC)`,

				`CREATE TABLE IF NOT EXISTS order_items (
					order_id TEXT NOT NULL REFERENCES orders(id),
					position INTEGER NOT NULL,
					catalog_item_id TEXT NOT NULL,
					display_name TEXT NOT NULL,
					quantity INTEGER NOT NULL CHECK (quantity > 0),
					selected_options TEXT NOT NULL DEFAULT '{}',
					match_confidence REAL NOT NULL DEFAULT 0,
					PRIMARY KEY (order_id, position)
				)`,
			})
		},
	},
	{
		Version:     3,
		Description: "Add menu price",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`ALTER TABLE catalog_items ADD COLUMN price REAL NOT NULL DEFAULT 0`,
			})
		},
	},
}

// Migrate brings the schema up to ExpectedSchemaVersion. Each migration runs in its
// own transaction together with the user_version bump, so a failure leaves the
// database at the last good version.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := s.apply(ctx, m); err != nil {
			return err
		}
		slog.Info("Applied migration",
			"version", m.Version,
			"description", m.Description)
	}

	final, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if final != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, final)
	}
	return nil
}

func (s *SQLiteStorage) apply(ctx context.Context, m Migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := m.Up(tx); err != nil {
		return fmt.Errorf("migration %d failed: %w", m.Version, err)
	}
	// PRAGMA does not take bind parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
		return fmt.Errorf("failed to record schema version %d: %w", m.Version, err)
	}
	return tx.Commit()
}

// SchemaVersion reports the database's current schema version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
