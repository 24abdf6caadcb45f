// Package testutil provides shared fixtures for tableside tests: an isolated SQLite
// database, a small sushi-bar menu with hand-placed vectors, and scripted provider
// fakes.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/tableside/internal/model"
	"github.com/Veraticus/tableside/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage *storage.SQLiteStorage
	Menu    []model.CatalogItem
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database seeded with items.
// It automatically handles migrations and cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t, testutil.Menu())
func SetupTestDB(t *testing.T, items []model.CatalogItem) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	if len(items) > 0 {
		if err := store.SaveCatalogItems(ctx, items); err != nil {
			_ = store.Close()
			t.Fatalf("failed to seed catalog: %v", err)
		}
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{
		Storage: store,
		Menu:    items,
		t:       t,
	}
}

// MustSaveOrder persists an order or fails the test.
func (db *TestDB) MustSaveOrder(order *model.FinalizedOrder) {
	db.t.Helper()
	if err := db.Storage.SaveOrder(context.Background(), order); err != nil {
		db.t.Fatalf("failed to save order %s: %v", order.ID, err)
	}
}
