// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/tableside/internal/model"
)

// CatalogStore is the read/write contract for menu items and their vectors.
type CatalogStore interface {
	GetCatalogItem(ctx context.Context, id string) (*model.CatalogItem, error)
	ListCatalogItems(ctx context.Context) ([]model.CatalogItem, error)
	SaveCatalogItems(ctx context.Context, items []model.CatalogItem) error
	UpdateItemEmbedding(ctx context.Context, id string, embedding []float32) error
}

// OrderStore persists finalized orders. Orders are append-only.
type OrderStore interface {
	// SaveOrder writes an order once; a second write for the same guest and
	// timestamp fails with common.ErrDuplicateEntry.
	SaveOrder(ctx context.Context, order *model.FinalizedOrder) error
	// LastOrderFor returns the newest order for a guest, or nil when there is none.
	LastOrderFor(ctx context.Context, guestID string) (*model.FinalizedOrder, error)
	ListOrdersFor(ctx context.Context, guestID string, limit int) ([]model.FinalizedOrder, error)
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	CatalogStore
	OrderStore

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
