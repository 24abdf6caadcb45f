// Package storage provides the SQLite persistence layer for the menu catalog and
// finalized orders.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/tableside/internal/model"
)

// Validation errors.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = errors.New("string parameter cannot be empty")
	ErrNilParameter    = errors.New("parameter cannot be nil")
	ErrEmptySlice      = errors.New("slice cannot be empty")
	ErrInvalidItem     = errors.New("invalid catalog item")
	ErrInvalidOrder    = errors.New("invalid order")
	ErrInvalidArgument = errors.New("invalid argument")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateCatalogItems validates a slice of catalog items.
func validateCatalogItems(items []model.CatalogItem) error {
	if items == nil {
		return fmt.Errorf("%w: items", ErrNilParameter)
	}
	if len(items) == 0 {
		return fmt.Errorf("%w: items", ErrEmptySlice)
	}

	seen := make(map[string]bool, len(items))
	for i := range items {
		if err := items[i].Validate(); err != nil {
			return fmt.Errorf("%w at index %d: %w", ErrInvalidItem, i, err)
		}
		if seen[items[i].ID] {
			return fmt.Errorf("%w at index %d: duplicate id %s", ErrInvalidItem, i, items[i].ID)
		}
		seen[items[i].ID] = true
	}
	return nil
}

// validateOrder validates a finalized order.
func validateOrder(order *model.FinalizedOrder) error {
	if order == nil {
		return fmt.Errorf("%w: order", ErrNilParameter)
	}
	if err := order.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOrder, err)
	}
	return nil
}
