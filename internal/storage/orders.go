package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Veraticus/tableside/internal/common"
	"github.com/Veraticus/tableside/internal/model"
)

// SaveOrder appends a finalized order. Orders are never updated; writing a second
// order for the same guest and timestamp, or reusing an id, fails with
// common.ErrDuplicateEntry.
func (s *SQLiteStorage) SaveOrder(ctx context.Context, order *model.FinalizedOrder) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateOrder(order); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, guest_id, session_id, created_at)
		VALUES (?, ?, ?, ?)
	`, order.ID, order.GuestID, order.SessionID, order.CreatedAt.UTC().UnixNano())
	if isConstraintViolation(err) {
		return fmt.Errorf("order %s for guest %s: %w", order.ID, order.GuestID, common.ErrDuplicateEntry)
	}
	if err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}

	for i, item := range order.Items {
		options, err := json.Marshal(item.SelectedOptions)
		if err != nil {
			return fmt.Errorf("failed to encode options: %w", err)
		}
		if item.SelectedOptions == nil {
			options = []byte("{}")
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (
				order_id, position, catalog_item_id, display_name,
				quantity, selected_options, match_confidence
			) VALUES (?, ?, ?, ?, ?, ?, ?)
		`, order.ID, i, item.CatalogItemID, item.DisplayName, item.Quantity, string(options), item.MatchConfidence)
		if err != nil {
			return fmt.Errorf("failed to save order item %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// LastOrderFor returns the guest's most recent order, or nil when they have none.
func (s *SQLiteStorage) LastOrderFor(ctx context.Context, guestID string) (*model.FinalizedOrder, error) {
	orders, err := s.ListOrdersFor(ctx, guestID, 1)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}
	return &orders[0], nil
}

// ListOrdersFor returns up to limit orders for a guest, newest first.
// A non-positive limit returns all of them.
func (s *SQLiteStorage) ListOrdersFor(ctx context.Context, guestID string, limit int) ([]model.FinalizedOrder, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(guestID, "guestID"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guest_id, session_id, created_at
		FROM orders
		WHERE guest_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, guestID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	var orders []model.FinalizedOrder
	for rows.Next() {
		var (
			order     model.FinalizedOrder
			createdAt int64
		)
		if err := rows.Scan(&order.ID, &order.GuestID, &order.SessionID, &createdAt); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		order.CreatedAt = time.Unix(0, createdAt).UTC()
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}
	_ = rows.Close()

	// Items are loaded after the order cursor is closed; the pool holds one connection.
	for i := range orders {
		items, err := s.orderItems(ctx, s.db, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}

	return orders, nil
}

func (s *SQLiteStorage) orderItems(ctx context.Context, q queryable, orderID string) ([]model.ResolvedLineItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT catalog_item_id, display_name, quantity, selected_options, match_confidence
		FROM order_items
		WHERE order_id = ?
		ORDER BY position
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []model.ResolvedLineItem
	for rows.Next() {
		var (
			item    model.ResolvedLineItem
			options string
		)
		if err := rows.Scan(&item.CatalogItemID, &item.DisplayName, &item.Quantity, &options, &item.MatchConfidence); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		if err := json.Unmarshal([]byte(options), &item.SelectedOptions); err != nil {
			return nil, fmt.Errorf("%w: options of order %s: %w", common.ErrDatabaseCorrupted, orderID, err)
		}
		if len(item.SelectedOptions) == 0 {
			item.SelectedOptions = nil
		}
		items = append(items, item)
	}

	return items, rows.Err()
}
