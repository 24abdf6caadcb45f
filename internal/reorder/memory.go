// Package reorder looks up a returning guest's previous order.
package reorder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/tableside/internal/model"
	"github.com/Veraticus/tableside/internal/service"
)

// Memory is a read-only view of finalized orders keyed by guest.
type Memory struct {
	orders service.OrderStore
	logger *slog.Logger
}

// NewMemory wraps an order store.
func NewMemory(orders service.OrderStore, logger *slog.Logger) *Memory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Memory{orders: orders, logger: logger}
}

// LastOrderFor returns the guest's most recent order. A guest with no orders, or no
// guest id at all, gets nil and no error.
func (m *Memory) LastOrderFor(ctx context.Context, guestID string) (*model.FinalizedOrder, error) {
	if strings.TrimSpace(guestID) == "" {
		return nil, nil
	}

	order, err := m.orders.LastOrderFor(ctx, guestID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up last order for guest %s: %w", guestID, err)
	}
	if order == nil || len(order.Items) == 0 {
		return nil, nil
	}

	m.logger.Debug("found previous order", "guest_id", guestID, "order_id", order.ID)
	return order, nil
}
