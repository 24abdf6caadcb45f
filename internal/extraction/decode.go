package extraction

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Veraticus/tableside/internal/common"
	"github.com/Veraticus/tableside/internal/llm"
	"github.com/Veraticus/tableside/internal/model"
)

// Pointer fields distinguish a missing key from a zero value.
type orderItemsPayload struct {
	OrderItems *[]orderItemPayload `json:"order_items"`
}

type orderItemPayload struct {
	ItemName *string         `json:"item_name"`
	Quantity *int            `json:"quantity"`
	Options  json.RawMessage `json:"options"`
}

type changesPayload struct {
	Changes *[]changePayload `json:"changes"`
}

type changePayload struct {
	Action   *string         `json:"action"`
	Quantity *int            `json:"quantity"`
	Options  json.RawMessage `json:"options"`
	ItemName string          `json:"item_name"`
	FromItem string          `json:"from_item"`
	ToItem   string          `json:"to_item"`
}

func formatError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrExtractionFormat, fmt.Sprintf(format, args...))
}

func decodeOrderItems(content string) ([]model.ExtractedLineItem, error) {
	var payload orderItemsPayload
	if err := json.Unmarshal([]byte(llm.LocateJSON(content)), &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrExtractionFormat, err)
	}
	if payload.OrderItems == nil {
		return nil, formatError("missing order_items")
	}

	items := make([]model.ExtractedLineItem, 0, len(*payload.OrderItems))
	for i, raw := range *payload.OrderItems {
		if raw.ItemName == nil || strings.TrimSpace(*raw.ItemName) == "" {
			return nil, formatError("order_items[%d]: missing item_name", i)
		}
		quantity, err := quantityOrDefault(raw.Quantity)
		if err != nil {
			return nil, formatError("order_items[%d]: %v", i, err)
		}
		items = append(items, model.ExtractedLineItem{
			RawName:  *raw.ItemName,
			Quantity: quantity,
			Options:  stringOptions(raw.Options),
		})
	}
	return items, nil
}

func decodeChanges(content string) ([]model.ExtractedChange, error) {
	var payload changesPayload
	if err := json.Unmarshal([]byte(llm.LocateJSON(content)), &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrExtractionFormat, err)
	}
	if payload.Changes == nil {
		return nil, formatError("missing changes")
	}

	changes := make([]model.ExtractedChange, 0, len(*payload.Changes))
	for i, raw := range *payload.Changes {
		if raw.Action == nil {
			return nil, formatError("changes[%d]: missing action", i)
		}
		action, err := model.ParseChangeAction(*raw.Action)
		if err != nil {
			return nil, formatError("changes[%d]: %v", i, err)
		}
		quantity, err := quantityOrDefault(raw.Quantity)
		if err != nil {
			return nil, formatError("changes[%d]: %v", i, err)
		}

		change := model.ExtractedChange{
			Action:   action,
			ItemName: strings.TrimSpace(raw.ItemName),
			FromItem: strings.TrimSpace(raw.FromItem),
			ToItem:   strings.TrimSpace(raw.ToItem),
			Quantity: quantity,
			Options:  stringOptions(raw.Options),
		}

		switch action {
		case model.ActionAdd, model.ActionRemove:
			if change.ItemName == "" {
				return nil, formatError("changes[%d]: %s needs item_name", i, strings.ToLower(string(action)))
			}
		case model.ActionReplace:
			// Models often put the old item in item_name for an update.
			if change.FromItem == "" {
				change.FromItem = change.ItemName
			}
			if change.FromItem == "" || change.ToItem == "" {
				return nil, formatError("changes[%d]: replace needs from_item and to_item", i)
			}
		}
		changes = append(changes, change)
	}
	return changes, nil
}

func quantityOrDefault(q *int) (int, error) {
	if q == nil {
		return 1, nil
	}
	if *q < 1 {
		return 0, fmt.Errorf("quantity must be positive, got %d", *q)
	}
	return *q, nil
}

// stringOptions keeps only string-valued options. Options are advisory, so anything
// else the model sends is dropped rather than failing the reply.
func stringOptions(data json.RawMessage) map[string]string {
	var raw map[string]any
	if len(data) == 0 || json.Unmarshal(data, &raw) != nil || len(raw) == 0 {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			out[k] = s
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
