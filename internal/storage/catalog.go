package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/Veraticus/tableside/internal/common"
	"github.com/Veraticus/tableside/internal/model"
)

const catalogColumns = `id, display_name, description, category, option_groups,
	ingredients, allergens, popularity_rank, price, embedding`

// GetCatalogItem retrieves one menu item by id.
func (s *SQLiteStorage) GetCatalogItem(ctx context.Context, id string) (*model.CatalogItem, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+catalogColumns+` FROM catalog_items WHERE id = ?`, id)
	item, err := scanCatalogItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("catalog item %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog item: %w", err)
	}

	return item, nil
}

// ListCatalogItems returns every menu item ordered by display name.
func (s *SQLiteStorage) ListCatalogItems(ctx context.Context) ([]model.CatalogItem, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+catalogColumns+` FROM catalog_items ORDER BY display_name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []model.CatalogItem
	for rows.Next() {
		item, err := scanCatalogItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan catalog item: %w", err)
		}
		items = append(items, *item)
	}

	return items, rows.Err()
}

// SaveCatalogItems upserts menu items in one transaction. An item saved without a
// vector keeps its stored vector as long as its name and description are unchanged;
// otherwise the stale vector is dropped so the next embed run recomputes it.
func (s *SQLiteStorage) SaveCatalogItems(ctx context.Context, items []model.CatalogItem) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCatalogItems(items); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range items {
		if err := saveCatalogItemTx(ctx, tx, &items[i]); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func saveCatalogItemTx(ctx context.Context, q queryable, item *model.CatalogItem) error {
	optionGroups, err := json.Marshal(nonNil(item.OptionGroups))
	if err != nil {
		return fmt.Errorf("failed to encode option groups: %w", err)
	}
	ingredients, err := json.Marshal(nonNil(item.Ingredients))
	if err != nil {
		return fmt.Errorf("failed to encode ingredients: %w", err)
	}
	allergens, err := json.Marshal(nonNil(item.Allergens))
	if err != nil {
		return fmt.Errorf("failed to encode allergens: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO catalog_items (
			id, display_name, description, category, option_groups,
			ingredients, allergens, popularity_rank, price, embedding, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			embedding = CASE
				WHEN excluded.embedding IS NOT NULL THEN excluded.embedding
				WHEN catalog_items.display_name = excluded.display_name
					AND catalog_items.description = excluded.description THEN catalog_items.embedding
				ELSE NULL
			END,
			display_name = excluded.display_name,
			description = excluded.description,
			category = excluded.category,
			option_groups = excluded.option_groups,
			ingredients = excluded.ingredients,
			allergens = excluded.allergens,
			popularity_rank = excluded.popularity_rank,
			price = excluded.price,
			updated_at = CURRENT_TIMESTAMP
	`,
		item.ID,
		item.DisplayName,
		item.Description,
		item.Category,
		string(optionGroups),
		string(ingredients),
		string(allergens),
		item.PopularityRank,
		item.Price,
		encodeVector(item.Embedding),
	)
	if err != nil {
		return fmt.Errorf("failed to save catalog item %s: %w", item.ID, err)
	}

	return nil
}

// UpdateItemEmbedding stores a freshly computed vector for one item.
func (s *SQLiteStorage) UpdateItemEmbedding(ctx context.Context, id string, embedding []float32) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	if len(embedding) == 0 {
		return fmt.Errorf("%w: embedding", ErrEmptySlice)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE catalog_items SET embedding = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, encodeVector(embedding), id)
	if err != nil {
		return fmt.Errorf("failed to update embedding: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("catalog item %s: %w", id, common.ErrNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCatalogItem(row rowScanner) (*model.CatalogItem, error) {
	var (
		item                                 model.CatalogItem
		optionGroups, ingredients, allergens string
		embedding                            []byte
	)

	if err := row.Scan(
		&item.ID,
		&item.DisplayName,
		&item.Description,
		&item.Category,
		&optionGroups,
		&ingredients,
		&allergens,
		&item.PopularityRank,
		&item.Price,
		&embedding,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(optionGroups), &item.OptionGroups); err != nil {
		return nil, fmt.Errorf("%w: option groups of %s: %w", common.ErrDatabaseCorrupted, item.ID, err)
	}
	if err := json.Unmarshal([]byte(ingredients), &item.Ingredients); err != nil {
		return nil, fmt.Errorf("%w: ingredients of %s: %w", common.ErrDatabaseCorrupted, item.ID, err)
	}
	if err := json.Unmarshal([]byte(allergens), &item.Allergens); err != nil {
		return nil, fmt.Errorf("%w: allergens of %s: %w", common.ErrDatabaseCorrupted, item.ID, err)
	}

	vector, err := decodeVector(embedding)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding of %s: %w", common.ErrDatabaseCorrupted, item.ID, err)
	}
	item.Embedding = vector

	if len(item.OptionGroups) == 0 {
		item.OptionGroups = nil
	}
	if len(item.Ingredients) == 0 {
		item.Ingredients = nil
	}
	if len(item.Allergens) == 0 {
		item.Allergens = nil
	}

	return &item, nil
}

// encodeVector packs a vector as little-endian float32s. A nil vector is stored as NULL.
func encodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf) == 0 {
		return nil, nil
	}
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(buf))
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
