// Package catalog resolves spoken item names to menu entries. It keeps an immutable
// snapshot of the catalog and its vectors, swapped atomically on refresh, and
// compares query embeddings against it with cosine similarity.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Veraticus/tableside/internal/common"
	"github.com/Veraticus/tableside/internal/llm"
	"github.com/Veraticus/tableside/internal/model"
	"github.com/Veraticus/tableside/internal/service"
)

// Default matching policy.
const (
	DefaultHighThreshold = 0.85
	DefaultLowThreshold  = 0.60
	DefaultTieEpsilon    = 1e-4
)

// Config holds the matching policy.
type Config struct {
	HighThreshold   float64
	LowThreshold    float64
	TieEpsilon      float64
	RefreshInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.HighThreshold <= 0 {
		c.HighThreshold = DefaultHighThreshold
	}
	if c.LowThreshold <= 0 {
		c.LowThreshold = DefaultLowThreshold
	}
	if c.TieEpsilon < 0 {
		c.TieEpsilon = 0
	}
	return c
}

// snapshot is one immutable view of the catalog.
type snapshot struct {
	loadedAt time.Time
	byID     map[string]int
	byName   map[string]int
	items    []model.CatalogItem
}

func newSnapshot(items []model.CatalogItem, now time.Time) *snapshot {
	s := &snapshot{
		loadedAt: now,
		items:    items,
		byID:     make(map[string]int, len(items)),
		byName:   make(map[string]int, len(items)),
	}
	for i, item := range items {
		s.byID[item.ID] = i
		key := lookupKey(item.DisplayName)
		if _, taken := s.byName[key]; !taken {
			s.byName[key] = i
		}
	}
	return s
}

// Matcher maps free-text item names onto catalog entries.
type Matcher struct {
	store    service.CatalogStore
	embedder llm.Embedder
	logger   *slog.Logger
	current  atomic.Pointer[snapshot]
	loads    singleflight.Group
	cfg      Config
}

// NewMatcher creates a matcher. The catalog is read lazily on first use.
func NewMatcher(store service.CatalogStore, embedder llm.Embedder, cfg Config, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{
		store:    store,
		embedder: embedder,
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}
}

// Config returns the effective matching policy.
func (m *Matcher) Config() Config {
	return m.cfg
}

// Refresh reads the catalog from the store and swaps it in. Matches already running
// keep the snapshot they started with. On error the previous snapshot stays.
func (m *Matcher) Refresh(ctx context.Context) error {
	_, err, _ := m.loads.Do("catalog", func() (any, error) {
		items, err := m.store.ListCatalogItems(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}

		withVectors := 0
		for _, item := range items {
			if item.HasEmbedding() {
				withVectors++
			}
		}

		m.current.Store(newSnapshot(items, time.Now()))
		m.logger.Info("catalog snapshot loaded",
			"items", len(items),
			"with_vectors", withVectors)
		return nil, nil
	})
	return err
}

// Start refreshes the snapshot every RefreshInterval until ctx is done. It does
// nothing when the interval is not positive.
func (m *Matcher) Start(ctx context.Context) {
	if m.cfg.RefreshInterval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(m.cfg.RefreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.Refresh(ctx); err != nil {
					m.logger.Warn("catalog refresh failed, keeping previous snapshot", "error", err)
				}
			}
		}
	}()
}

func (m *Matcher) snapshot(ctx context.Context) (*snapshot, error) {
	if s := m.current.Load(); s != nil {
		return s, nil
	}
	if err := m.Refresh(ctx); err != nil {
		return nil, err
	}
	return m.current.Load(), nil
}

// Items returns every catalog item in the current snapshot.
func (m *Matcher) Items(ctx context.Context) ([]model.CatalogItem, error) {
	s, err := m.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return append([]model.CatalogItem(nil), s.items...), nil
}

// Item returns the catalog entry with id.
func (m *Matcher) Item(ctx context.Context, id string) (model.CatalogItem, error) {
	s, err := m.snapshot(ctx)
	if err != nil {
		return model.CatalogItem{}, err
	}
	i, ok := s.byID[id]
	if !ok {
		return model.CatalogItem{}, fmt.Errorf("catalog item %q: %w", id, common.ErrNotFound)
	}
	return s.items[i], nil
}

// Match resolves name against the whole catalog. Names equal to a display name match
// with confidence 1 without an embedding call. Otherwise the most similar item wins,
// and a best similarity under the low threshold fails with common.ErrNoMatchFound.
// Results under the high threshold are still returned; callers use
// MatchResult.NeedsClarification to decide whether to check with the guest.
func (m *Matcher) Match(ctx context.Context, name string) (model.MatchResult, error) {
	s, err := m.snapshot(ctx)
	if err != nil {
		return model.MatchResult{}, err
	}
	return m.match(ctx, s, name, nil)
}

// MatchAmong resolves name against the given catalog ids only, e.g. the items already
// in an order.
func (m *Matcher) MatchAmong(ctx context.Context, name string, ids []string) (model.MatchResult, error) {
	s, err := m.snapshot(ctx)
	if err != nil {
		return model.MatchResult{}, err
	}

	allowed := make(map[string]bool, len(ids))
	for _, id := range ids {
		allowed[id] = true
	}
	return m.match(ctx, s, name, allowed)
}

// Nearest returns the k items most similar to text, best first.
func (m *Matcher) Nearest(ctx context.Context, text string, k int) (model.MatchCandidates, error) {
	s, err := m.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	query, err := m.embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return m.score(s, query, nil).TopN(k), nil
}

func (m *Matcher) match(ctx context.Context, s *snapshot, name string, allowed map[string]bool) (model.MatchResult, error) {
	key := lookupKey(name)
	if key == "" {
		return model.MatchResult{}, &common.MatchError{Err: common.ErrNoMatchFound, Query: name}
	}

	if i, ok := s.byName[key]; ok && (allowed == nil || allowed[s.items[i].ID]) {
		item := s.items[i]
		m.logger.Debug("exact catalog match", "query", name, "item", item.ID)
		return model.MatchResult{
			CatalogItemID: item.ID,
			DisplayName:   item.DisplayName,
			Confidence:    1,
			Exact:         true,
		}, nil
	}

	query, err := m.embed(ctx, name)
	if err != nil {
		return model.MatchResult{}, err
	}

	candidates := m.score(s, query, allowed)
	if len(candidates) == 0 {
		return model.MatchResult{}, &common.MatchError{Err: common.ErrNoMatchFound, Query: name}
	}

	// Only candidates at or above the floor take part in tie-breaking.
	best, ok := candidates.AboveThreshold(m.cfg.LowThreshold).Best(m.cfg.TieEpsilon)
	if !ok {
		best = candidates.TopN(1)[0]
		m.logger.Debug("best catalog candidate below threshold",
			"query", name,
			"candidate", best.Item.ID,
			"similarity", best.Similarity)
		return model.MatchResult{}, &common.MatchError{
			Err:        common.ErrNoMatchFound,
			Query:      name,
			Candidate:  best.Item.DisplayName,
			Similarity: best.Similarity,
		}
	}

	m.logger.Debug("catalog match",
		"query", name,
		"item", best.Item.ID,
		"similarity", best.Similarity)

	return model.MatchResult{
		CatalogItemID: best.Item.ID,
		DisplayName:   best.Item.DisplayName,
		Confidence:    best.Similarity,
	}, nil
}

func (m *Matcher) score(s *snapshot, query []float32, allowed map[string]bool) model.MatchCandidates {
	candidates := make(model.MatchCandidates, 0, len(s.items))
	for _, item := range s.items {
		if allowed != nil && !allowed[item.ID] {
			continue
		}
		if len(item.Embedding) != len(query) {
			continue
		}
		candidates = append(candidates, model.MatchCandidate{
			Item:       item,
			Similarity: Cosine(query, item.Embedding),
		})
	}
	return candidates
}

func (m *Matcher) embed(ctx context.Context, text string) ([]float32, error) {
	vector, err := m.embedder.Embed(ctx, strings.TrimSpace(text))
	if err != nil {
		if errors.Is(err, common.ErrProviderUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: embedding: %w", common.ErrProviderUnavailable, err)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: embedding: empty vector", common.ErrProviderUnavailable)
	}
	return vector, nil
}
