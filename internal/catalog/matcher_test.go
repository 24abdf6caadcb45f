package catalog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/tableside/internal/common"
	"github.com/Veraticus/tableside/internal/model"
	"github.com/Veraticus/tableside/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMenuMatcher(t *testing.T) (*Matcher, *testutil.VectorEmbedder, *testutil.TestDB) {
	t.Helper()
	db := testutil.SetupTestDB(t, testutil.Menu())
	embedder := testutil.NewVectorEmbedder()
	m := NewMatcher(db.Storage, embedder, Config{}, common.Discard())
	return m, embedder, db
}

func TestMatcher_Match(t *testing.T) {
	m, embedder, _ := newMenuMatcher(t)
	embedder.
		Set("dragon roll", testutil.Near(testutil.GreenDragon, 0.91)).
		Set("tea", testutil.Near(testutil.IcedTea, 0.88)).
		Set("dumplings", testutil.Near(testutil.Gyoza, 0.70)).
		Set("filet minon", testutil.Near(testutil.FiletMignon, 0.52))

	tests := []struct {
		name        string
		query       string
		wantID      string
		wantConf    float64
		wantClarify bool
		wantExact   bool
		wantErr     error
	}{
		{name: "high similarity accepted", query: "dragon roll", wantID: testutil.GreenDragon, wantConf: 0.91},
		{name: "second item accepted", query: "tea", wantID: testutil.IcedTea, wantConf: 0.88},
		{name: "middle band needs clarification", query: "dumplings", wantID: testutil.Gyoza, wantConf: 0.70, wantClarify: true},
		{name: "typo below low threshold", query: "filet minon", wantErr: common.ErrNoMatchFound},
		{name: "unknown item", query: "pizza", wantErr: common.ErrNoMatchFound},
		{name: "exact display name", query: "Coca-Cola", wantID: testutil.Coke, wantConf: 1, wantExact: true},
		{name: "exact with article and spacing", query: "  the   Tonkotsu ramen", wantID: testutil.Ramen, wantConf: 1, wantExact: true},
		{name: "blank", query: "   ", wantErr: common.ErrNoMatchFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Match(context.Background(), tt.query)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got.CatalogItemID)
			assert.InDelta(t, tt.wantConf, got.Confidence, 1e-6)
			assert.Equal(t, tt.wantExact, got.Exact)
			assert.Equal(t, tt.wantClarify, got.NeedsClarification(m.Config().HighThreshold))
		})
	}
}

func TestMatcher_Match_BelowThresholdReportsCandidate(t *testing.T) {
	m, embedder, _ := newMenuMatcher(t)
	embedder.Set("filet minon", testutil.Near(testutil.FiletMignon, 0.52))

	_, err := m.Match(context.Background(), "filet minon")

	var matchErr *common.MatchError
	require.ErrorAs(t, err, &matchErr)
	assert.Equal(t, "Filet Mignon", matchErr.Candidate)
	assert.InDelta(t, 0.52, matchErr.Similarity, 1e-6)
	assert.Equal(t, "no_match_found", common.Kind(err))
}

func TestMatcher_Match_ExactNameSkipsEmbedding(t *testing.T) {
	m, embedder, _ := newMenuMatcher(t)

	_, err := m.Match(context.Background(), "the gyoza")
	require.NoError(t, err)
	assert.Zero(t, embedder.Calls("the gyoza"))
	assert.Zero(t, embedder.Calls("gyoza"))
}

func TestMatcher_Match_Ties(t *testing.T) {
	m, embedder, _ := newMenuMatcher(t)
	// Miso Soup is unranked, Seaweed Salad is rank 6.
	embedder.Set("soup or salad", testutil.Between(testutil.MisoSoup, 0.7, testutil.Seaweed, 0.7))
	// Both unranked, so the name decides.
	embedder.Set("something green", testutil.Between(testutil.MisoSoup, 0.7, testutil.Edamame, 0.7))

	got, err := m.Match(context.Background(), "soup or salad")
	require.NoError(t, err)
	assert.Equal(t, testutil.Seaweed, got.CatalogItemID)

	got, err = m.Match(context.Background(), "something green")
	require.NoError(t, err)
	assert.Equal(t, testutil.Edamame, got.CatalogItemID)
}

func TestMatcher_Match_TieBelowFloorDoesNotWin(t *testing.T) {
	db := testutil.SetupTestDB(t, testutil.Menu())
	embedder := testutil.NewVectorEmbedder()
	m := NewMatcher(db.Storage, embedder, Config{TieEpsilon: 0.05}, common.Discard())
	// Seaweed Salad outranks Miso Soup and is within epsilon, but under the floor.
	embedder.Set("soup please", testutil.Between(testutil.MisoSoup, 0.62, testutil.Seaweed, 0.58))

	got, err := m.Match(context.Background(), "soup please")
	require.NoError(t, err)
	assert.Equal(t, testutil.MisoSoup, got.CatalogItemID)
	assert.InDelta(t, 0.62, got.Confidence, 1e-6)
}

func TestMatcher_MatchAmong(t *testing.T) {
	m, embedder, _ := newMenuMatcher(t)
	embedder.Set("the noodles", testutil.Between(testutil.Gyoza, 0.9, testutil.Ramen, 0.8))

	got, err := m.MatchAmong(context.Background(), "the noodles", []string{testutil.Ramen, testutil.Coke})
	require.NoError(t, err)
	assert.Equal(t, testutil.Ramen, got.CatalogItemID)
	assert.InDelta(t, 0.8, got.Confidence, 1e-6)

	// Exact names outside the allowed set do not short-circuit.
	_, err = m.MatchAmong(context.Background(), "Fried Rice", []string{testutil.Coke})
	assert.ErrorIs(t, err, common.ErrNoMatchFound)
}

func TestMatcher_Match_ProviderFailure(t *testing.T) {
	m, embedder, _ := newMenuMatcher(t)
	embedder.Err = errors.New("quota exceeded")

	_, err := m.Match(context.Background(), "dragon roll")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrProviderUnavailable)
}

func TestMatcher_Nearest(t *testing.T) {
	m, embedder, _ := newMenuMatcher(t)
	query := make([]float32, testutil.Dimensions)
	axes := map[string]float32{testutil.Gyoza: 0.6, testutil.Ramen: 0.5, testutil.Edamame: 0.4, testutil.Coke: 0.1}
	for id, w := range axes {
		for i, v := range testutil.Axis(id) {
			query[i] += v * w
		}
	}
	embedder.Set("what has soy in it", query)

	got, err := m.Nearest(context.Background(), "what has soy in it", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, testutil.Gyoza, got[0].Item.ID)
	assert.Equal(t, testutil.Ramen, got[1].Item.ID)
	assert.Equal(t, testutil.Edamame, got[2].Item.ID)
}

func TestMatcher_Item(t *testing.T) {
	m, _, _ := newMenuMatcher(t)

	item, err := m.Item(context.Background(), testutil.Ramen)
	require.NoError(t, err)
	assert.Equal(t, "Tonkotsu Ramen", item.DisplayName)
	assert.Len(t, item.RequiredOptionGroups(), 1)

	_, err = m.Item(context.Background(), "pizza")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestMatcher_RefreshPicksUpNewItems(t *testing.T) {
	m, _, db := newMenuMatcher(t)
	ctx := context.Background()

	_, err := m.Match(ctx, "Matcha Latte")
	require.ErrorIs(t, err, common.ErrNoMatchFound)

	require.NoError(t, db.Storage.SaveCatalogItems(ctx, []model.CatalogItem{
		{ID: "matcha", DisplayName: "Matcha Latte", Category: "Drinks"},
	}))

	// The old snapshot is still served until a refresh.
	_, err = m.Match(ctx, "Matcha Latte")
	require.ErrorIs(t, err, common.ErrNoMatchFound)

	require.NoError(t, m.Refresh(ctx))
	got, err := m.Match(ctx, "Matcha Latte")
	require.NoError(t, err)
	assert.Equal(t, "matcha", got.CatalogItemID)
}

func TestMatcher_StartRefreshesInBackground(t *testing.T) {
	db := testutil.SetupTestDB(t, testutil.Menu())
	m := NewMatcher(db.Storage, testutil.NewVectorEmbedder(), Config{RefreshInterval: 10 * time.Millisecond}, common.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, m.Refresh(ctx))
	m.Start(ctx)

	require.NoError(t, db.Storage.SaveCatalogItems(ctx, []model.CatalogItem{
		{ID: "mochi", DisplayName: "Mochi", Category: "Desserts"},
	}))

	assert.Eventually(t, func() bool {
		_, err := m.Item(ctx, "mochi")
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}

// memoryCatalog is a minimal CatalogStore for generated catalogs.
type memoryCatalog struct {
	items []model.CatalogItem
	mu    sync.Mutex
}

func (c *memoryCatalog) GetCatalogItem(_ context.Context, id string) (*model.CatalogItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == id {
			item := c.items[i]
			return &item, nil
		}
	}
	return nil, common.ErrNotFound
}

func (c *memoryCatalog) ListCatalogItems(_ context.Context) ([]model.CatalogItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.CatalogItem(nil), c.items...), nil
}

func (c *memoryCatalog) SaveCatalogItems(_ context.Context, items []model.CatalogItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, items...)
	return nil
}

func (c *memoryCatalog) UpdateItemEmbedding(_ context.Context, id string, embedding []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i].Embedding = embedding
			return nil
		}
	}
	return common.ErrNotFound
}

// fixedEmbedder returns the same vector for every text.
type fixedEmbedder struct {
	vector []float32
}

func (e *fixedEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return e.vector, nil
}

func randomVector(rng *rand.Rand, dims int) []float32 {
	v := make([]float32, dims)
	for i := range v {
		v[i] = float32(rng.NormFloat64())
	}
	return v
}

func TestMatcher_Match_Property(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const dims = 6

	for trial := 0; trial < 300; trial++ {
		n := 1 + rng.Intn(25)
		items := make([]model.CatalogItem, n)
		for i := range items {
			items[i] = model.CatalogItem{
				ID:             fmt.Sprintf("item-%d", i),
				DisplayName:    fmt.Sprintf("Item %d", i),
				PopularityRank: rng.Intn(5),
				Embedding:      randomVector(rng, dims),
			}
		}
		query := randomVector(rng, dims)

		m := NewMatcher(&memoryCatalog{items: items}, &fixedEmbedder{vector: query}, Config{}, common.Discard())
		got, err := m.Match(context.Background(), "what the guest said")

		maxSim := math.Inf(-1)
		for _, item := range items {
			maxSim = math.Max(maxSim, Cosine(query, item.Embedding))
		}

		if maxSim < DefaultLowThreshold {
			require.ErrorIs(t, err, common.ErrNoMatchFound, "trial %d", trial)
			continue
		}

		require.NoError(t, err, "trial %d", trial)
		var chosen model.CatalogItem
		for _, item := range items {
			if item.ID == got.CatalogItemID {
				chosen = item
			}
		}
		sim := Cosine(query, chosen.Embedding)
		assert.GreaterOrEqual(t, sim, DefaultLowThreshold, "trial %d", trial)
		assert.InDelta(t, maxSim, sim, DefaultTieEpsilon, "trial %d", trial)
		assert.InDelta(t, sim, got.Confidence, 1e-9, "trial %d", trial)
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"scaled", []float32{1, 1}, []float32{3, 3}, 1},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cosine(tt.a, tt.b), 1e-9)
		})
	}
}
