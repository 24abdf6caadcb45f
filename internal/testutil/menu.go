package testutil

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/Veraticus/tableside/internal/common"
	"github.com/Veraticus/tableside/internal/model"
)

// Catalog item ids in the test menu.
const (
	GreenDragon = "green-dragon"
	IcedTea     = "iced-tea"
	Gyoza       = "gyoza"
	Ramen       = "ramen"
	MisoSoup    = "miso"
	Seaweed     = "seaweed-salad"
	Coke        = "coke"
	FriedRice   = "fried-rice"
	FiletMignon = "filet-mignon"
	Edamame     = "edamame"
)

// menuOrder fixes the axis each item's vector points along.
var menuOrder = []string{
	GreenDragon, IcedTea, Gyoza, Ramen, MisoSoup, Seaweed, Coke, FriedRice, FiletMignon, Edamame,
}

// Dimensions is the vector length used by the test menu. The last axis belongs to
// no item and absorbs the remainder when building a query at a given similarity.
var Dimensions = len(menuOrder) + 1

// Menu returns the test catalog. Every item's vector is a distinct unit axis, so the
// cosine similarity between a query and an item is simply the query's component
// along that axis.
func Menu() []model.CatalogItem {
	items := []model.CatalogItem{
		{
			ID: GreenDragon, DisplayName: "Green Dragon Roll", Category: "Rolls",
			Description:    "shrimp tempura and cucumber topped with avocado",
			Ingredients:    []string{"shrimp", "cucumber", "avocado", "rice", "nori"},
			Allergens:      []string{"shellfish"},
			PopularityRank: 1, Price: 14.5,
		},
		{
			ID: IcedTea, DisplayName: "Iced Tea", Category: "Drinks",
			Description: "unsweetened black tea", PopularityRank: 4, Price: 3,
		},
		{
			ID: Gyoza, DisplayName: "Gyoza", Category: "Appetizers",
			Description: "pan-fried dumplings",
			OptionGroups: []model.OptionGroup{
				{ID: "filling", Name: "filling", Choices: []string{"beef", "pork", "vegetable"}, Required: true},
			},
			Allergens:      []string{"wheat", "soy"},
			PopularityRank: 2, Price: 7,
		},
		{
			ID: Ramen, DisplayName: "Tonkotsu Ramen", Category: "Noodles",
			Description: "pork bone broth with chashu and egg",
			OptionGroups: []model.OptionGroup{
				{ID: "broth", Name: "broth", Choices: []string{"mild", "spicy"}, Required: true},
				{ID: "noodle", Name: "noodle firmness", Choices: []string{"soft", "firm"}},
			},
			Allergens:      []string{"wheat", "egg"},
			PopularityRank: 3, Price: 16,
		},
		{
			ID: MisoSoup, DisplayName: "Miso Soup", Category: "Soups",
			Description: "tofu, wakame, scallion", Allergens: []string{"soy"}, Price: 4,
		},
		{
			ID: Seaweed, DisplayName: "Seaweed Salad", Category: "Salads",
			Description: "marinated wakame with sesame", Allergens: []string{"sesame"},
			PopularityRank: 6, Price: 6,
		},
		{
			ID: Coke, DisplayName: "Coca-Cola", Category: "Drinks",
			PopularityRank: 5, Price: 2.5,
		},
		{
			ID: FriedRice, DisplayName: "Fried Rice", Category: "Sides",
			Description: "egg fried rice", Allergens: []string{"egg"}, PopularityRank: 7, Price: 5,
		},
		{
			ID: FiletMignon, DisplayName: "Filet Mignon", Category: "Entrees",
			Description: "grilled beef tenderloin", PopularityRank: 8, Price: 32,
		},
		{
			ID: Edamame, DisplayName: "Edamame", Category: "Appetizers",
			Description: "steamed soybeans with sea salt", Allergens: []string{"soy"}, Price: 5,
		},
	}

	for i := range items {
		items[i].Embedding = Axis(items[i].ID)
	}
	return items
}

// MenuItem returns the test menu entry with id.
func MenuItem(id string) model.CatalogItem {
	for _, item := range Menu() {
		if item.ID == id {
			return item
		}
	}
	panic(fmt.Sprintf("testutil: no menu item %q", id))
}

// Axis returns the unit vector belonging to a menu item.
func Axis(id string) []float32 {
	for i, candidate := range menuOrder {
		if candidate == id {
			v := make([]float32, Dimensions)
			v[i] = 1
			return v
		}
	}
	panic(fmt.Sprintf("testutil: no menu item %q", id))
}

// Near returns a unit query vector whose cosine similarity to item id is sim.
func Near(id string, sim float64) []float32 {
	v := Axis(id)
	for i := range v {
		v[i] *= float32(sim)
	}
	v[Dimensions-1] = float32(math.Sqrt(math.Max(0, 1-sim*sim)))
	return v
}

// Between returns a query vector with similarity simA to item a and simB to item b.
func Between(a string, simA float64, b string, simB float64) []float32 {
	v := make([]float32, Dimensions)
	va, vb := Axis(a), Axis(b)
	for i := range v {
		v[i] = va[i]*float32(simA) + vb[i]*float32(simB)
	}
	v[Dimensions-1] = float32(math.Sqrt(math.Max(0, 1-simA*simA-simB*simB)))
	return v
}

// VectorEmbedder is an Embedder backed by a fixed text-to-vector table. Unknown text
// embeds onto the spare axis, i.e. similarity zero to every item.
type VectorEmbedder struct {
	Err     error
	vectors map[string][]float32
	calls   map[string]int
	mu      sync.Mutex
}

// NewVectorEmbedder returns an embedder that knows every menu item by name and
// embedding text.
func NewVectorEmbedder() *VectorEmbedder {
	e := &VectorEmbedder{
		vectors: make(map[string][]float32),
		calls:   make(map[string]int),
	}
	for _, item := range Menu() {
		e.Set(item.DisplayName, item.Embedding)
		e.Set(item.EmbeddingText(), item.Embedding)
	}
	return e
}

// Set registers the vector returned for text.
func (e *VectorEmbedder) Set(text string, vector []float32) *VectorEmbedder {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vectors[model.NormalizeName(text)] = vector
	return e
}

// Embed implements llm.Embedder.
func (e *VectorEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	key := model.NormalizeName(text)
	e.calls[key]++
	vector, ok := e.vectors[key]
	err := e.Err
	e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrProviderUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		vector = make([]float32, Dimensions)
		vector[Dimensions-1] = 1
	}
	return vector, nil
}

// Calls reports how many times text was embedded.
func (e *VectorEmbedder) Calls(text string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[model.NormalizeName(text)]
}
