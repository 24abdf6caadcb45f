package model

import (
	"testing"
)

func TestMatchCandidates_Sort(t *testing.T) {
	candidates := MatchCandidates{
		{Item: CatalogItem{ID: "b", DisplayName: "B"}, Similarity: 0.5},
		{Item: CatalogItem{ID: "a", DisplayName: "A", PopularityRank: 5}, Similarity: 0.8},
		{Item: CatalogItem{ID: "d", DisplayName: "D"}, Similarity: 0.3},
		{Item: CatalogItem{ID: "c", DisplayName: "C", PopularityRank: 2}, Similarity: 0.8},
		{Item: CatalogItem{ID: "e", DisplayName: "E"}, Similarity: 0.8},
	}

	candidates.Sort()

	expected := []string{"c", "a", "e", "b", "d"} // same score: ranked before unranked
	for i, id := range expected {
		if candidates[i].Item.ID != id {
			t.Errorf("Sort() index %d = %s, want %s", i, candidates[i].Item.ID, id)
		}
	}
}

func TestMatchCandidates_TopN(t *testing.T) {
	candidates := MatchCandidates{
		{Item: CatalogItem{ID: "a"}, Similarity: 0.9},
		{Item: CatalogItem{ID: "b"}, Similarity: 0.7},
		{Item: CatalogItem{ID: "c"}, Similarity: 0.5},
		{Item: CatalogItem{ID: "d"}, Similarity: 0.3},
	}

	tests := []struct {
		name  string
		first string
		n     int
		count int
	}{
		{name: "top 0", n: 0, count: 0},
		{name: "top 1", n: 1, count: 1, first: "a"},
		{name: "top 3", n: 3, count: 3, first: "a"},
		{name: "more than available", n: 10, count: 4, first: "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := candidates.TopN(tt.n)
			if len(got) != tt.count {
				t.Fatalf("TopN(%d) returned %d candidates, want %d", tt.n, len(got), tt.count)
			}
			if tt.count > 0 && got[0].Item.ID != tt.first {
				t.Errorf("TopN(%d) first = %s, want %s", tt.n, got[0].Item.ID, tt.first)
			}
		})
	}
}

func TestMatchCandidates_AboveThreshold(t *testing.T) {
	candidates := MatchCandidates{
		{Item: CatalogItem{ID: "a"}, Similarity: 0.9},
		{Item: CatalogItem{ID: "b"}, Similarity: 0.6},
		{Item: CatalogItem{ID: "c"}, Similarity: 0.59},
	}

	got := candidates.AboveThreshold(0.6)
	if len(got) != 2 {
		t.Fatalf("AboveThreshold(0.6) returned %d candidates, want 2", len(got))
	}
	if got[1].Item.ID != "b" {
		t.Errorf("AboveThreshold(0.6) should keep the boundary value, got %s", got[1].Item.ID)
	}
}

func TestMatchCandidates_Best(t *testing.T) {
	tests := []struct {
		name       string
		want       string
		candidates MatchCandidates
		epsilon    float64
		found      bool
	}{
		{
			name:       "empty",
			candidates: MatchCandidates{},
			epsilon:    1e-4,
		},
		{
			name: "clear winner",
			candidates: MatchCandidates{
				{Item: CatalogItem{ID: "a", DisplayName: "A", PopularityRank: 1}, Similarity: 0.7},
				{Item: CatalogItem{ID: "b", DisplayName: "B"}, Similarity: 0.9},
			},
			epsilon: 1e-4,
			want:    "b",
			found:   true,
		},
		{
			name: "tie broken by popularity",
			candidates: MatchCandidates{
				{Item: CatalogItem{ID: "a", DisplayName: "A", PopularityRank: 7}, Similarity: 0.90000},
				{Item: CatalogItem{ID: "b", DisplayName: "B", PopularityRank: 2}, Similarity: 0.89995},
			},
			epsilon: 1e-4,
			want:    "b",
			found:   true,
		},
		{
			name: "tie broken by display name",
			candidates: MatchCandidates{
				{Item: CatalogItem{ID: "z", DisplayName: "Zaru Soba"}, Similarity: 0.8},
				{Item: CatalogItem{ID: "k", DisplayName: "Kake Soba"}, Similarity: 0.8},
			},
			epsilon: 1e-4,
			want:    "k",
			found:   true,
		},
		{
			name: "outside epsilon is not a tie",
			candidates: MatchCandidates{
				{Item: CatalogItem{ID: "a", DisplayName: "A", PopularityRank: 1}, Similarity: 0.85},
				{Item: CatalogItem{ID: "b", DisplayName: "B", PopularityRank: 9}, Similarity: 0.86},
			},
			epsilon: 1e-4,
			want:    "b",
			found:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := tt.candidates.Best(tt.epsilon)
			if found != tt.found {
				t.Fatalf("Best() found = %v, want %v", found, tt.found)
			}
			if found && got.Item.ID != tt.want {
				t.Errorf("Best() = %s, want %s", got.Item.ID, tt.want)
			}
		})
	}
}

func TestBetterRank(t *testing.T) {
	tests := []struct {
		name string
		a, b int
		want bool
	}{
		{name: "lower rank wins", a: 1, b: 2, want: true},
		{name: "higher rank loses", a: 3, b: 2, want: false},
		{name: "ranked beats unranked", a: 40, b: 0, want: true},
		{name: "unranked loses", a: 0, b: 40, want: false},
		{name: "equal", a: 4, b: 4, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BetterRank(tt.a, tt.b); got != tt.want {
				t.Errorf("BetterRank(%d, %d) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
