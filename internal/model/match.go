package model

import "sort"

// MatchResult is the outcome of resolving a spoken item name against the catalog.
type MatchResult struct {
	CatalogItemID string
	DisplayName   string
	Confidence    float64
	// Exact is set when the name matched a catalog entry verbatim and no
	// embedding comparison took place.
	Exact bool
}

// NeedsClarification reports whether the match was accepted below the automatic
// acceptance threshold.
func (r MatchResult) NeedsClarification(highThreshold float64) bool {
	return r.Confidence < highThreshold
}

// MatchCandidate is one catalog item scored against a query vector.
type MatchCandidate struct {
	Item       CatalogItem
	Similarity float64
}

// MatchCandidates is a slice of MatchCandidate that supports sorting and utility methods.
type MatchCandidates []MatchCandidate

// Len implements sort.Interface.
func (c MatchCandidates) Len() int {
	return len(c)
}

// Less implements sort.Interface - higher similarity first, then more popular,
// then display name for determinism.
func (c MatchCandidates) Less(i, j int) bool {
	if c[i].Similarity != c[j].Similarity {
		return c[i].Similarity > c[j].Similarity
	}
	if c[i].Item.PopularityRank != c[j].Item.PopularityRank {
		return BetterRank(c[i].Item.PopularityRank, c[j].Item.PopularityRank)
	}
	return c[i].Item.DisplayName < c[j].Item.DisplayName
}

// Swap implements sort.Interface.
func (c MatchCandidates) Swap(i, j int) {
	c[i], c[j] = c[j], c[i]
}

// Sort sorts the candidates best first.
func (c MatchCandidates) Sort() {
	sort.Sort(c)
}

// TopN returns the N best candidates.
func (c MatchCandidates) TopN(n int) MatchCandidates {
	if n <= 0 {
		return MatchCandidates{}
	}

	c.Sort()

	if n > len(c) {
		n = len(c)
	}

	result := make(MatchCandidates, n)
	copy(result, c[:n])
	return result
}

// AboveThreshold returns all candidates with similarity at or above threshold.
func (c MatchCandidates) AboveThreshold(threshold float64) MatchCandidates {
	c.Sort()

	var result MatchCandidates
	for _, candidate := range c {
		if candidate.Similarity >= threshold {
			result = append(result, candidate)
		}
	}
	return result
}

// Best picks the winning candidate. Candidates whose similarity lies within epsilon
// of the maximum are treated as tied; ties go to the better popularity rank, then to
// the lexicographically smaller display name.
func (c MatchCandidates) Best(epsilon float64) (MatchCandidate, bool) {
	if len(c) == 0 {
		return MatchCandidate{}, false
	}

	top := c[0].Similarity
	for _, candidate := range c[1:] {
		if candidate.Similarity > top {
			top = candidate.Similarity
		}
	}

	var best MatchCandidate
	found := false
	for _, candidate := range c {
		if top-candidate.Similarity > epsilon {
			continue
		}
		if !found || preferTied(candidate, best) {
			best = candidate
			found = true
		}
	}

	return best, found
}

func preferTied(a, b MatchCandidate) bool {
	if a.Item.PopularityRank != b.Item.PopularityRank {
		return BetterRank(a.Item.PopularityRank, b.Item.PopularityRank)
	}
	if a.Item.DisplayName != b.Item.DisplayName {
		return a.Item.DisplayName < b.Item.DisplayName
	}
	return a.Similarity > b.Similarity
}
