package catalog

import (
	"math"
	"strings"

	"github.com/Veraticus/tableside/internal/model"
)

// Cosine returns the cosine similarity of a and b. Vectors of different length or
// with zero magnitude score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Rounding can push identical vectors a hair past 1.
	return math.Max(-1, math.Min(1, sim))
}

var leadingFiller = map[string]bool{
	"the": true, "a": true, "an": true, "my": true, "some": true, "one": true, "that": true,
}

// lookupKey reduces a spoken name to the form used for exact catalog lookups:
// normalized, without a leading article.
func lookupKey(name string) string {
	words := strings.Fields(model.NormalizeName(name))
	for len(words) > 1 && leadingFiller[words[0]] {
		words = words[1:]
	}
	return strings.Join(words, " ")
}
