package vectorstore

import (
	"fmt"
	"math"
)

// CosineDistance computes 1 - cosine similarity between two vectors, so that
// identical directions yield 0 and opposite directions yield 2. It returns an
// error on dimension mismatch or zero-magnitude input.
func CosineDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("empty vectors")
	}

	var dot, na2, nb2 float64
	for i := range a {
		va := float64(a[i])
		vb := float64(b[i])
		dot += va * vb
		na2 += va * va
		nb2 += vb * vb
	}
	if na2 == 0 || nb2 == 0 {
		return 0, fmt.Errorf("zero-magnitude vector")
	}

	sim := dot / (math.Sqrt(na2) * math.Sqrt(nb2))
	// Float rounding can push |sim| marginally past 1.
	sim = math.Max(-1, math.Min(1, sim))
	return 1 - sim, nil
}
