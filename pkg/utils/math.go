package utils

import "math"

// NormalizeL2 scales x in place to unit length and returns its original
// norm. A zero vector is left unchanged.
func NormalizeL2(x []float32) float64 {
	norm := math.Sqrt(Dot(x, x))
	if norm == 0 {
		return 0
	}
	inv := 1 / norm
	for i := range x {
		x[i] = float32(float64(x[i]) * inv)
	}
	return norm
}

// Dot returns the inner product of a and b, accumulated in float64. For unit
// vectors this is the cosine similarity. Vectors of different length score 0.
func Dot(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
