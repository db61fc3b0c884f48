package vector

import "math"

// Normalize performs in-place L2 normalization. The zero vector is left
// unchanged — a defined no-op, not an error.
func Normalize(vec []float64) {
	norm := Norm(vec)
	if norm == 0 {
		return
	}
	for i := range vec {
		vec[i] /= norm
	}
}

// Norm returns the Euclidean length of vec.
func Norm(vec []float64) float64 {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Empty or mismatched-length inputs and zero-norm vectors all score 0
// rather than producing NaN.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

// EuclideanDistance computes the straight-line distance between two
// vectors. Mismatched lengths return +Inf so incomparable vectors always
// sort last in nearest-neighbor rankings instead of crashing the ranking.
func EuclideanDistance(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}

	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// legacyProjectionSplit is where the two-bucket projection divides the
// dimension order: [0, 7) vs [7, 16).
const legacyProjectionSplit = 7

// LegacyProjection2D collapses a 16-length vector into two coordinates by
// summing the first 7 and last 9 dimensions. This is the historical chart
// projection, kept bit-for-bit for continuity with stored data. It is not
// a principal-component reduction and makes no optimality claim.
func LegacyProjection2D(vec []float64) [2]float64 {
	var out [2]float64
	for i, v := range vec {
		if i < legacyProjectionSplit {
			out[0] += v
		} else {
			out[1] += v
		}
	}
	return out
}
