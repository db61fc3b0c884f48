// Package vectorspace provides the collection-level analytics over
// session embeddings: similarity search, centroid and variance
// computation, and bounded k-means clustering. All functions are pure
// over their inputs and safe to run concurrently across queries.
package vectorspace

import (
	"sort"

	"github.com/mostlycached/grain/internal/dimension"
	"github.com/mostlycached/grain/internal/session"
	"github.com/mostlycached/grain/internal/vector"
)

// Scored pairs a session with its similarity to a query embedding.
type Scored struct {
	Session    session.Session `json:"session"`
	Similarity float64         `json:"similarity"`
}

// validEmbedding reports whether a session carries a usable 16-length
// embedding. Anything else is a skip condition in aggregates — a single
// corrupt session must not abort a computation over many.
func validEmbedding(s *session.Session) bool {
	return len(s.Embedding()) == dimension.Count
}

// FindSimilar scores every session with a usable embedding by cosine
// similarity to query and returns the top k, best first. Ties keep input
// order (sort.SliceStable).
func FindSimilar(query []float64, sessions []session.Session, k int) []Scored {
	var results []Scored
	for _, s := range sessions {
		emb := s.Embedding()
		if len(emb) == 0 {
			continue
		}
		results = append(results, Scored{
			Session:    s,
			Similarity: vector.CosineSimilarity(query, emb),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if k >= 0 && len(results) > k {
		results = results[:k]
	}
	return results
}

// Centroid returns the per-dimension mean embedding over the sessions
// that have a usable one. Sessions with missing or malformed embeddings
// are skipped, not zero-filled. With no qualifying session the zero
// vector is returned.
func Centroid(sessions []session.Session) []float64 {
	out := make([]float64, dimension.Count)
	count := 0
	for i := range sessions {
		if !validEmbedding(&sessions[i]) {
			continue
		}
		for j, v := range sessions[i].Embedding() {
			out[j] += v
		}
		count++
	}
	if count == 0 {
		return out
	}
	for j := range out {
		out[j] /= float64(count)
	}
	return out
}

// DimensionVariance returns the per-dimension population variance around
// the centroid, with the same skip rule as Centroid. A single qualifying
// session yields all zeros.
func DimensionVariance(sessions []session.Session) []float64 {
	mean := Centroid(sessions)
	out := make([]float64, dimension.Count)
	count := 0
	for i := range sessions {
		if !validEmbedding(&sessions[i]) {
			continue
		}
		for j, v := range sessions[i].Embedding() {
			d := v - mean[j]
			out[j] += d * d
		}
		count++
	}
	if count == 0 {
		return out
	}
	for j := range out {
		out[j] /= float64(count)
	}
	return out
}

// RankedDimension pairs a dimension with an aggregate value, used for
// variance extremes.
type RankedDimension struct {
	Dimension dimension.Dimension `json:"dimension"`
	Value     float64             `json:"value"`
}

// TopVariance returns the n highest-variance dimensions, ties broken by
// enumeration order.
func TopVariance(variance []float64, n int) []RankedDimension {
	return rankVariance(variance, n, true)
}

// BottomVariance returns the n lowest-variance dimensions, ties broken by
// enumeration order.
func BottomVariance(variance []float64, n int) []RankedDimension {
	return rankVariance(variance, n, false)
}

func rankVariance(variance []float64, n int, descending bool) []RankedDimension {
	ranked := make([]RankedDimension, 0, len(variance))
	for i, v := range variance {
		if i >= dimension.Count {
			break
		}
		ranked = append(ranked, RankedDimension{Dimension: dimension.Dimension(i), Value: v})
	}
	// Stable sort keeps enumeration order on ties.
	sort.SliceStable(ranked, func(i, j int) bool {
		if descending {
			return ranked[i].Value > ranked[j].Value
		}
		return ranked[i].Value < ranked[j].Value
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
