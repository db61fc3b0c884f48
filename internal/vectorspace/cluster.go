package vectorspace

import (
	"math"
	"math/rand"

	"github.com/mostlycached/grain/internal/dimension"
	"github.com/mostlycached/grain/internal/session"
	"github.com/mostlycached/grain/internal/vector"
)

// clusterIterations bounds every clustering run. There is no convergence
// check on purpose: the run cost stays fixed regardless of input shape.
const clusterIterations = 10

// Cluster groups sessions by embedding proximity.
type Cluster struct {
	Centroid []float64         `json:"centroid"`
	Members  []session.Session `json:"members"`
}

// KMeans partitions the sessions with usable embeddings into at most k
// clusters by iterative nearest-centroid reassignment. Sessions without
// usable embeddings are excluded entirely. With fewer qualifying sessions
// than k, a single cluster holding all of them is returned — a degenerate
// result, not an error. Initial centroids are sampled from rng, so a
// seeded source makes the run reproducible.
func KMeans(sessions []session.Session, k int, rng *rand.Rand) []Cluster {
	var qualifying []session.Session
	for i := range sessions {
		if validEmbedding(&sessions[i]) {
			qualifying = append(qualifying, sessions[i])
		}
	}
	if len(qualifying) == 0 {
		return nil
	}

	if len(qualifying) < k || k <= 1 {
		return []Cluster{{
			Centroid: Centroid(qualifying),
			Members:  qualifying,
		}}
	}

	// Seed k distinct centroids by sampling sessions without replacement.
	centroids := make([][]float64, k)
	for i, idx := range rng.Perm(len(qualifying))[:k] {
		c := make([]float64, dimension.Count)
		copy(c, qualifying[idx].Embedding())
		centroids[i] = c
	}

	assignments := make([]int, len(qualifying))
	for iter := 0; iter < clusterIterations; iter++ {
		// Assign each session to its nearest centroid.
		for i := range qualifying {
			emb := qualifying[i].Embedding()
			best, bestDist := 0, math.Inf(1)
			for c := range centroids {
				if d := vector.EuclideanDistance(emb, centroids[c]); d < bestDist {
					best, bestDist = c, d
				}
			}
			assignments[i] = best
		}

		// Recompute centroids as member means; empty clusters keep
		// their previous centroid unchanged.
		sums := make([][]float64, k)
		counts := make([]int, k)
		for i := range sums {
			sums[i] = make([]float64, dimension.Count)
		}
		for i := range qualifying {
			c := assignments[i]
			counts[c]++
			for j, v := range qualifying[i].Embedding() {
				sums[c][j] += v
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			for j := range sums[c] {
				sums[c][j] /= float64(counts[c])
			}
			centroids[c] = sums[c]
		}
	}

	// Collect non-empty clusters; the returned count may be below k.
	members := make([][]session.Session, k)
	for i := range qualifying {
		c := assignments[i]
		members[c] = append(members[c], qualifying[i])
	}

	var out []Cluster
	for c := range centroids {
		if len(members[c]) == 0 {
			continue
		}
		out = append(out, Cluster{Centroid: centroids[c], Members: members[c]})
	}
	return out
}
