// Package vector implements the 16-dimensional pleasure-vector model:
// dense embeddings over the fixed dimension order, the sparse activation
// map, and the similarity metrics the analytics layer is built on.
package vector

import (
	"sort"

	"github.com/mostlycached/grain/internal/dimension"
)

// Intensity thresholds. Post-hoc session analysis uses DominantThreshold;
// profile-level trait analysis uses TraitThreshold. The two are distinct
// on purpose and must not be merged.
const (
	DominantThreshold = 0.3
	TraitThreshold    = 0.6
)

// PleasureVector is the finalized vector for one session: the sparse
// activation map of what the session actually touched, the derived dense
// embedding, and the primary/secondary split from activation order.
type PleasureVector struct {
	Activations map[dimension.Dimension]float64 `json:"activations"`
	Embedding   []float64                       `json:"embedding"`
	Primary     []dimension.Dimension           `json:"primary"`
	Secondary   []dimension.Dimension           `json:"secondary"`
}

// Activation pairs a dimension with its recorded intensity.
type Activation struct {
	Dimension dimension.Dimension `json:"dimension"`
	Intensity float64             `json:"intensity"`
}

// Dense expands the activation map into a 16-length array in fixed
// dimension order, zero for untouched dimensions. Not normalized.
func (pv *PleasureVector) Dense() []float64 {
	vec := make([]float64, dimension.Count)
	for d, v := range pv.Activations {
		if d.Valid() {
			vec[d] = v
		}
	}
	return vec
}

// Dominant returns the activated entries above DominantThreshold, sorted
// by intensity descending. This is the session-level definition; the
// vector-level DominantDimensions keeps fixed order instead.
func (pv *PleasureVector) Dominant() []Activation {
	var out []Activation
	for d, v := range pv.Activations {
		if v > DominantThreshold {
			out = append(out, Activation{Dimension: d, Intensity: v})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Intensity != out[j].Intensity {
			return out[i].Intensity > out[j].Intensity
		}
		return out[i].Dimension < out[j].Dimension
	})
	return out
}

// EmbedActivations builds the normalized dense embedding for a session's
// activation map.
func EmbedActivations(activations map[dimension.Dimension]float64) []float64 {
	vec := make([]float64, dimension.Count)
	for d, v := range activations {
		if d.Valid() {
			vec[d] = v
		}
	}
	Normalize(vec)
	return vec
}

// EmbedProfile normalizes a dense trait-level profile vector. The input is
// copied, not mutated.
func EmbedProfile(profile []float64) []float64 {
	vec := make([]float64, len(profile))
	copy(vec, profile)
	Normalize(vec)
	return vec
}

// EmbedMission builds a one-hot style embedding: every targeted dimension
// set to 1.0, the rest zero, then normalized.
func EmbedMission(targets []dimension.Dimension) []float64 {
	vec := make([]float64, dimension.Count)
	for _, d := range targets {
		if d.Valid() {
			vec[d] = 1.0
		}
	}
	Normalize(vec)
	return vec
}

// DominantDimensions returns the dimensions whose value meets or exceeds
// threshold, in fixed dimension order. This is the vector-level
// definition — unsorted by magnitude, unlike PleasureVector.Dominant.
func DominantDimensions(vec []float64, threshold float64) []dimension.Dimension {
	var out []dimension.Dimension
	for i, v := range vec {
		if i >= dimension.Count {
			break
		}
		if v >= threshold {
			out = append(out, dimension.Dimension(i))
		}
	}
	return out
}
