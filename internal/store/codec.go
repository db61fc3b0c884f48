package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/mostlycached/grain/internal/dimension"
	"github.com/mostlycached/grain/internal/session"
	"github.com/mostlycached/grain/internal/vector"
)

// encodeEmbedding converts a []float64 to a binary BLOB (8 bytes per float64).
func encodeEmbedding(vec []float64) []byte {
	buf := make([]byte, len(vec)*8)
	for i, v := range vec {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// decodeEmbedding converts a binary BLOB back to []float64.
func decodeEmbedding(buf []byte) []float64 {
	n := len(buf) / 8
	vec := make([]float64, n)
	for i := 0; i < n; i++ {
		vec[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return vec
}

// encodeHistory serializes a state history as a JSON array of state names.
func encodeHistory(history []session.State) (string, error) {
	if history == nil {
		history = []session.State{}
	}
	buf, err := json.Marshal(history)
	if err != nil {
		return "", fmt.Errorf("encode history: %w", err)
	}
	return string(buf), nil
}

func decodeHistory(raw string) ([]session.State, error) {
	if raw == "" {
		return nil, nil
	}
	var history []session.State
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	if len(history) == 0 {
		return nil, nil
	}
	return history, nil
}

// Activations are persisted keyed by dimension name so the rows stay
// readable and survive enum reordering that the code itself forbids.
func encodeActivations(activations map[dimension.Dimension]float64) (string, error) {
	named := make(map[string]float64, len(activations))
	for d, v := range activations {
		named[d.String()] = v
	}
	buf, err := json.Marshal(named)
	if err != nil {
		return "", fmt.Errorf("encode activations: %w", err)
	}
	return string(buf), nil
}

func decodeActivations(raw string) (map[dimension.Dimension]float64, error) {
	var named map[string]float64
	if err := json.Unmarshal([]byte(raw), &named); err != nil {
		return nil, fmt.Errorf("decode activations: %w", err)
	}
	out := make(map[dimension.Dimension]float64, len(named))
	for name, v := range named {
		if d, ok := dimension.FromName(name); ok {
			out[d] = v
		}
	}
	return out, nil
}

func encodeDims(dims []dimension.Dimension) (string, error) {
	names := make([]string, len(dims))
	for i, d := range dims {
		names[i] = d.String()
	}
	buf, err := json.Marshal(names)
	if err != nil {
		return "", fmt.Errorf("encode dimensions: %w", err)
	}
	return string(buf), nil
}

func decodeDims(raw string) ([]dimension.Dimension, error) {
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, fmt.Errorf("decode dimensions: %w", err)
	}
	var out []dimension.Dimension
	for _, name := range names {
		if d, ok := dimension.FromName(name); ok {
			out = append(out, d)
		}
	}
	return out, nil
}

// encodeVector splits a PleasureVector into its column representations.
func encodeVector(pv *vector.PleasureVector) (activations, primary, secondary string, embedding []byte, err error) {
	if pv == nil {
		return "", "", "", nil, nil
	}
	if activations, err = encodeActivations(pv.Activations); err != nil {
		return
	}
	if primary, err = encodeDims(pv.Primary); err != nil {
		return
	}
	if secondary, err = encodeDims(pv.Secondary); err != nil {
		return
	}
	embedding = encodeEmbedding(pv.Embedding)
	return
}

// decodeVector reassembles a PleasureVector from nullable columns. A row
// without an embedding has no vector.
func decodeVector(activations, primary, secondary *string, embedding []byte) (*vector.PleasureVector, error) {
	if embedding == nil && activations == nil {
		return nil, nil
	}

	pv := &vector.PleasureVector{Embedding: decodeEmbedding(embedding)}
	var err error
	if activations != nil {
		if pv.Activations, err = decodeActivations(*activations); err != nil {
			return nil, err
		}
	}
	if primary != nil {
		if pv.Primary, err = decodeDims(*primary); err != nil {
			return nil, err
		}
	}
	if secondary != nil {
		if pv.Secondary, err = decodeDims(*secondary); err != nil {
			return nil, err
		}
	}
	return pv, nil
}
