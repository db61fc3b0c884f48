// Package dimension defines the closed set of 16 pleasure axes used
// throughout the engine. The index order is stable and load-bearing:
// every dense 16-length vector in the system is interpreted in this order.
package dimension

import "fmt"

// Dimension identifies one of the 16 fixed pleasure axes.
type Dimension int

const (
	Order Dimension = iota
	Enclosure
	Path
	Horizon
	Anxiety
	Ignorance
	Repetition
	Post
	Food
	Mobility
	EroticUncertainty
	MaterialPlay
	Power
	NatureMirror
	SerendipityFollowing
	AnchorExpansion
)

// Count is the fixed dimensionality of every embedding.
const Count = 16

var names = [Count]string{
	"order",
	"enclosure",
	"path",
	"horizon",
	"anxiety",
	"ignorance",
	"repetition",
	"post",
	"food",
	"mobility",
	"erotic_uncertainty",
	"material_play",
	"power",
	"nature_mirror",
	"serendipity_following",
	"anchor_expansion",
}

// byName maps canonical names back to dimensions. Built once; lookups on
// free text from the renderer go through FromName and unmatched strings
// simply resolve to nothing.
var byName = func() map[string]Dimension {
	m := make(map[string]Dimension, Count)
	for i, n := range names {
		m[n] = Dimension(i)
	}
	return m
}()

// String returns the canonical snake_case name.
func (d Dimension) String() string {
	if !d.Valid() {
		return "unknown"
	}
	return names[d]
}

// Valid reports whether d is one of the 16 defined axes.
func (d Dimension) Valid() bool {
	return d >= 0 && d < Count
}

// MarshalText renders the dimension as its canonical name, so JSON
// payloads carry "mobility" rather than a bare index.
func (d Dimension) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("unknown dimension %d", int(d))
	}
	return []byte(names[d]), nil
}

// UnmarshalText resolves a canonical name.
func (d *Dimension) UnmarshalText(text []byte) error {
	got, ok := byName[string(text)]
	if !ok {
		return fmt.Errorf("unknown dimension %q", text)
	}
	*d = got
	return nil
}

// FromName resolves a canonical name to its Dimension. The second return
// is false for any string outside the closed set; callers drop such tags
// rather than erroring.
func FromName(name string) (Dimension, bool) {
	d, ok := byName[name]
	return d, ok
}

// All returns every dimension in index order.
func All() []Dimension {
	out := make([]Dimension, Count)
	for i := range out {
		out[i] = Dimension(i)
	}
	return out
}
