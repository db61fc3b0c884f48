package insight

import (
	"github.com/mostlycached/grain/internal/dimension"
	"github.com/mostlycached/grain/internal/vector"
)

// ProfileSource is the external profile collaborator: trait-level data
// about the user that does not come from individual sessions.
type ProfileSource interface {
	// PreferredDimensions returns the user's preferred dimensions for
	// the given hour of day (0-23).
	PreferredDimensions(hour int) []dimension.Dimension
}

// DefaultProfile is the built-in fallback when no profile collaborator
// is wired: fixed time-of-day preferences.
type DefaultProfile struct{}

// PreferredDimensions maps the day into four coarse bands.
func (DefaultProfile) PreferredDimensions(hour int) []dimension.Dimension {
	switch {
	case hour >= 5 && hour < 11: // morning
		return []dimension.Dimension{dimension.Order, dimension.Path, dimension.Food}
	case hour >= 11 && hour < 17: // afternoon
		return []dimension.Dimension{dimension.Mobility, dimension.Horizon, dimension.MaterialPlay}
	case hour >= 17 && hour < 23: // evening
		return []dimension.Dimension{dimension.NatureMirror, dimension.SerendipityFollowing, dimension.Post}
	default: // night
		return []dimension.Dimension{dimension.Enclosure, dimension.Repetition, dimension.AnchorExpansion}
	}
}

// Traits returns the profile-level dominant dimensions of a dense trait
// vector: every entry at or above the trait threshold (0.6), in fixed
// dimension order. Distinct from the session-level dominant sort on
// purpose — downstream consumers depend on each behavior separately.
func Traits(profile []float64) []dimension.Dimension {
	return vector.DominantDimensions(profile, vector.TraitThreshold)
}
