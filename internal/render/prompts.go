package render

import (
	"fmt"
	"strings"

	"github.com/mostlycached/grain/internal/dimension"
)

// The prompt builders hand the renderer structured dimension context and
// a role description; the wording of the final insight is entirely the
// renderer's. Each prompt asks for the dimension names it leaned on so
// the caller can tag the finding.

const roleDescription = `You are the reflective voice of a pleasure-mapping journal.
You receive structured summaries of a user's activity sessions across 16 named
pleasure dimensions and respond with two or three warm, concrete sentences.
Never invent dimensions outside the provided names.`

func dimensionNames(dims []dimension.Dimension) string {
	if len(dims) == 0 {
		return "(none)"
	}
	names := make([]string, len(dims))
	for i, d := range dims {
		names[i] = d.String()
	}
	return strings.Join(names, ", ")
}

// SessionComparisonPrompt builds the prompt for the just-ended session
// against its nearest historical neighbors.
func SessionComparisonPrompt(primary []dimension.Dimension, neighborCount int, sharedDims []dimension.Dimension, bestSimilarity float64) string {
	return fmt.Sprintf(`%s

The session that just ended had primary dimensions: %s.
It resembles %d earlier sessions (closest cosine similarity %.2f).
Dimensions shared with those sessions: %s.

Write a short reflection comparing this session to the user's history.
End with a line "dimensions: <comma-separated dimension names you referenced>".`,
		roleDescription,
		dimensionNames(primary),
		neighborCount,
		bestSimilarity,
		dimensionNames(sharedDims))
}

// WeeklyPrompt builds the prompt for the weekly pattern summary.
func WeeklyPrompt(sessionCount int, clusterSizes []int, mostVaried, leastExplored []dimension.Dimension) string {
	sizes := make([]string, len(clusterSizes))
	for i, n := range clusterSizes {
		sizes[i] = fmt.Sprintf("%d", n)
	}

	return fmt.Sprintf(`%s

This week the user completed %d sessions, grouping into clusters of sizes [%s].
Most varied dimensions: %s.
Least explored dimensions: %s.

Write a short weekly reflection on these patterns.
End with a line "dimensions: <comma-separated dimension names you referenced>".`,
		roleDescription,
		sessionCount,
		strings.Join(sizes, ", "),
		dimensionNames(mostVaried),
		dimensionNames(leastExplored))
}

// SuggestionPrompt builds the prompt for the next-activity suggestion.
func SuggestionPrompt(underexplored []dimension.Dimension, fromProfile bool) string {
	source := "they have barely touched lately"
	if fromProfile {
		source = "their profile favors at this time of day"
	}

	return fmt.Sprintf(`%s

Suggest one gentle next activity for the user, drawing on dimensions %s: %s.

Write one or two sentences.
End with a line "dimensions: <comma-separated dimension names you referenced>".`,
		roleDescription,
		source,
		dimensionNames(underexplored))
}
