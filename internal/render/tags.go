package render

import (
	"strings"

	"github.com/mostlycached/grain/internal/dimension"
)

// ParseDimensionTags extracts the dimension names a rendered text echoes
// back. It prefers the trailing "dimensions: ..." line the prompts ask
// for, falling back to scanning the whole text. Free text that matches
// nothing in the closed enumeration is simply not tagged — never an
// error.
func ParseDimensionTags(content string) []dimension.Dimension {
	scan := content
	lower := strings.ToLower(content)
	if idx := strings.LastIndex(lower, "dimensions:"); idx >= 0 {
		scan = content[idx+len("dimensions:"):]
	}

	var out []dimension.Dimension
	seen := make(map[dimension.Dimension]bool)
	for _, token := range splitTagTokens(scan) {
		d, ok := dimension.FromName(token)
		if !ok || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}

// splitTagTokens breaks text into lowercase name candidates. Dimension
// names are snake_case, so underscores stay inside tokens.
func splitTagTokens(text string) []string {
	text = strings.ToLower(text)
	var tokens []string
	var current strings.Builder
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || r == '_' {
			current.WriteRune(r)
		} else {
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
			}
			current.Reset()
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}
