package media

import (
	"regexp"
	"strings"
)

// Noise commonly appended to track titles that hurts search relevance.
var (
	parenthetical = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)
	featuring     = regexp.MustCompile(`(?i)\b(feat|ft)\.?\s+.*$`)
	versionNoise  = regexp.MustCompile(`(?i)\b(remaster(ed)?|deluxe|bonus track|radio edit|album version)\b.*$`)
)

// SimplifySearchQuery builds the search string for a track, stripping
// parentheticals, featured-artist credits, and remaster/edition noise from the
// title so the first search hit is more likely the canonical recording.
func SimplifySearchQuery(title, artist string) string {
	t := parenthetical.ReplaceAllString(title, " ")
	t = featuring.ReplaceAllString(t, " ")
	t = versionNoise.ReplaceAllString(t, " ")
	t = strings.Trim(t, " -–")

	// A title that was nothing but noise keeps its original form; a search for
	// the bare artist would match the wrong recording.
	if strings.TrimSpace(t) == "" {
		t = title
	}

	return strings.Join(strings.Fields(t+" "+artist), " ")
}
