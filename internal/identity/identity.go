// package identity derives stable track keys for dedup and ledger lookups.
//
// The same recording listed by different providers rarely matches byte for byte:
// casing, accents, surrounding whitespace, and container-dependent durations all
// drift. TrackKey folds those differences away so that one recording maps to one
// key across runs and across providers.
package identity

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// durationBucketSeconds absorbs minor duration discrepancies between providers.
// Two listings of the same recording within this tolerance fold to the same bucket.
const durationBucketSeconds = 2

// accentFolder decomposes characters and drops combining marks, so "Beyoncé"
// and "Beyonce" normalize identically.
var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// TrackKey derives the normalized identity key for a track.
//
// The key is deterministic: identical title, artist, and duration-within-tolerance
// inputs always yield the same key. The function is total; malformed or empty
// inputs degrade to empty components rather than erroring.
func TrackKey(title, artist string, durationSeconds int) string {
	return fmt.Sprintf("%s|%s|%d", NormalizeField(title), NormalizeField(artist), bucketDuration(durationSeconds))
}

// NormalizeField case-folds a title or artist, strips accents and punctuation,
// and collapses whitespace runs to single spaces.
func NormalizeField(s string) string {
	folded, _, err := transform.String(accentFolder, s)
	if err != nil {
		// Fold failures leave the input untouched; lowercasing still applies.
		folded = s
	}

	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// bucketDuration maps a duration in seconds to its bucket index.
// Negative durations clamp to zero so the key stays producible.
func bucketDuration(seconds int) int {
	if seconds < 0 {
		seconds = 0
	}
	return seconds / durationBucketSeconds
}
