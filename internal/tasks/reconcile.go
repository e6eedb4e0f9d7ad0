package tasks

import (
	"github.com/desertthunder/plsync/internal/identity"
	"github.com/desertthunder/plsync/internal/models"
)

// MissingTrack pairs a remote track with its computed identity key.
type MissingTrack struct {
	models.Track
	Key string
}

// Reconcile diffs the remote track listing against the set of completed keys
// and returns the tracks still to be fetched, preserving remote order.
//
// Two remote entries that normalize to the same key are treated as one track:
// the first occurrence is kept and later ones dropped, so a listing with
// duplicates never schedules the same download twice.
//
// Reconcile never mutates its inputs; completions are recorded only after a
// job finishes.
func Reconcile(tracks []models.Track, done map[string]struct{}) []MissingTrack {
	missing := make([]MissingTrack, 0, len(tracks))
	seen := make(map[string]struct{}, len(tracks))

	for _, tr := range tracks {
		key := identity.TrackKey(tr.Title, tr.Artist, tr.DurationSeconds)
		if _, ok := done[key]; ok {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		missing = append(missing, MissingTrack{Track: tr, Key: key})
	}

	return missing
}

// alreadyDone counts remote tracks whose key is present in the completion set.
func alreadyDone(tracks []models.Track, done map[string]struct{}) int {
	n := 0
	for _, tr := range tracks {
		if _, ok := done[identity.TrackKey(tr.Title, tr.Artist, tr.DurationSeconds)]; ok {
			n++
		}
	}
	return n
}
