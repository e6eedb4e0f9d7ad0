package media

import (
	"fmt"

	"github.com/bogem/id3v2"
	"github.com/desertthunder/plsync/internal/models"
)

// Tagger writes ID3v2 metadata onto converted audio files.
type Tagger struct{}

// NewTagger creates a Tagger.
func NewTagger() *Tagger {
	return &Tagger{}
}

// WriteTags stamps title and artist frames onto the file at path.
//
// Tag failures are reported but treated by callers as warnings; the audio file
// is already complete and committed.
func (t *Tagger) WriteTags(path string, track models.Track) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open %s for tagging: %w", path, err)
	}
	defer tag.Close()

	tag.SetTitle(track.Title)
	tag.SetArtist(track.Artist)

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save tags to %s: %w", path, err)
	}
	return nil
}
