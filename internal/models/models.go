package models

import (
	"fmt"
	"strings"
	"time"
)

// Provider identifies a playlist source. The set is closed; dispatch is decided
// once at playlist registration, not per call.
type Provider string

const (
	ProviderSpotify Provider = "spotify"
	ProviderYouTube Provider = "youtube"
)

// ParseProvider validates a provider tag string.
func ParseProvider(s string) (Provider, error) {
	switch Provider(strings.ToLower(s)) {
	case ProviderSpotify:
		return ProviderSpotify, nil
	case ProviderYouTube:
		return ProviderYouTube, nil
	default:
		return "", fmt.Errorf("unknown provider %q", s)
	}
}

// InferProvider determines the provider for a playlist URL.
func InferProvider(ref string) (Provider, error) {
	switch {
	case strings.Contains(ref, "spotify.com"):
		return ProviderSpotify, nil
	case strings.Contains(ref, "youtube.com"), strings.Contains(ref, "youtu.be"), strings.Contains(ref, "music.youtube.com"):
		return ProviderYouTube, nil
	default:
		return "", fmt.Errorf("cannot infer provider from %q", ref)
	}
}

// Track represents one song listed by a playlist source.
//
// Tracks are constructed when a playlist is listed, are immutable, and live only
// for the duration of one reconciliation pass. Only the normalized key derived
// from a track is persisted, via the completion ledger.
type Track struct {
	Title           string
	Artist          string
	DurationSeconds int
	SourcePlaylist  string // registered playlist ID this track was listed from
}

// Playlist is a registered playlist: a provider tag, an opaque source reference
// (URL or provider-native ID), and a user-facing label.
type Playlist struct {
	ID        string
	Sequence  int
	Provider  Provider
	SourceRef string
	Label     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the playlist's fields before persistence.
func (p *Playlist) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("playlist ID is required")
	}
	if _, err := ParseProvider(string(p.Provider)); err != nil {
		return err
	}
	if p.SourceRef == "" {
		return fmt.Errorf("playlist source reference is required")
	}
	if p.Label == "" {
		return fmt.Errorf("playlist label is required")
	}
	return nil
}
