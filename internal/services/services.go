package services

import (
	"context"
	"fmt"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/shared"
)

// Source defines the interface for playlist providers that can list tracks.
type Source interface {
	// ListTracks resolves a playlist reference into its ordered track list.
	// Pagination is handled internally; the result is a single logical sequence.
	ListTracks(ctx context.Context, ref string) ([]models.Track, error)

	// Provider returns the provider tag this source serves.
	Provider() models.Provider
}

// Resolver maps a provider tag to the source that serves it.
// The mapping is fixed once constructed; dispatch happens per playlist, not per call.
type Resolver struct {
	sources map[models.Provider]Source
}

// NewResolver builds a Resolver from the given sources.
func NewResolver(sources ...Source) *Resolver {
	m := make(map[models.Provider]Source, len(sources))
	for _, s := range sources {
		m[s.Provider()] = s
	}
	return &Resolver{sources: m}
}

// For returns the source serving the given provider.
func (r *Resolver) For(provider models.Provider) (Source, error) {
	s, ok := r.sources[provider]
	if !ok {
		return nil, fmt.Errorf("%w: no source configured for provider %q", shared.ErrSourceUnavailable, provider)
	}
	return s, nil
}
