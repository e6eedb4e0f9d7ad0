package ledger

import (
	"errors"
	"testing"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/shared"
	helpers "github.com/desertthunder/plsync/internal/testing"
)

func newTestPlaylist(label string) *models.Playlist {
	return &models.Playlist{
		Provider:  models.ProviderSpotify,
		SourceRef: "https://open.spotify.com/playlist/" + label,
		Label:     label,
	}
}

func TestRegistryCreateAndGet(t *testing.T) {
	r := NewPlaylistRegistry(helpers.MustOpenDB(t))

	playlist := newTestPlaylist("gym")
	if err := r.Create(playlist); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if playlist.ID == "" {
		t.Fatal("Create() must assign an ID")
	}
	if playlist.Sequence != 1 {
		t.Errorf("Sequence = %d, want 1", playlist.Sequence)
	}

	got, err := r.Get(playlist.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Label != "gym" || got.Provider != models.ProviderSpotify {
		t.Errorf("Get() = %+v", got)
	}
}

func TestRegistryGetByLabel(t *testing.T) {
	r := NewPlaylistRegistry(helpers.MustOpenDB(t))

	if err := r.Create(newTestPlaylist("focus")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := r.GetByLabel("focus")
	if err != nil {
		t.Fatalf("GetByLabel() error = %v", err)
	}
	if got.Label != "focus" {
		t.Errorf("GetByLabel() = %+v", got)
	}

	if _, err := r.GetByLabel("nope"); !errors.Is(err, shared.ErrPlaylistNotFound) {
		t.Errorf("expected ErrPlaylistNotFound, got %v", err)
	}
}

func TestRegistryResolve(t *testing.T) {
	r := NewPlaylistRegistry(helpers.MustOpenDB(t))

	playlist := newTestPlaylist("evening")
	if err := r.Create(playlist); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	byLabel, err := r.Resolve("evening")
	if err != nil {
		t.Fatalf("Resolve(label) error = %v", err)
	}
	byID, err := r.Resolve(playlist.ID)
	if err != nil {
		t.Fatalf("Resolve(id) error = %v", err)
	}
	if byLabel.ID != byID.ID {
		t.Error("Resolve must find the same playlist by label and by ID")
	}
}

func TestRegistryList(t *testing.T) {
	r := NewPlaylistRegistry(helpers.MustOpenDB(t))

	for _, label := range []string{"first", "second", "third"} {
		if err := r.Create(newTestPlaylist(label)); err != nil {
			t.Fatalf("Create(%s) error = %v", label, err)
		}
	}

	playlists, err := r.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(playlists) != 3 {
		t.Fatalf("List() returned %d playlists, want 3", len(playlists))
	}
	for i, want := range []string{"first", "second", "third"} {
		if playlists[i].Label != want {
			t.Errorf("playlists[%d].Label = %q, want %q", i, playlists[i].Label, want)
		}
	}
}

func TestRegistryDelete(t *testing.T) {
	r := NewPlaylistRegistry(helpers.MustOpenDB(t))

	playlist := newTestPlaylist("temp")
	if err := r.Create(playlist); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := r.Delete(playlist.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := r.Get(playlist.ID); !errors.Is(err, shared.ErrPlaylistNotFound) {
		t.Errorf("expected ErrPlaylistNotFound after delete, got %v", err)
	}

	if err := r.Delete(playlist.ID); err == nil {
		t.Error("expected error deleting missing playlist")
	}
}

func TestRegistryCreateInvalid(t *testing.T) {
	r := NewPlaylistRegistry(helpers.MustOpenDB(t))

	bad := &models.Playlist{Provider: "tape-deck", SourceRef: "x", Label: "y"}
	if err := r.Create(bad); err == nil {
		t.Error("expected validation error")
	}
}
