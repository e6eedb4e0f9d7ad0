package services

import "testing"

func TestParseFlatPlaylist(t *testing.T) {
	data := []byte(`{
		"title": "My Mix",
		"entries": [
			{"title": "Artist X - Song A", "uploader": "someone", "duration": 181.2},
			{"title": "Plain Video Title", "channel": "Artist Y - Topic", "duration": 95},
			{"title": "[Deleted video]", "uploader": "", "duration": 0},
			{"title": "No Channel", "uploader": "UploaderZ", "duration": 60}
		]
	}`)

	tracks, err := parseFlatPlaylist(data)
	if err != nil {
		t.Fatalf("parseFlatPlaylist() error = %v", err)
	}
	if len(tracks) != 3 {
		t.Fatalf("len(tracks) = %d, want 3", len(tracks))
	}

	if tracks[0].Title != "Song A" || tracks[0].Artist != "Artist X" || tracks[0].DurationSeconds != 181 {
		t.Errorf("tracks[0] = %+v", tracks[0])
	}
	if tracks[1].Title != "Plain Video Title" || tracks[1].Artist != "Artist Y" {
		t.Errorf("tracks[1] = %+v", tracks[1])
	}
	if tracks[2].Artist != "UploaderZ" {
		t.Errorf("tracks[2] = %+v", tracks[2])
	}
}

func TestParseFlatPlaylistInvalidJSON(t *testing.T) {
	if _, err := parseFlatPlaylist([]byte("not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestParseFlatPlaylistPreservesOrder(t *testing.T) {
	data := []byte(`{"entries": [
		{"title": "A - 1", "duration": 10},
		{"title": "B - 2", "duration": 20},
		{"title": "C - 3", "duration": 30}
	]}`)

	tracks, err := parseFlatPlaylist(data)
	if err != nil {
		t.Fatalf("parseFlatPlaylist() error = %v", err)
	}
	for i, want := range []string{"1", "2", "3"} {
		if tracks[i].Title != want {
			t.Errorf("tracks[%d].Title = %q, want %q", i, tracks[i].Title, want)
		}
	}
}

func TestSplitVideoTitle(t *testing.T) {
	tc := []struct {
		name       string
		entry      flatEntry
		wantTitle  string
		wantArtist string
	}{
		{
			name:       "artist dash title",
			entry:      flatEntry{Title: "Daft Punk - Around the World"},
			wantTitle:  "Around the World",
			wantArtist: "Daft Punk",
		},
		{
			name:       "topic channel fallback",
			entry:      flatEntry{Title: "Around the World", Channel: "Daft Punk - Topic"},
			wantTitle:  "Around the World",
			wantArtist: "Daft Punk",
		},
		{
			name:      "private video skipped",
			entry:     flatEntry{Title: "[Private video]"},
			wantTitle: "",
		},
		{
			name:       "dash with empty side falls back",
			entry:      flatEntry{Title: "- Broken", Uploader: "Someone"},
			wantTitle:  "- Broken",
			wantArtist: "Someone",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			title, artist := splitVideoTitle(tt.entry)
			if title != tt.wantTitle || artist != tt.wantArtist {
				t.Errorf("splitVideoTitle() = (%q, %q), want (%q, %q)", title, artist, tt.wantTitle, tt.wantArtist)
			}
		})
	}
}
