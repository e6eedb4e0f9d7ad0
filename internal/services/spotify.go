// Spotify Web API implementation of [Source]
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/shared"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// Spotify caps page size for playlist items at 100.
	spotifyPageLimit = 100
)

// spotifyToken is the client-credentials token response.
type spotifyToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	Name string `json:"name"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	DurationMS int             `json:"duration_ms"`
}

// SpotifyPlaylistItem represents a track within a playlist context.
type SpotifyPlaylistItem struct {
	Track *SpotifyTrack `json:"track"` // nil for removed/local-only entries
}

// SpotifyPaginatedItems represents one page of playlist items.
type SpotifyPaginatedItems struct {
	Items  []SpotifyPlaylistItem `json:"items"`
	Total  int                   `json:"total"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
	Next   *string               `json:"next"`
}

// SpotifySource implements [Source] for Spotify playlists using the
// client-credentials flow. Tokens are cached until shortly before expiry.
type SpotifySource struct {
	client       *resty.Client
	tokenURL     string
	clientID     string
	clientSecret string
	limiter      *rate.Limiter

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// SpotifyOpts overrides endpoints and rate limiting; zero values use production defaults.
type SpotifyOpts struct {
	BaseURL   string
	TokenURL  string
	RateLimit float64 // requests per second
}

// NewSpotifySource creates a SpotifySource with the given credentials.
func NewSpotifySource(clientID, clientSecret string, opts SpotifyOpts) *SpotifySource {
	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = spotifyTokenURL
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	client := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(0) // retries are owned by the caller, not the transport

	return &SpotifySource{
		client:       client,
		tokenURL:     opts.TokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		limiter:      rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
	}
}

// Provider returns [models.ProviderSpotify].
func (s *SpotifySource) Provider() models.Provider {
	return models.ProviderSpotify
}

// ListTracks fetches the playlist's full track list, following pagination.
func (s *SpotifySource) ListTracks(ctx context.Context, ref string) ([]models.Track, error) {
	playlistID, err := ExtractSpotifyPlaylistID(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrPlaylistNotFound, err)
	}

	var tracks []models.Track
	offset := 0

	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrSourceUnavailable, err)
		}

		page, err := s.fetchPage(ctx, playlistID, offset)
		if err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if item.Track == nil {
				continue
			}
			artist := ""
			if len(item.Track.Artists) > 0 {
				artist = item.Track.Artists[0].Name
			}
			tracks = append(tracks, models.Track{
				Title:           item.Track.Name,
				Artist:          artist,
				DurationSeconds: item.Track.DurationMS / 1000,
			})
		}

		if page.Next == nil || len(page.Items) == 0 {
			break
		}
		offset += len(page.Items)
	}

	return tracks, nil
}

// fetchPage retrieves one page of playlist items.
func (s *SpotifySource) fetchPage(ctx context.Context, playlistID string, offset int) (*SpotifyPaginatedItems, error) {
	token, err := s.token(ctx)
	if err != nil {
		return nil, err
	}

	var page SpotifyPaginatedItems
	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(map[string]string{
			"fields": "items(track(name,duration_ms,artists(name))),total,limit,offset,next",
			"limit":  fmt.Sprintf("%d", spotifyPageLimit),
			"offset": fmt.Sprintf("%d", offset),
		}).
		SetResult(&page).
		Get("/playlists/" + playlistID + "/tracks")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrSourceUnavailable, err)
	}

	switch {
	case resp.StatusCode() == 404:
		return nil, fmt.Errorf("%w: playlist %s", shared.ErrPlaylistNotFound, playlistID)
	case resp.IsError():
		return nil, fmt.Errorf("%w: spotify returned status %d", shared.ErrSourceUnavailable, resp.StatusCode())
	}

	return &page, nil
}

// token returns a valid access token, refreshing via the client-credentials
// flow when the cached one is missing or about to expire.
func (s *SpotifySource) token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accessToken != "" && time.Now().Before(s.tokenExpiry) {
		return s.accessToken, nil
	}

	if s.clientID == "" || s.clientSecret == "" {
		return "", fmt.Errorf("%w: spotify client credentials not configured", shared.ErrMissingCredentials)
	}

	var tok spotifyToken
	resp, err := s.client.R().
		SetContext(ctx).
		SetBasicAuth(s.clientID, s.clientSecret).
		SetFormData(map[string]string{"grant_type": "client_credentials"}).
		SetResult(&tok).
		Post(s.tokenURL)
	if err != nil {
		return "", fmt.Errorf("%w: token request failed: %v", shared.ErrSourceUnavailable, err)
	}
	if resp.IsError() || tok.AccessToken == "" {
		return "", fmt.Errorf("%w: token request returned status %d", shared.ErrSourceUnavailable, resp.StatusCode())
	}

	s.accessToken = tok.AccessToken
	// Refresh a minute early to avoid racing the expiry.
	s.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return s.accessToken, nil
}

// ExtractSpotifyPlaylistID extracts the playlist ID from a Spotify URL, URI, or
// bare ID.
func ExtractSpotifyPlaylistID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("empty playlist reference")
	}

	if strings.HasPrefix(ref, "spotify:playlist:") {
		return strings.TrimPrefix(ref, "spotify:playlist:"), nil
	}

	if strings.Contains(ref, "spotify.com") {
		u, err := url.Parse(ref)
		if err != nil {
			return "", fmt.Errorf("invalid playlist URL %q", ref)
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		for i, part := range parts {
			if part == "playlist" && i+1 < len(parts) {
				return parts[i+1], nil
			}
		}
		return "", fmt.Errorf("no playlist ID in URL %q", ref)
	}

	return ref, nil
}
