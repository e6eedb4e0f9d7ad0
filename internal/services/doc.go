// Package services implements the playlist-source collaborators.
//
// A [Source] resolves a registered playlist's opaque source reference into an
// ordered track list. Pagination is handled internally; callers always see a
// single logical sequence.
//
// # Implementations
//
//   - [SpotifySource] : Spotify Web API with the client-credentials flow
//   - [YouTubeSource] : yt-dlp flat-playlist extraction
//
// # Failure semantics
//
// Sources fail with [shared.ErrSourceUnavailable] (auth or network trouble) or
// [shared.ErrPlaylistNotFound] (bad reference). Either aborts the affected
// playlist's sync; per-track download errors are out of scope here.
package services
