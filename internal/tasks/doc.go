// Package tasks orchestrates incremental playlist-to-audio syncs with real-time progress reporting.
//
// # Core Operations
//
// [Engine.Sync] runs one full sync pass for a playlist:
//   - Fetches the remote track listing from the playlist's source
//   - Reconciles it against the completion ledger to find missing tracks
//   - Runs fetch → convert → tag → commit jobs through a bounded worker pool
//   - Retries transient failures with jittered exponential backoff
//
// [Engine.SyncAll] runs Sync over every tracked playlist sequentially; a
// playlist whose source listing cannot be fetched is skipped and recorded,
// never aborting the remaining playlists.
//
// # Progress Reporting
//
// All operations emit [ProgressUpdate] values over a caller-supplied channel.
// Updates use select with default so a slow or absent consumer never blocks
// the sync itself.
//
// # Crash Safety
//
// A track key is committed to the ledger only after its audio file is fully
// converted and in place, so an interrupted pass re-attempts at most the
// in-flight jobs on the next run.
package tasks
