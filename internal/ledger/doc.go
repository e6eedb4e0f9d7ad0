// package ledger provides the persistence layer: the completion ledger and the
// playlist registry, both backed by SQLite.
//
// The completion ledger maps a playlist ID to the set of track keys already
// materialized on disk. Commits are serialized and durable before returning, so
// a crash immediately after Commit never loses the record, and a crash mid-sync
// loses at most the in-flight job's completions.
package ledger
