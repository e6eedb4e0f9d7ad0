package ledger

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/plsync/internal/shared"
)

// Ledger records which track keys have been successfully materialized per playlist.
//
// Commit is safe to call concurrently from multiple job completions; writes are
// serialized internally. Keys are append-only during a sync pass and removed only
// by Remove (playlist untracked).
type Ledger struct {
	db *sql.DB
	mu sync.Mutex
}

// NewLedger creates a new Ledger over the given database connection.
func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Load returns the set of completed track keys for a playlist.
// Returns an empty set when no prior record exists.
func (l *Ledger) Load(playlistID string) (map[string]struct{}, error) {
	rows, err := l.db.Query("SELECT track_key FROM completions WHERE playlist_id = ?", playlistID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query completions: %v", shared.ErrLedgerIO, err)
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("%w: failed to scan completion: %v", shared.ErrLedgerIO, err)
		}
		keys[key] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: row iteration error: %v", shared.ErrLedgerIO, err)
	}

	return keys, nil
}

// Contains reports whether a track key is recorded for a playlist.
func (l *Ledger) Contains(playlistID, key string) (bool, error) {
	var exists bool
	err := l.db.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM completions WHERE playlist_id = ? AND track_key = ?)",
		playlistID, key,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: failed to check completion: %v", shared.ErrLedgerIO, err)
	}
	return exists, nil
}

// Commit durably records a completed track key and the file it produced.
// The write is synchronous: once Commit returns nil the record survives a crash.
// Committing an already-present key is a no-op.
func (l *Ledger) Commit(playlistID, key, filePath string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.db.Exec(
		"INSERT OR IGNORE INTO completions (playlist_id, track_key, file_path, created_at) VALUES (?, ?, ?, ?)",
		playlistID, key, filePath, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("%w: failed to insert completion: %v", shared.ErrLedgerIO, err)
	}
	return nil
}

// Remove clears all completion records for a playlist.
func (l *Ledger) Remove(playlistID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.db.Exec("DELETE FROM completions WHERE playlist_id = ?", playlistID); err != nil {
		return fmt.Errorf("%w: failed to delete completions: %v", shared.ErrLedgerIO, err)
	}
	return nil
}

// Count returns the number of completed tracks recorded for a playlist.
func (l *Ledger) Count(playlistID string) (int, error) {
	var count int
	err := l.db.QueryRow("SELECT COUNT(*) FROM completions WHERE playlist_id = ?", playlistID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to count completions: %v", shared.ErrLedgerIO, err)
	}
	return count, nil
}
