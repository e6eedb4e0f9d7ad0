package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/shared"
)

// PlaylistRegistry persists the list of tracked playlists.
type PlaylistRegistry struct {
	db *sql.DB
}

// NewPlaylistRegistry creates a new PlaylistRegistry with the given database connection
func NewPlaylistRegistry(db *sql.DB) *PlaylistRegistry {
	return &PlaylistRegistry{db: db}
}

// nextSequence atomically increments and returns the next sequence number for playlists.
//
// Sequence numbers provide human-readable ordering (playlist #3). They are used
// for sorting, not exposed as identity.
func (r *PlaylistRegistry) nextSequence() (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("UPDATE playlists_sequence SET value = value + 1 WHERE id = 1"); err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	var sequence int
	if err := tx.QueryRow("SELECT value FROM playlists_sequence WHERE id = 1").Scan(&sequence); err != nil {
		return 0, fmt.Errorf("failed to get sequence value: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sequence transaction: %w", err)
	}

	return sequence, nil
}

// Create inserts a new playlist into the registry with a generated ID and sequence.
func (r *PlaylistRegistry) Create(playlist *models.Playlist) error {
	sequence, err := r.nextSequence()
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	playlist.ID = shared.GenerateID()
	playlist.Sequence = sequence
	now := time.Now()
	playlist.CreatedAt = now
	playlist.UpdatedAt = now

	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO playlists (id, sequence, provider, source_ref, label, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		playlist.ID,
		playlist.Sequence,
		string(playlist.Provider),
		playlist.SourceRef,
		playlist.Label,
		playlist.CreatedAt,
		playlist.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", err)
	}

	return nil
}

// Get retrieves a playlist by ID.
func (r *PlaylistRegistry) Get(id string) (*models.Playlist, error) {
	query := `
		SELECT id, sequence, provider, source_ref, label, created_at, updated_at
		FROM playlists
		WHERE id = ?
	`
	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByLabel retrieves a playlist by its user-facing label.
func (r *PlaylistRegistry) GetByLabel(label string) (*models.Playlist, error) {
	query := `
		SELECT id, sequence, provider, source_ref, label, created_at, updated_at
		FROM playlists
		WHERE label = ?
	`
	return r.scanOne(r.db.QueryRow(query, label))
}

// Resolve retrieves a playlist by label first, falling back to ID.
func (r *PlaylistRegistry) Resolve(labelOrID string) (*models.Playlist, error) {
	playlist, err := r.GetByLabel(labelOrID)
	if err == nil {
		return playlist, nil
	}
	if !errors.Is(err, shared.ErrPlaylistNotFound) {
		return nil, err
	}
	return r.Get(labelOrID)
}

// List retrieves all registered playlists ordered by sequence.
func (r *PlaylistRegistry) List() ([]*models.Playlist, error) {
	query := `
		SELECT id, sequence, provider, source_ref, label, created_at, updated_at
		FROM playlists
		ORDER BY sequence ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*models.Playlist
	for rows.Next() {
		playlist, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, playlist)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return playlists, nil
}

// Delete removes a playlist from the registry.
// Clearing the playlist's ledger records is the caller's responsibility.
func (r *PlaylistRegistry) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM playlists WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}

	return nil
}

// scanOne scans a single [sql.Row] into a [models.Playlist]
func (r *PlaylistRegistry) scanOne(row *sql.Row) (*models.Playlist, error) {
	var (
		playlist models.Playlist
		provider string
	)

	err := row.Scan(&playlist.ID, &playlist.Sequence, &provider, &playlist.SourceRef, &playlist.Label, &playlist.CreatedAt, &playlist.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, shared.ErrPlaylistNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	playlist.Provider = models.Provider(provider)
	return &playlist, nil
}

// scanRow scans a row from [sql.Rows] into a [models.Playlist]
func (r *PlaylistRegistry) scanRow(rows *sql.Rows) (*models.Playlist, error) {
	var (
		playlist models.Playlist
		provider string
	)

	err := rows.Scan(&playlist.ID, &playlist.Sequence, &provider, &playlist.SourceRef, &playlist.Label, &playlist.CreatedAt, &playlist.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	playlist.Provider = models.Provider(provider)
	return &playlist, nil
}
