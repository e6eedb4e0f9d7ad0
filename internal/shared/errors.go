package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Playlist source errors; either aborts the affected playlist's sync
	ErrSourceUnavailable = fmt.Errorf("playlist source unavailable")
	ErrPlaylistNotFound  = fmt.Errorf("playlist not found")

	// Per-job errors; retried and then recorded against the track
	ErrNoMatch    = fmt.Errorf("no matching video found")
	ErrFetch      = fmt.Errorf("media fetch failed")
	ErrConversion = fmt.Errorf("audio conversion failed")
	ErrTimeout    = fmt.Errorf("operation timed out")
	ErrLedgerIO   = fmt.Errorf("ledger write failed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
