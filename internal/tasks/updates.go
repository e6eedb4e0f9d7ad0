package tasks

import (
	"fmt"

	"github.com/desertthunder/plsync/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchSource Phase = iota
	Compare
	JobStart
	JobRetry
	JobResult
	Summary
)

func (p Phase) String() string {
	switch p {
	case FetchSource:
		return "fetch_source"
	case Compare:
		return "compare"
	case JobStart:
		return "job_start"
	case JobRetry:
		return "job_retry"
	case JobResult:
		return "job_result"
	case Summary:
		return "summary"
	default:
		return ""
	}
}

func fetchSourceUpdate(pl models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching track listing for %s from %s...", pl.Label, pl.Provider),
	}
}

func compareUpdate(total, alreadyDone, queued int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Compare,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("%d tracks listed, %d already synced, %d to fetch", total, alreadyDone, queued),
	}
}

func jobStartUpdate(step, total int, tr models.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   JobStart,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s - %s", step, total, tr.Artist, tr.Title),
	}
}

func jobRetryUpdate(step, total, attempt int, tr models.Track, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   JobRetry,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Retrying %s - %s (attempt %d): %v", step, total, tr.Artist, tr.Title, attempt, err),
	}
}

func jobSucceededUpdate(step, total int, tr models.Track, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   JobResult,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s - %s", step, total, tr.Artist, tr.Title),
		Data:    path,
	}
}

func jobFailedUpdate(step, total int, tr models.Track, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   JobResult,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s - %s: %v", step, total, tr.Artist, tr.Title, err),
	}
}

func summaryUpdate(s *SyncSummary) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Summary,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Synced %s: %d succeeded, %d failed, %d already done", s.Playlist.Label, s.Succeeded, s.Failed, s.AlreadyDone),
		Data:    s,
	}
}
