package sync

import (
	"errors"
	"fmt"

	"github.com/tmuhq/tmusync/internal/models"
)

var (
	// ErrDetailsUnavailable means the primary details fetch failed; the save
	// aborts with no partial write.
	ErrDetailsUnavailable = errors.New("title details unavailable")

	// ErrIDConflict means the submitted provider id is already held by a
	// different local row. The conflict is surfaced, never resolved by
	// deleting either side.
	ErrIDConflict = errors.New("provider id conflict")
)

// ConflictError reports which local row already owns the provider id.
type ConflictError struct {
	Kind       models.EntityKind
	TMDBID     int64
	ExistingID int64
	AttemptID  int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s tmdb_id %d already belongs to local id %d (attempted by %d)",
		e.Kind, e.TMDBID, e.ExistingID, e.AttemptID)
}

func (e *ConflictError) Unwrap() error { return ErrIDConflict }
