// internal/domain/schedule/repository.go
package schedule

import (
	"context"
	"database/sql"
	"time"
)

// Repository defines persistence for schedule records and destination cursors.
// Records are append/update only; nothing is ever deleted, so the table doubles
// as the distribution audit trail.
type Repository interface {
	CreateRecord(ctx context.Context, r *Record) error
	UpdateRecord(ctx context.Context, r *Record) error
	// GetScheduled returns the SCHEDULED record for the pair, or
	// ErrRecordNotFound. This is the idempotency lookup.
	GetScheduled(ctx context.Context, noteID int64, destinationID string) (*Record, error)
	// GetLive returns the record currently occupying the pair's unique slot
	// (PENDING or SCHEDULED), or ErrRecordNotFound. Used to inspect the pair
	// after a duplicate-record conflict.
	GetLive(ctx context.Context, noteID int64, destinationID string) (*Record, error)
	// ListByNote returns every attempt for a note ordered oldest first.
	ListByNote(ctx context.Context, noteID int64) ([]*Record, error)

	// GetCursor returns the cursor for a destination, or ErrCursorNotFound if
	// no post was ever assigned to it.
	GetCursor(ctx context.Context, destinationID string) (*Cursor, error)
	// AdvanceCursor moves the cursor from prev to next. The update is
	// conditional on the stored value still being prev; a concurrent writer
	// surfaces as ErrCursorConflict.
	AdvanceCursor(ctx context.Context, destinationID string, prev sql.NullTime, next time.Time) error
}
