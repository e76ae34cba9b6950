// internal/domain/schedule/record.go
package schedule

import (
	"database/sql"
	"time"
)

// Status is the delivery state of a schedule record.
type Status string

const (
	StatusPending   Status = "PENDING"   // attempt started, adapter not yet answered
	StatusScheduled Status = "SCHEDULED" // destination accepted the post for the slot
	StatusFailed    Status = "FAILED"    // adapter reported failure; retryable via backfill
	StatusSkipped   Status = "SKIPPED"   // configuration gap, never reached the adapter
)

// Record tracks one scheduling attempt for a (note, destination) pair.
// Corresponds to the 'schedule_records' table. The invariant enforced by the
// scheduler and by the partial unique index in migration 001 is that at most
// one non-failed record exists per pair.
type Record struct {
	ID             int64
	NoteID         int64
	DestinationID  string
	ScheduledFor   sql.NullTime // instant the post goes live on the platform
	Status         Status
	LastError      sql.NullString
	PlatformPostID sql.NullString
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
