// internal/domain/schedule/cursor.go
package schedule

import (
	"database/sql"
	"time"
)

// Cursor holds the last assigned slot for one destination. It is the only
// shared mutable state in the distribution core: the scheduler reads it,
// computes the next slot and writes it back under a compare-and-swap update,
// so slots stay strictly increasing and minimum-spaced per destination.
type Cursor struct {
	DestinationID  string
	LastAssignedAt sql.NullTime // zero value means no post assigned yet
	UpdatedAt      time.Time
}
