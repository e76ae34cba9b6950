package note

import (
	"database/sql"
	"time"
)

// Note is a press release authored by an institution. Once Published is set
// the content is immutable as far as distribution is concerned; this service
// only ever reads notes, it never writes them.
type Note struct {
	ID            int64
	Title         string
	Summary       sql.NullString // optional editor-written summary, falls back to Title
	Slug          string
	InstitutionID int64
	Published     bool
	PublishedAt   sql.NullTime
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
