package institution

import (
	"database/sql"
	"time"
)

// Institution is the author entity behind a note. The portal manages these
// records; this service reads them for batch selection and URL construction.
type Institution struct {
	ID              int64
	Slug            string
	Name            string
	Abbreviation    sql.NullString
	LogoURL         sql.NullString
	FacebookPageURL sql.NullString // channel URL for the Facebook platform
	PublicationHour sql.NullInt64  // operational hour-of-day 0-23, NULL means unset
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
