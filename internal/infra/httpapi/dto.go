package httpapi

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"press_distributor/internal/app"
)

// NotifyRequest is the publish trigger payload sent by the portal when a note
// transitions to published.
type NotifyRequest struct {
	NoteSlug     string     `json:"note_slug"`
	Destination  string     `json:"destination,omitempty"`   // defaults to the configured destination
	VideoURL     string     `json:"video_url,omitempty"`     // media override
	OverrideTime *time.Time `json:"override_time,omitempty"` // manual recovery tooling only
}

func (r NotifyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.NoteSlug, validation.Required),
		validation.Field(&r.VideoURL, is.URL),
	)
}

// NotifyResponse is the success/failure envelope for the publish trigger.
type NotifyResponse struct {
	Success        bool       `json:"success"`
	Outcome        string     `json:"outcome,omitempty"`
	ScheduledTime  *time.Time `json:"scheduled_time,omitempty"`
	PlatformPostID string     `json:"platform_post_id,omitempty"`
	Error          string     `json:"error,omitempty"`
}

// BackfillRequest asks for a recovery scan of one destination.
type BackfillRequest struct {
	LookbackHours int    `json:"lookback_hours"`
	Destination   string `json:"destination"`
	Execute       bool   `json:"execute"` // false = dry run
}

func (r BackfillRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.LookbackHours, validation.Required, validation.Min(1), validation.Max(720)),
		validation.Field(&r.Destination, validation.Required),
	)
}

// BackfillResponse is the report returned by a backfill run (aliased from the
// application layer, which already carries JSON tags).
type BackfillResponse = app.BackfillReport

// SourcesResponse wraps the batch selector output.
type SourcesResponse struct {
	Sources []app.Source `json:"sources"`
}
