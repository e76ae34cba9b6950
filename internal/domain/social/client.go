package social

import "context"

// ScheduleRequest is the outbound payload for scheduling one post on a
// destination page. PublishAt is a unix timestamp because that is what the
// platform API expects for scheduled publishing.
type ScheduleRequest struct {
	Message     string
	LinkURL     string
	PageID      string
	AccessToken string
	PublishAt   int64
	VideoURL    string // optional media override; posts a video instead of a link card
}

// ScheduleResult carries the platform's identifier for the created post.
type ScheduleResult struct {
	PlatformPostID string
}

// Client defines an interface for scheduling posts on a social platform.
// This decouples the scheduler from the concrete Graph API transport; the
// implementation is treated as unreliable and side-effecting.
type Client interface {
	SchedulePost(ctx context.Context, req ScheduleRequest) (*ScheduleResult, error)
}
