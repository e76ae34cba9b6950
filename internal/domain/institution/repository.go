package institution

import "context"

// Repository defines read access to institutions.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Institution, error)
	// ListActiveByHour returns active institutions whose configured publication
	// hour equals the given hour. A nil hour applies no hour filter.
	ListActiveByHour(ctx context.Context, hour *int) ([]*Institution, error)
}
