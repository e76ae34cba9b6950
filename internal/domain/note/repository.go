package note

import (
	"context"
	"time"
)

// Repository defines read-only access to notes. Content CRUD belongs to the
// portal; the distribution core only looks notes up for scheduling.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Note, error)
	GetBySlug(ctx context.Context, slug string) (*Note, error)
	// ListPublishedSince returns published notes created at or after the given
	// instant. Used by the backfill scanner to bound its lookback window.
	ListPublishedSince(ctx context.Context, since time.Time) ([]*Note, error)
}
