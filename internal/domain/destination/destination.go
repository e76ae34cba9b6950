package destination

import (
	"fmt"
	"time"
)

// Well-known destination identifiers. The registry is built from configuration
// so additional destinations need no code changes.
const (
	IDPrimary   = "primary"
	IDSecondary = "secondary"
)

var ErrUnknownDestination = fmt.Errorf("unknown destination")

// Destination is a social endpoint posts are scheduled to. Each destination
// carries its own credential and its own minimum inter-post spacing.
type Destination struct {
	ID          string
	PageID      string        // Facebook page identifier
	AccessToken string        // page access token
	MinGap      time.Duration // minimum spacing between consecutive posts
}

// Registry is the static table of configured destinations.
type Registry struct {
	destinations map[string]Destination
	order        []string
}

func NewRegistry(dests ...Destination) *Registry {
	r := &Registry{destinations: make(map[string]Destination, len(dests))}
	for _, d := range dests {
		if _, ok := r.destinations[d.ID]; !ok {
			r.order = append(r.order, d.ID)
		}
		r.destinations[d.ID] = d
	}
	return r
}

func (r *Registry) Get(id string) (Destination, error) {
	d, ok := r.destinations[id]
	if !ok {
		return Destination{}, fmt.Errorf("%w: %q", ErrUnknownDestination, id)
	}
	return d, nil
}

// All returns every configured destination in registration order.
func (r *Registry) All() []Destination {
	out := make([]Destination, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.destinations[id])
	}
	return out
}
