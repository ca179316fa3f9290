// Package content serves site copy out of a short-TTL read-through cache
// in front of the document store.
//
// Cached values are immutable snapshots replaced wholesale; an admin write
// becomes visible on this instance via InvalidateAll before the write is
// acknowledged. Invalidation is instance-local: horizontally scaled
// replicas keep serving their own cached copies until their TTLs lapse.
// That staleness window is a known limitation, not a bug.
package content

import "math"

// orderLast sorts records without an explicit order after every ordered one.
const orderLast = math.MaxFloat64

// Entity is one validated record of a named collection.
type Entity interface {
	// EntityID is the record identifier, the stable sort tie-breaker.
	EntityID() string
	// Position is the admin-assigned ordering, orderLast when unset.
	Position() float64
}

type Service struct {
	ID      string  `json:"id"`
	Slug    string  `json:"slug"`
	Title   string  `json:"title"`
	Summary string  `json:"summary,omitempty"`
	Icon    string  `json:"icon,omitempty"`
	Order   float64 `json:"-"`
}

func (s Service) EntityID() string  { return s.ID }
func (s Service) Position() float64 { return s.Order }

type Project struct {
	ID       string   `json:"id"`
	Slug     string   `json:"slug"`
	Title    string   `json:"title"`
	Location string   `json:"location,omitempty"`
	Summary  string   `json:"summary,omitempty"`
	Images   []string `json:"images,omitempty"`
	Order    float64  `json:"-"`
}

func (p Project) EntityID() string  { return p.ID }
func (p Project) Position() float64 { return p.Order }

type Testimonial struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Quote  string  `json:"quote"`
	Suburb string  `json:"suburb,omitempty"`
	Rating int     `json:"rating,omitempty"`
	Order  float64 `json:"-"`
}

func (t Testimonial) EntityID() string  { return t.ID }
func (t Testimonial) Position() float64 { return t.Order }
