package content

import (
	"github.com/roofix-au/siteserver/internal/store"
)

// Collection keys form a closed set; nothing request-derived reaches them.
const (
	CollectionServices     = "services"
	CollectionProjects     = "projects"
	CollectionTestimonials = "testimonials"
)

// Page keys are the singleton document ids the public site reads.
const (
	PageHome    = "home"
	PageAbout   = "about"
	PageContact = "contact"
)

// parser shapes one raw record into a typed entity. A false return means
// the record is malformed for its collection and gets dropped, not surfaced
// as an error.
type parser func(store.Record) (Entity, bool)

var parsers = map[string]parser{
	CollectionServices:     parseService,
	CollectionProjects:     parseProject,
	CollectionTestimonials: parseTestimonial,
}

func parseService(r store.Record) (Entity, bool) {
	slug, title := str(r, "slug"), str(r, "title")
	if slug == "" || title == "" {
		return nil, false
	}
	return Service{
		ID:      r.ID(),
		Slug:    slug,
		Title:   title,
		Summary: str(r, "summary"),
		Icon:    str(r, "icon"),
		Order:   num(r, "order"),
	}, true
}

func parseProject(r store.Record) (Entity, bool) {
	slug, title := str(r, "slug"), str(r, "title")
	if slug == "" || title == "" {
		return nil, false
	}
	return Project{
		ID:       r.ID(),
		Slug:     slug,
		Title:    title,
		Location: str(r, "location"),
		Summary:  str(r, "summary"),
		Images:   strs(r, "images"),
		Order:    num(r, "order"),
	}, true
}

func parseTestimonial(r store.Record) (Entity, bool) {
	name, quote := str(r, "name"), str(r, "quote")
	if name == "" || quote == "" {
		return nil, false
	}
	return Testimonial{
		ID:     r.ID(),
		Name:   name,
		Quote:  quote,
		Suburb: str(r, "suburb"),
		Rating: int(num0(r, "rating")),
		Order:  num(r, "order"),
	}, true
}

func str(r store.Record, key string) string {
	s, _ := r[key].(string)
	return s
}

// num reads a numeric field, orderLast when absent or non-numeric.
func num(r store.Record, key string) float64 {
	if f, ok := asFloat(r[key]); ok {
		return f
	}
	return orderLast
}

func num0(r store.Record, key string) float64 {
	f, _ := asFloat(r[key])
	return f
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func strs(r store.Record, key string) []string {
	raw, ok := r[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
