package domain

import (
	"fmt"
	"strings"
)

// Filter narrows the active-course catalog. Zero values mean "no constraint".
type Filter struct {
	Query      string
	CreditsMin *int
	CreditsMax *int
	StartFrom  *TimeOfDay
	EndUntil   *TimeOfDay
}

func (f Filter) Validate() error {
	for _, v := range []*int{f.CreditsMin, f.CreditsMax} {
		if v != nil && (*v < 0 || *v > 100) {
			return fmt.Errorf("%w: credits must be between 0 and 100", ErrInvalidFilter)
		}
	}
	if f.CreditsMin != nil && f.CreditsMax != nil && *f.CreditsMin > *f.CreditsMax {
		return fmt.Errorf("%w: credits range is inverted (min > max)", ErrInvalidFilter)
	}
	if f.StartFrom != nil && f.EndUntil != nil && *f.EndUntil < *f.StartFrom {
		return fmt.Errorf("%w: end_until is before start_from", ErrInvalidFilter)
	}
	return nil
}

// Match reports whether c satisfies every set constraint.
func (f Filter) Match(c Course) bool {
	if q := strings.TrimSpace(f.Query); q != "" {
		q = strings.ToLower(q)
		if !strings.Contains(strings.ToLower(c.Name), q) && !strings.Contains(strings.ToLower(c.Code), q) {
			return false
		}
	}
	if f.CreditsMin != nil && c.Credits < *f.CreditsMin {
		return false
	}
	if f.CreditsMax != nil && c.Credits > *f.CreditsMax {
		return false
	}
	if f.StartFrom != nil && c.Start < *f.StartFrom {
		return false
	}
	if f.EndUntil != nil && c.End > *f.EndUntil {
		return false
	}
	return true
}

// Apply returns the courses matching f, preserving order.
func (f Filter) Apply(courses []Course) []Course {
	out := make([]Course, 0, len(courses))
	for _, c := range courses {
		if f.Match(c) {
			out = append(out, c)
		}
	}
	return out
}
