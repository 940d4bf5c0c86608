package domain

import "strings"

// Course is a catalog entry. Courses are never removed once created; Active=false
// hides them from the catalog and from enrollment.
type Course struct {
	ID       int64     `json:"id" msgpack:"id"`
	Code     string    `json:"code" msgpack:"code"`
	Name     string    `json:"name" msgpack:"name"`
	Credits  int       `json:"credits" msgpack:"credits"`
	Capacity int       `json:"capacity" msgpack:"capacity"`
	Start    TimeOfDay `json:"start_time" msgpack:"start"`
	End      TimeOfDay `json:"end_time" msgpack:"end"`
	Active   bool      `json:"active" msgpack:"active"`
}

// Overlaps reports whether the two half-open [Start, End) slots intersect.
// Touching slots (one ends when the other starts) do not overlap.
func (c Course) Overlaps(other Course) bool {
	return c.Start < other.End && c.End > other.Start
}

// CourseInput carries the editable fields of a course.
type CourseInput struct {
	Code     string    `json:"code" yaml:"code" validate:"required,max=10"`
	Name     string    `json:"name" yaml:"name" validate:"required,max=100"`
	Credits  int       `json:"credits" yaml:"credits" validate:"min=1,max=30"`
	Capacity int       `json:"capacity" yaml:"capacity" validate:"min=1,max=1000"`
	Start    TimeOfDay `json:"start_time" yaml:"start_time" validate:"min=0,max=1439"`
	End      TimeOfDay `json:"end_time" yaml:"end_time" validate:"min=1,max=1440,gtfield=Start"`
	Active   *bool     `json:"active" yaml:"active"`
}

// Normalize trims whitespace and upper-cases the code.
func (in *CourseInput) Normalize() {
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	in.Name = strings.TrimSpace(in.Name)
}

// Apply copies the input onto c. Active is only changed when the input sets it.
func (in CourseInput) Apply(c *Course) {
	c.Code = in.Code
	c.Name = in.Name
	c.Credits = in.Credits
	c.Capacity = in.Capacity
	c.Start = in.Start
	c.End = in.End
	if in.Active != nil {
		c.Active = *in.Active
	}
}
