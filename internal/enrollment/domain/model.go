package domain

import (
	"time"

	catalog "github.com/portalacademico/portal-backend/internal/catalog/domain"
)

// State is the lifecycle state of an enrollment.
type State string

const (
	StatePending   State = "pending"
	StateConfirmed State = "confirmed"
	StateCancelled State = "cancelled"
)

// Holding lists the states that occupy a seat when a student enrolls.
var Holding = []State{StatePending, StateConfirmed}

func (s State) Valid() bool {
	switch s {
	case StatePending, StateConfirmed, StateCancelled:
		return true
	}
	return false
}

// Enrollment links a student to a course. Rows are never deleted; cancelling
// one frees the seat and allows the student to enroll again.
type Enrollment struct {
	ID           int64           `json:"id"`
	CourseID     int64           `json:"course_id"`
	StudentID    string          `json:"student_id"`
	RegisteredAt time.Time       `json:"registered_at"`
	State        State           `json:"state"`
	Course       *catalog.Course `json:"course,omitempty"`
}
