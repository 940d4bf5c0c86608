package domain

import (
	"errors"
	"fmt"

	catalog "github.com/portalacademico/portal-backend/internal/catalog/domain"
)

var (
	ErrCourseNotFound     = catalog.ErrCourseNotFound
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrAlreadyEnrolled    = errors.New("student is already enrolled in this course")
	ErrCapacityExceeded   = errors.New("course capacity exceeded")
	ErrScheduleConflict   = errors.New("schedule conflicts with another enrollment")
	ErrInvalidState       = errors.New("enrollment is not in a state that allows this transition")
	ErrDuplicateOrRace    = errors.New("enrollment was rejected by a concurrent request")
)

// ScheduleConflictError names the course whose slot collides with the request.
type ScheduleConflictError struct {
	With catalog.Course
}

func (e *ScheduleConflictError) Error() string {
	return fmt.Sprintf("%s: %s (%s-%s)", ErrScheduleConflict, e.With.Code, e.With.Start, e.With.End)
}

func (e *ScheduleConflictError) Unwrap() error { return ErrScheduleConflict }

// IsRejection reports whether err is a business rule rejection rather than an
// infrastructure failure.
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrCourseNotFound,
		ErrEnrollmentNotFound,
		ErrAlreadyEnrolled,
		ErrCapacityExceeded,
		ErrScheduleConflict,
		ErrInvalidState,
		ErrDuplicateOrRace,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
