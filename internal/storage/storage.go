// Package storage defines the persistence contract shared by the catalog and
// enrollment services. Implementations live in the postgres and memory
// subpackages.
package storage

import (
	"context"
	"errors"

	catalog "github.com/portalacademico/portal-backend/internal/catalog/domain"
	enrollment "github.com/portalacademico/portal-backend/internal/enrollment/domain"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConstraintViolation is returned when a write breaks a uniqueness rule:
	// a duplicate course code or a second non-cancelled enrollment for the
	// same (course, student) pair.
	ErrConstraintViolation = errors.New("constraint violation")
)

// Scope names the exclusion zone taken by Atomically. A zero CourseID or an
// empty StudentID leaves that dimension unlocked.
type Scope struct {
	CourseID  int64
	StudentID string
}

// EnrollmentFilter selects enrollments for listing. Zero fields match all.
type EnrollmentFilter struct {
	CourseID  int64
	StudentID string
}

type CourseReader interface {
	FindCourseByID(ctx context.Context, id int64) (catalog.Course, error)
	// FindActiveCourses returns active courses ordered by name.
	FindActiveCourses(ctx context.Context) ([]catalog.Course, error)
	// ListCourses returns every course, active or not, ordered by name.
	ListCourses(ctx context.Context) ([]catalog.Course, error)
}

type CourseWriter interface {
	CreateCourse(ctx context.Context, c catalog.Course) (catalog.Course, error)
	UpdateCourse(ctx context.Context, c catalog.Course) error
	// SetCourseActive reports whether the flag actually changed.
	SetCourseActive(ctx context.Context, id int64, active bool) (bool, error)
}

type EnrollmentReader interface {
	FindEnrollmentByID(ctx context.Context, id int64) (enrollment.Enrollment, error)
	// CountEnrollments counts a course's enrollments in any of states, or all
	// of them when states is empty.
	CountEnrollments(ctx context.Context, courseID int64, states ...enrollment.State) (int, error)
	HasEnrollment(ctx context.Context, courseID int64, studentID string, excluding ...enrollment.State) (bool, error)
	// StudentCourses returns the courses the student holds an enrollment in,
	// skipping enrollments in the excluded states.
	StudentCourses(ctx context.Context, studentID string, excluding ...enrollment.State) ([]catalog.Course, error)
	// ListEnrollments returns matching enrollments with Course populated,
	// newest registration first.
	ListEnrollments(ctx context.Context, f EnrollmentFilter) ([]enrollment.Enrollment, error)
}

type EnrollmentWriter interface {
	InsertEnrollment(ctx context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error)
	UpdateEnrollmentState(ctx context.Context, id int64, state enrollment.State) error
}

// Queries is the set of operations available both on a Store and inside an
// Atomically callback.
type Queries interface {
	CourseReader
	CourseWriter
	EnrollmentReader
	EnrollmentWriter
}

type Store interface {
	Queries
	// Atomically runs fn inside a transaction holding the locks named by
	// scope. Writes made through q are committed when fn returns nil and
	// discarded otherwise, including when ctx ends first.
	Atomically(ctx context.Context, scope Scope, fn func(q Queries) error) error
	Ping(ctx context.Context) error
}
