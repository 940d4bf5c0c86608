package service

import (
	"context"
	"errors"
	"fmt"

	catalog "github.com/portalacademico/portal-backend/internal/catalog/domain"
	"github.com/portalacademico/portal-backend/internal/enrollment/domain"
	"github.com/portalacademico/portal-backend/internal/storage"
)

type QueryStore interface {
	storage.CourseReader
	storage.EnrollmentReader
}

// CourseRoster is one course with its enrollments, newest first.
type CourseRoster struct {
	Course      *catalog.Course     `json:"course"`
	Enrollments []domain.Enrollment `json:"enrollments"`
}

type EnrollmentQuery struct {
	store QueryStore
}

func NewEnrollmentQuery(store QueryStore) *EnrollmentQuery {
	return &EnrollmentQuery{store: store}
}

// ListByCourse returns the roster of courseID. A zero courseID selects the
// first course by name; with no courses at all the roster is empty.
func (s *EnrollmentQuery) ListByCourse(ctx context.Context, courseID int64) (CourseRoster, error) {
	var course catalog.Course
	if courseID == 0 {
		courses, err := s.store.ListCourses(ctx)
		if err != nil {
			return CourseRoster{}, fmt.Errorf("list courses: %w", err)
		}
		if len(courses) == 0 {
			return CourseRoster{Enrollments: []domain.Enrollment{}}, nil
		}
		course = courses[0]
	} else {
		c, err := s.store.FindCourseByID(ctx, courseID)
		if errors.Is(err, storage.ErrNotFound) {
			return CourseRoster{}, domain.ErrCourseNotFound
		}
		if err != nil {
			return CourseRoster{}, fmt.Errorf("find course %d: %w", courseID, err)
		}
		course = c
	}

	list, err := s.store.ListEnrollments(ctx, storage.EnrollmentFilter{CourseID: course.ID})
	if err != nil {
		return CourseRoster{}, fmt.Errorf("list enrollments: %w", err)
	}
	if list == nil {
		list = []domain.Enrollment{}
	}
	return CourseRoster{Course: &course, Enrollments: list}, nil
}

// ListByStudent returns every enrollment of the student, newest first.
func (s *EnrollmentQuery) ListByStudent(ctx context.Context, studentID string) ([]domain.Enrollment, error) {
	list, err := s.store.ListEnrollments(ctx, storage.EnrollmentFilter{StudentID: studentID})
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	if list == nil {
		list = []domain.Enrollment{}
	}
	return list, nil
}
