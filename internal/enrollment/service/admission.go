package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	catalog "github.com/portalacademico/portal-backend/internal/catalog/domain"
	"github.com/portalacademico/portal-backend/internal/enrollment/domain"
	applog "github.com/portalacademico/portal-backend/internal/logger"
	"github.com/portalacademico/portal-backend/internal/storage"
)

// AdmissionEngine decides enrollment requests. It always reads the store,
// never the catalog cache.
type AdmissionEngine struct {
	store storage.Store
	log   *zap.Logger
	now   func() time.Time
}

func NewAdmissionEngine(store storage.Store, log *zap.Logger) *AdmissionEngine {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdmissionEngine{store: store, log: log.Named("admission"), now: time.Now}
}

// Enroll admits studentID into courseID as a Pending enrollment.
//
// Checks run in order: the course is active, the student holds no live
// enrollment in it, a seat is free and no other live enrollment of the
// student overlaps its slot. They run once without locks to reject early, and
// again under the course and student locks right before the insert.
func (e *AdmissionEngine) Enroll(ctx context.Context, courseID int64, studentID string) (domain.Enrollment, error) {
	if _, err := admissible(ctx, e.store, courseID, studentID); err != nil {
		return domain.Enrollment{}, e.reject(ctx, err, courseID, studentID)
	}

	var created domain.Enrollment
	err := e.store.Atomically(ctx, storage.Scope{CourseID: courseID, StudentID: studentID}, func(q storage.Queries) error {
		course, err := admissible(ctx, q, courseID, studentID)
		if err != nil {
			return err
		}

		created, err = q.InsertEnrollment(ctx, domain.Enrollment{
			CourseID:     courseID,
			StudentID:    studentID,
			RegisteredAt: e.now().UTC(),
			State:        domain.StatePending,
		})
		if errors.Is(err, storage.ErrConstraintViolation) {
			return domain.ErrDuplicateOrRace
		}
		if err != nil {
			return fmt.Errorf("insert enrollment: %w", err)
		}
		created.Course = &course
		return nil
	})
	if err != nil {
		return domain.Enrollment{}, e.reject(ctx, err, courseID, studentID)
	}

	applog.For(ctx, e.log).Info("enrollment admitted",
		zap.Int64("enrollment_id", created.ID),
		zap.Int64("course_id", courseID),
		zap.String("student_id", studentID),
	)
	return created, nil
}

func (e *AdmissionEngine) reject(ctx context.Context, err error, courseID int64, studentID string) error {
	if domain.IsRejection(err) {
		applog.For(ctx, e.log).Info("enrollment rejected",
			zap.Int64("course_id", courseID),
			zap.String("student_id", studentID),
			zap.String("reason", err.Error()),
		)
	}
	return err
}

// admissible evaluates the admission rules against q and returns the course.
func admissible(ctx context.Context, q storage.Queries, courseID int64, studentID string) (catalog.Course, error) {
	course, err := q.FindCourseByID(ctx, courseID)
	if errors.Is(err, storage.ErrNotFound) {
		return catalog.Course{}, domain.ErrCourseNotFound
	}
	if err != nil {
		return catalog.Course{}, fmt.Errorf("find course %d: %w", courseID, err)
	}
	if !course.Active {
		return catalog.Course{}, domain.ErrCourseNotFound
	}

	enrolled, err := q.HasEnrollment(ctx, courseID, studentID, domain.StateCancelled)
	if err != nil {
		return catalog.Course{}, fmt.Errorf("check enrollment: %w", err)
	}
	if enrolled {
		return catalog.Course{}, domain.ErrAlreadyEnrolled
	}

	taken, err := q.CountEnrollments(ctx, courseID, domain.Holding...)
	if err != nil {
		return catalog.Course{}, fmt.Errorf("count enrollments: %w", err)
	}
	if taken >= course.Capacity {
		return catalog.Course{}, domain.ErrCapacityExceeded
	}

	held, err := q.StudentCourses(ctx, studentID, domain.StateCancelled)
	if err != nil {
		return catalog.Course{}, fmt.Errorf("load student schedule: %w", err)
	}
	for _, other := range held {
		if other.ID != course.ID && course.Overlaps(other) {
			return catalog.Course{}, &domain.ScheduleConflictError{With: other}
		}
	}

	return course, nil
}
