package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/portalacademico/portal-backend/internal/enrollment/domain"
	applog "github.com/portalacademico/portal-backend/internal/logger"
	"github.com/portalacademico/portal-backend/internal/storage"
)

// ConfirmationWorkflow moves enrollments out of Pending on a coordinator's
// decision. Confirmation counts only Confirmed seats, unlike admission, which
// counts every live enrollment.
type ConfirmationWorkflow struct {
	store storage.Store
	log   *zap.Logger
}

func NewConfirmationWorkflow(store storage.Store, log *zap.Logger) *ConfirmationWorkflow {
	if log == nil {
		log = zap.NewNop()
	}
	return &ConfirmationWorkflow{store: store, log: log.Named("confirmation")}
}

func (w *ConfirmationWorkflow) Confirm(ctx context.Context, id int64) (domain.Enrollment, error) {
	en, err := w.find(ctx, w.store, id)
	if err != nil {
		return domain.Enrollment{}, err
	}

	err = w.store.Atomically(ctx, storage.Scope{CourseID: en.CourseID}, func(q storage.Queries) error {
		cur, err := w.find(ctx, q, id)
		if err != nil {
			return err
		}
		if cur.State != domain.StatePending {
			return fmt.Errorf("%w: enrollment is %s", domain.ErrInvalidState, cur.State)
		}

		course, err := q.FindCourseByID(ctx, cur.CourseID)
		if err != nil {
			return fmt.Errorf("find course %d: %w", cur.CourseID, err)
		}
		confirmed, err := q.CountEnrollments(ctx, cur.CourseID, domain.StateConfirmed)
		if err != nil {
			return fmt.Errorf("count confirmed: %w", err)
		}
		if confirmed >= course.Capacity {
			return domain.ErrCapacityExceeded
		}

		if err := q.UpdateEnrollmentState(ctx, id, domain.StateConfirmed); err != nil {
			return fmt.Errorf("confirm enrollment %d: %w", id, err)
		}
		en = cur
		en.State = domain.StateConfirmed
		return nil
	})
	if err != nil {
		return domain.Enrollment{}, err
	}

	applog.For(ctx, w.log).Info("enrollment confirmed", zap.Int64("enrollment_id", id), zap.Int64("course_id", en.CourseID))
	return en, nil
}

// Cancel frees the seat. Cancelling a cancelled enrollment succeeds without
// writing.
func (w *ConfirmationWorkflow) Cancel(ctx context.Context, id int64) (domain.Enrollment, error) {
	en, err := w.find(ctx, w.store, id)
	if err != nil {
		return domain.Enrollment{}, err
	}
	if en.State == domain.StateCancelled {
		return en, nil
	}

	err = w.store.Atomically(ctx, storage.Scope{CourseID: en.CourseID}, func(q storage.Queries) error {
		cur, err := w.find(ctx, q, id)
		if err != nil {
			return err
		}
		en = cur
		if cur.State == domain.StateCancelled {
			return nil
		}
		if err := q.UpdateEnrollmentState(ctx, id, domain.StateCancelled); err != nil {
			return fmt.Errorf("cancel enrollment %d: %w", id, err)
		}
		en.State = domain.StateCancelled
		return nil
	})
	if err != nil {
		return domain.Enrollment{}, err
	}

	applog.For(ctx, w.log).Info("enrollment cancelled", zap.Int64("enrollment_id", id), zap.Int64("course_id", en.CourseID))
	return en, nil
}

func (w *ConfirmationWorkflow) find(ctx context.Context, q storage.EnrollmentReader, id int64) (domain.Enrollment, error) {
	en, err := q.FindEnrollmentByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Enrollment{}, domain.ErrEnrollmentNotFound
	}
	if err != nil {
		return domain.Enrollment{}, fmt.Errorf("find enrollment %d: %w", id, err)
	}
	return en, nil
}
