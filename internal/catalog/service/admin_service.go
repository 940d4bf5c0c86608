package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/portalacademico/portal-backend/internal/catalog/domain"
	applog "github.com/portalacademico/portal-backend/internal/logger"
	"github.com/portalacademico/portal-backend/internal/storage"
)

type CourseStore interface {
	storage.CourseReader
	storage.CourseWriter
}

// Invalidator drops derived catalog state after a course mutation.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// CourseAdminService holds the coordinator's course operations. Every
// successful mutation invalidates the catalog cache.
type CourseAdminService struct {
	store   CourseStore
	catalog Invalidator
	log     *zap.Logger
}

func NewCourseAdminService(store CourseStore, catalog Invalidator, log *zap.Logger) *CourseAdminService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CourseAdminService{store: store, catalog: catalog, log: log.Named("course_admin")}
}

func (s *CourseAdminService) List(ctx context.Context) ([]domain.Course, error) {
	courses, err := s.store.ListCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

func (s *CourseAdminService) Create(ctx context.Context, in domain.CourseInput) (domain.Course, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return domain.Course{}, err
	}

	c := domain.Course{Active: true}
	in.Apply(&c)

	created, err := s.store.CreateCourse(ctx, c)
	if errors.Is(err, storage.ErrConstraintViolation) {
		return domain.Course{}, domain.ErrDuplicateCode
	}
	if err != nil {
		return domain.Course{}, fmt.Errorf("create course: %w", err)
	}

	s.catalog.Invalidate(ctx)
	applog.For(ctx, s.log).Info("course created", zap.Int64("course_id", created.ID), zap.String("code", created.Code))
	return created, nil
}

func (s *CourseAdminService) Update(ctx context.Context, id int64, in domain.CourseInput) (domain.Course, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return domain.Course{}, err
	}

	c, err := s.store.FindCourseByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Course{}, domain.ErrCourseNotFound
	}
	if err != nil {
		return domain.Course{}, fmt.Errorf("find course %d: %w", id, err)
	}
	in.Apply(&c)

	err = s.store.UpdateCourse(ctx, c)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return domain.Course{}, domain.ErrCourseNotFound
	case errors.Is(err, storage.ErrConstraintViolation):
		return domain.Course{}, domain.ErrDuplicateCode
	case err != nil:
		return domain.Course{}, fmt.Errorf("update course %d: %w", id, err)
	}

	s.catalog.Invalidate(ctx)
	applog.For(ctx, s.log).Info("course updated", zap.Int64("course_id", c.ID), zap.Bool("active", c.Active))
	return c, nil
}

// Deactivate hides the course from the catalog. It reports false, without
// touching the cache, when the course was already inactive.
func (s *CourseAdminService) Deactivate(ctx context.Context, id int64) (bool, error) {
	changed, err := s.store.SetCourseActive(ctx, id, false)
	if errors.Is(err, storage.ErrNotFound) {
		return false, domain.ErrCourseNotFound
	}
	if err != nil {
		return false, fmt.Errorf("deactivate course %d: %w", id, err)
	}
	if !changed {
		return false, nil
	}

	s.catalog.Invalidate(ctx)
	applog.For(ctx, s.log).Info("course deactivated", zap.Int64("course_id", id))
	return true, nil
}
