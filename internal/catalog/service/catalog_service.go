package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/portalacademico/portal-backend/internal/catalog/cache"
	"github.com/portalacademico/portal-backend/internal/catalog/domain"
	applog "github.com/portalacademico/portal-backend/internal/logger"
	"github.com/portalacademico/portal-backend/internal/storage"
)

// ActiveCoursesKey is the single cache key holding the active-course snapshot.
const ActiveCoursesKey = "courses:active:all"

// sharedLoadTimeout bounds a store load shared by concurrent cache misses. The
// load is detached from the caller that started it.
const sharedLoadTimeout = 10 * time.Second

// CatalogService serves the active-course catalog through a read-through
// cache. Cache failures never reach the caller; the store is the fallback.
type CatalogService struct {
	store   storage.CourseReader
	backend cache.Backend
	ttl     time.Duration
	log     *zap.Logger
	group   singleflight.Group
	now     func() time.Time

	loadTimeout time.Duration
}

// NewCatalogService builds the service. A non-positive ttl disables caching.
func NewCatalogService(store storage.CourseReader, backend cache.Backend, ttl time.Duration, log *zap.Logger) *CatalogService {
	if backend == nil || ttl <= 0 {
		backend = cache.Noop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogService{
		store:   store,
		backend: backend,
		ttl:     ttl,
		log:     log.Named("catalog"),
		now:     time.Now,

		loadTimeout: sharedLoadTimeout,
	}
}

// GetActiveCourses returns every active course ordered by name.
func (s *CatalogService) GetActiveCourses(ctx context.Context) ([]domain.Course, error) {
	b, err := s.backend.Get(ctx, ActiveCoursesKey)
	switch {
	case err == nil:
		snap, derr := cache.DecodeSnapshot(b)
		if derr == nil {
			return slices.Clone(snap.Courses), nil
		}
		applog.For(ctx, s.log).Warn("discarding unreadable catalog snapshot", zap.Error(derr))
	case !errors.Is(err, cache.ErrMiss):
		applog.For(ctx, s.log).Warn("catalog cache read failed", zap.Error(err))
	}

	ch := s.group.DoChan(ActiveCoursesKey, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
		defer cancel()
		return s.load(lctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]domain.Course)), nil
	}
}

// Refresh reloads the snapshot from the store and overwrites the cached copy.
func (s *CatalogService) Refresh(ctx context.Context) error {
	_, err := s.load(ctx)
	return err
}

// Invalidate drops the cached snapshot so the next read goes to the store.
func (s *CatalogService) Invalidate(ctx context.Context) {
	if err := s.backend.Delete(ctx, ActiveCoursesKey); err != nil {
		applog.For(ctx, s.log).Warn("catalog cache invalidation failed", zap.Error(err))
		return
	}
	s.log.Debug("catalog cache invalidated")
}

func (s *CatalogService) load(ctx context.Context) ([]domain.Course, error) {
	courses, err := s.store.FindActiveCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active courses: %w", err)
	}
	sort.SliceStable(courses, func(i, j int) bool { return courses[i].Name < courses[j].Name })

	b, err := cache.EncodeSnapshot(cache.Snapshot{Courses: courses, LoadedAt: s.now().UTC()})
	if err != nil {
		s.log.Warn("catalog snapshot encode failed", zap.Error(err))
		return courses, nil
	}
	if err := s.backend.Set(ctx, ActiveCoursesKey, b, s.ttl); err != nil {
		s.log.Warn("catalog cache write failed", zap.Error(err))
	}
	return courses, nil
}

// Search filters the cached catalog.
func (s *CatalogService) Search(ctx context.Context, f domain.Filter) ([]domain.Course, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	courses, err := s.GetActiveCourses(ctx)
	if err != nil {
		return nil, err
	}
	return f.Apply(courses), nil
}

// GetCourse reads one course straight from the store. Inactive courses are
// reported as not found.
func (s *CatalogService) GetCourse(ctx context.Context, id int64) (domain.Course, error) {
	c, err := s.store.FindCourseByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Course{}, domain.ErrCourseNotFound
	}
	if err != nil {
		return domain.Course{}, fmt.Errorf("find course %d: %w", id, err)
	}
	if !c.Active {
		return domain.Course{}, domain.ErrCourseNotFound
	}
	return c, nil
}
