// Package memory is an in-process storage.Store used for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	catalog "github.com/portalacademico/portal-backend/internal/catalog/domain"
	enrollment "github.com/portalacademico/portal-backend/internal/enrollment/domain"
	"github.com/portalacademico/portal-backend/internal/storage"
)

type Store struct {
	mu          sync.RWMutex
	courses     map[int64]catalog.Course
	enrollments map[int64]enrollment.Enrollment
	nextCourse  int64
	nextEnroll  int64

	// one-slot channels used as context-aware mutexes, keyed by scope member
	locks *xsync.MapOf[string, chan struct{}]

	now func() time.Time
}

func New() *Store {
	return &Store{
		courses:     make(map[int64]catalog.Course),
		enrollments: make(map[int64]enrollment.Enrollment),
		locks:       xsync.NewMapOf[string, chan struct{}](),
		now:         time.Now,
	}
}

var _ storage.Store = (*Store)(nil)

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// Atomically serialises callers sharing a course or a student. Locks are taken
// course first, then student, so two scopes never wait on each other in a cycle.
func (s *Store) Atomically(ctx context.Context, scope storage.Scope, fn func(q storage.Queries) error) error {
	var keys []string
	if scope.CourseID != 0 {
		keys = append(keys, fmt.Sprintf("course:%d", scope.CourseID))
	}
	if scope.StudentID != "" {
		keys = append(keys, "student:"+scope.StudentID)
	}

	var held []chan struct{}
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i]
		}
	}()
	for _, k := range keys {
		ch, _ := s.locks.LoadOrCompute(k, func() chan struct{} { return make(chan struct{}, 1) })
		select {
		case ch <- struct{}{}:
			held = append(held, ch)
		case <-ctx.Done():
			return fmt.Errorf("acquire lock %s: %w", k, ctx.Err())
		}
	}

	tx := &txQueries{Store: s}
	err := fn(tx)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// txQueries records an undo entry for every write so a failed callback leaves
// no trace.
type txQueries struct {
	*Store
	undo []func()
}

func (t *txQueries) rollback() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *txQueries) CreateCourse(ctx context.Context, c catalog.Course) (catalog.Course, error) {
	created, err := t.Store.CreateCourse(ctx, c)
	if err == nil {
		t.undo = append(t.undo, func() { delete(t.courses, created.ID) })
	}
	return created, err
}

func (t *txQueries) UpdateCourse(ctx context.Context, c catalog.Course) error {
	prev, err := t.Store.FindCourseByID(ctx, c.ID)
	if err != nil {
		return err
	}
	if err := t.Store.UpdateCourse(ctx, c); err != nil {
		return err
	}
	t.undo = append(t.undo, func() { t.courses[prev.ID] = prev })
	return nil
}

func (t *txQueries) SetCourseActive(ctx context.Context, id int64, active bool) (bool, error) {
	changed, err := t.Store.SetCourseActive(ctx, id, active)
	if err == nil && changed {
		t.undo = append(t.undo, func() {
			c := t.courses[id]
			c.Active = !active
			t.courses[id] = c
		})
	}
	return changed, err
}

func (t *txQueries) InsertEnrollment(ctx context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	created, err := t.Store.InsertEnrollment(ctx, e)
	if err == nil {
		t.undo = append(t.undo, func() { delete(t.enrollments, created.ID) })
	}
	return created, err
}

func (t *txQueries) UpdateEnrollmentState(ctx context.Context, id int64, state enrollment.State) error {
	prev, err := t.Store.FindEnrollmentByID(ctx, id)
	if err != nil {
		return err
	}
	if err := t.Store.UpdateEnrollmentState(ctx, id, state); err != nil {
		return err
	}
	t.undo = append(t.undo, func() {
		e := t.enrollments[id]
		e.State = prev.State
		t.enrollments[id] = e
	})
	return nil
}

// Courses

func (s *Store) FindCourseByID(ctx context.Context, id int64) (catalog.Course, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Course{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.courses[id]
	if !ok {
		return catalog.Course{}, storage.ErrNotFound
	}
	return c, nil
}

func (s *Store) FindActiveCourses(ctx context.Context) ([]catalog.Course, error) {
	return s.selectCourses(ctx, func(c catalog.Course) bool { return c.Active })
}

func (s *Store) ListCourses(ctx context.Context) ([]catalog.Course, error) {
	return s.selectCourses(ctx, func(catalog.Course) bool { return true })
}

func (s *Store) selectCourses(ctx context.Context, keep func(catalog.Course) bool) ([]catalog.Course, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]catalog.Course, 0, len(s.courses))
	for _, c := range s.courses {
		if keep(c) {
			out = append(out, c)
		}
	}
	sortByName(out)
	return out, nil
}

func (s *Store) CreateCourse(ctx context.Context, c catalog.Course) (catalog.Course, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Course{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.codeTaken(c.Code, 0) {
		return catalog.Course{}, fmt.Errorf("course code %q: %w", c.Code, storage.ErrConstraintViolation)
	}
	s.nextCourse++
	c.ID = s.nextCourse
	s.courses[c.ID] = c
	return c, nil
}

func (s *Store) UpdateCourse(ctx context.Context, c catalog.Course) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.courses[c.ID]; !ok {
		return storage.ErrNotFound
	}
	if s.codeTaken(c.Code, c.ID) {
		return fmt.Errorf("course code %q: %w", c.Code, storage.ErrConstraintViolation)
	}
	s.courses[c.ID] = c
	return nil
}

func (s *Store) SetCourseActive(ctx context.Context, id int64, active bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.courses[id]
	if !ok {
		return false, storage.ErrNotFound
	}
	if c.Active == active {
		return false, nil
	}
	c.Active = active
	s.courses[id] = c
	return true, nil
}

func (s *Store) codeTaken(code string, except int64) bool {
	for id, c := range s.courses {
		if id != except && strings.EqualFold(c.Code, code) {
			return true
		}
	}
	return false
}

// Enrollments

func (s *Store) FindEnrollmentByID(ctx context.Context, id int64) (enrollment.Enrollment, error) {
	if err := ctx.Err(); err != nil {
		return enrollment.Enrollment{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.enrollments[id]
	if !ok {
		return enrollment.Enrollment{}, storage.ErrNotFound
	}
	return e, nil
}

func (s *Store) CountEnrollments(ctx context.Context, courseID int64, states ...enrollment.State) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, e := range s.enrollments {
		if e.CourseID != courseID {
			continue
		}
		if len(states) == 0 || slices.Contains(states, e.State) {
			n++
		}
	}
	return n, nil
}

func (s *Store) HasEnrollment(ctx context.Context, courseID int64, studentID string, excluding ...enrollment.State) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.enrollments {
		if e.CourseID == courseID && e.StudentID == studentID && !slices.Contains(excluding, e.State) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) StudentCourses(ctx context.Context, studentID string, excluding ...enrollment.State) ([]catalog.Course, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []catalog.Course
	for _, e := range s.enrollments {
		if e.StudentID != studentID || slices.Contains(excluding, e.State) {
			continue
		}
		if c, ok := s.courses[e.CourseID]; ok {
			out = append(out, c)
		}
	}
	sortByName(out)
	return out, nil
}

func (s *Store) ListEnrollments(ctx context.Context, f storage.EnrollmentFilter) ([]enrollment.Enrollment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []enrollment.Enrollment
	for _, e := range s.enrollments {
		if f.CourseID != 0 && e.CourseID != f.CourseID {
			continue
		}
		if f.StudentID != "" && e.StudentID != f.StudentID {
			continue
		}
		if c, ok := s.courses[e.CourseID]; ok {
			e.Course = &c
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RegisteredAt.Equal(out[j].RegisteredAt) {
			return out[i].RegisteredAt.After(out[j].RegisteredAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) InsertEnrollment(ctx context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	if err := ctx.Err(); err != nil {
		return enrollment.Enrollment{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.courses[e.CourseID]; !ok {
		return enrollment.Enrollment{}, fmt.Errorf("course %d: %w", e.CourseID, storage.ErrNotFound)
	}
	if e.State != enrollment.StateCancelled && s.pairTaken(e.CourseID, e.StudentID, 0) {
		return enrollment.Enrollment{}, fmt.Errorf("enrollment (%d, %s): %w", e.CourseID, e.StudentID, storage.ErrConstraintViolation)
	}
	if e.RegisteredAt.IsZero() {
		e.RegisteredAt = s.now().UTC()
	}
	s.nextEnroll++
	e.ID = s.nextEnroll
	e.Course = nil
	s.enrollments[e.ID] = e
	return e, nil
}

func (s *Store) UpdateEnrollmentState(ctx context.Context, id int64, state enrollment.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.enrollments[id]
	if !ok {
		return storage.ErrNotFound
	}
	if e.State == enrollment.StateCancelled && state != enrollment.StateCancelled &&
		s.pairTaken(e.CourseID, e.StudentID, id) {
		return fmt.Errorf("enrollment (%d, %s): %w", e.CourseID, e.StudentID, storage.ErrConstraintViolation)
	}
	e.State = state
	s.enrollments[id] = e
	return nil
}

// pairTaken mirrors the partial unique index on non-cancelled (course, student) pairs.
func (s *Store) pairTaken(courseID int64, studentID string, except int64) bool {
	for id, e := range s.enrollments {
		if id != except && e.CourseID == courseID && e.StudentID == studentID && e.State != enrollment.StateCancelled {
			return true
		}
	}
	return false
}

func sortByName(cs []catalog.Course) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Name != cs[j].Name {
			return cs[i].Name < cs[j].Name
		}
		return cs[i].ID < cs[j].ID
	})
}
