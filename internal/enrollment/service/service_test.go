package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	catalog "github.com/portalacademico/portal-backend/internal/catalog/domain"
	"github.com/portalacademico/portal-backend/internal/enrollment/domain"
	"github.com/portalacademico/portal-backend/internal/enrollment/service"
	applog "github.com/portalacademico/portal-backend/internal/logger"
	"github.com/portalacademico/portal-backend/internal/storage"
	"github.com/portalacademico/portal-backend/internal/storage/memory"
)

func addCourse(t *testing.T, s *memory.Store, code string, capacity int, start, end catalog.TimeOfDay) catalog.Course {
	t.Helper()
	c, err := s.CreateCourse(context.Background(), catalog.Course{
		Code: code, Name: "Course " + code, Credits: 3, Capacity: capacity,
		Start: start, End: end, Active: true,
	})
	require.NoError(t, err)
	return c
}

func TestAdmissionEngine_Enroll(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	engine := service.NewAdmissionEngine(store, zaptest.NewLogger(t))
	fixed := time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)
	engine.SetClock(func() time.Time { return fixed })

	x := addCourse(t, store, "X", 30, catalog.Clock(8, 0), catalog.Clock(10, 0))
	y := addCourse(t, store, "Y", 30, catalog.Clock(9, 0), catalog.Clock(11, 0))
	z := addCourse(t, store, "Z", 30, catalog.Clock(10, 0), catalog.Clock(12, 0))

	t.Run("admits as pending", func(t *testing.T) {
		e, err := engine.Enroll(ctx, x.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, domain.StatePending, e.State)
		assert.Equal(t, fixed, e.RegisteredAt)
		require.NotNil(t, e.Course)
		assert.Equal(t, "X", e.Course.Code)
	})

	t.Run("already enrolled", func(t *testing.T) {
		_, err := engine.Enroll(ctx, x.ID, "alice")
		assert.ErrorIs(t, err, domain.ErrAlreadyEnrolled)
	})

	t.Run("overlapping slot conflicts", func(t *testing.T) {
		_, err := engine.Enroll(ctx, y.ID, "alice")
		require.ErrorIs(t, err, domain.ErrScheduleConflict)

		var sce *domain.ScheduleConflictError
		require.True(t, errors.As(err, &sce))
		assert.Equal(t, x.ID, sce.With.ID)
	})

	t.Run("touching slot does not conflict", func(t *testing.T) {
		_, err := engine.Enroll(ctx, z.ID, "alice")
		assert.NoError(t, err)
	})

	t.Run("unknown course", func(t *testing.T) {
		_, err := engine.Enroll(ctx, 404, "alice")
		assert.ErrorIs(t, err, domain.ErrCourseNotFound)
	})

	t.Run("inactive course", func(t *testing.T) {
		off := addCourse(t, store, "OFF", 30, catalog.Clock(20, 0), catalog.Clock(21, 0))
		_, err := store.SetCourseActive(ctx, off.ID, false)
		require.NoError(t, err)

		_, err = engine.Enroll(ctx, off.ID, "bob")
		assert.ErrorIs(t, err, domain.ErrCourseNotFound)
	})
}

func TestAdmissionEngine_LogsCarryRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	store := memory.New()
	engine := service.NewAdmissionEngine(store, zap.New(core))
	c := addCourse(t, store, "LOG1", 1, catalog.Clock(8, 0), catalog.Clock(10, 0))

	ctx := applog.WithRequestID(context.Background(), "rid-42")
	_, err := engine.Enroll(ctx, c.ID, "alice")
	require.NoError(t, err)
	_, err = engine.Enroll(ctx, c.ID, "alice")
	require.ErrorIs(t, err, domain.ErrAlreadyEnrolled)

	admitted := logs.FilterMessage("enrollment admitted").All()
	require.Len(t, admitted, 1)
	assert.Equal(t, "rid-42", admitted[0].ContextMap()["request_id"])

	rejected := logs.FilterMessage("enrollment rejected").All()
	require.Len(t, rejected, 1)
	assert.Equal(t, zapcore.InfoLevel, rejected[0].Level)
	assert.Equal(t, "rid-42", rejected[0].ContextMap()["request_id"])
}

func TestAdmissionEngine_CheckOrder(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	engine := service.NewAdmissionEngine(store, zaptest.NewLogger(t))

	full := addCourse(t, store, "FULL", 1, catalog.Clock(8, 0), catalog.Clock(10, 0))
	_, err := engine.Enroll(ctx, full.ID, "alice")
	require.NoError(t, err)

	// duplicate is reported before capacity
	_, err = engine.Enroll(ctx, full.ID, "alice")
	assert.ErrorIs(t, err, domain.ErrAlreadyEnrolled)

	// capacity is reported before the schedule conflict bob would also hit
	other := addCourse(t, store, "OTHER", 5, catalog.Clock(8, 0), catalog.Clock(9, 0))
	_, err = engine.Enroll(ctx, other.ID, "bob")
	require.NoError(t, err)
	_, err = engine.Enroll(ctx, full.ID, "bob")
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
}

func TestAdmissionEngine_ReenrollAfterCancel(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	engine := service.NewAdmissionEngine(store, zaptest.NewLogger(t))
	workflow := service.NewConfirmationWorkflow(store, zaptest.NewLogger(t))

	c := addCourse(t, store, "RE", 1, catalog.Clock(8, 0), catalog.Clock(10, 0))
	first, err := engine.Enroll(ctx, c.ID, "alice")
	require.NoError(t, err)

	_, err = workflow.Cancel(ctx, first.ID)
	require.NoError(t, err)

	second, err := engine.Enroll(ctx, c.ID, "alice")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	// the cancelled course no longer blocks other slots either
	overlap := addCourse(t, store, "OV", 5, catalog.Clock(9, 0), catalog.Clock(11, 0))
	_, err = workflow.Cancel(ctx, second.ID)
	require.NoError(t, err)
	_, err = engine.Enroll(ctx, overlap.ID, "alice")
	assert.NoError(t, err)
}

func TestAdmissionEngine_ConcurrentSingleSeat(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	engine := service.NewAdmissionEngine(store, zaptest.NewLogger(t))
	c := addCourse(t, store, "ONE", 1, catalog.Clock(8, 0), catalog.Clock(10, 0))

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i, student := range []string{"A", "B"} {
		wg.Add(1)
		go func(i int, student string) {
			defer wg.Done()
			_, errs[i] = engine.Enroll(ctx, c.ID, student)
		}(i, student)
	}
	wg.Wait()

	var ok, full int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrCapacityExceeded):
			full++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, full)

	n, err := store.CountEnrollments(ctx, c.ID, domain.Holding...)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAdmissionEngine_ConcurrentNeverOverfills(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	engine := service.NewAdmissionEngine(store, zaptest.NewLogger(t))
	c := addCourse(t, store, "TEN", 10, catalog.Clock(8, 0), catalog.Clock(10, 0))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = engine.Enroll(ctx, c.ID, fmt.Sprintf("student-%d", i))
		}(i)
	}
	wg.Wait()

	n, err := store.CountEnrollments(ctx, c.ID, domain.Holding...)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
}

func TestAdmissionEngine_ConcurrentOverlapSameStudent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	engine := service.NewAdmissionEngine(store, zaptest.NewLogger(t))
	a := addCourse(t, store, "A", 10, catalog.Clock(8, 0), catalog.Clock(10, 0))
	b := addCourse(t, store, "B", 10, catalog.Clock(9, 0), catalog.Clock(11, 0))

	var wg sync.WaitGroup
	for _, id := range []int64{a.ID, b.ID} {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, _ = engine.Enroll(ctx, id, "alice")
		}(id)
	}
	wg.Wait()

	held, err := store.StudentCourses(ctx, "alice", domain.StateCancelled)
	require.NoError(t, err)
	assert.Len(t, held, 1)
}

type racyStore struct{ storage.Store }

func (r racyStore) Atomically(ctx context.Context, scope storage.Scope, fn func(storage.Queries) error) error {
	return r.Store.Atomically(ctx, scope, func(q storage.Queries) error { return fn(racyQueries{q}) })
}

type racyQueries struct{ storage.Queries }

func (racyQueries) InsertEnrollment(context.Context, domain.Enrollment) (domain.Enrollment, error) {
	return domain.Enrollment{}, fmt.Errorf("enrollments_live_pair_key: %w", storage.ErrConstraintViolation)
}

func TestAdmissionEngine_UniqueViolationIsTerminal(t *testing.T) {
	store := memory.New()
	c := addCourse(t, store, "R", 5, catalog.Clock(8, 0), catalog.Clock(10, 0))
	engine := service.NewAdmissionEngine(racyStore{store}, zaptest.NewLogger(t))

	_, err := engine.Enroll(context.Background(), c.ID, "alice")
	assert.ErrorIs(t, err, domain.ErrDuplicateOrRace)
}

type brokenStore struct{ storage.Store }

func (brokenStore) FindCourseByID(context.Context, int64) (catalog.Course, error) {
	return catalog.Course{}, errors.New("connection reset")
}

func TestAdmissionEngine_StoreFailureIsNotARejection(t *testing.T) {
	engine := service.NewAdmissionEngine(brokenStore{memory.New()}, zaptest.NewLogger(t))

	_, err := engine.Enroll(context.Background(), 1, "alice")
	require.Error(t, err)
	assert.False(t, domain.IsRejection(err))
}

func TestConfirmationWorkflow(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	engine := service.NewAdmissionEngine(store, zaptest.NewLogger(t))
	workflow := service.NewConfirmationWorkflow(store, zaptest.NewLogger(t))

	c := addCourse(t, store, "CF", 2, catalog.Clock(8, 0), catalog.Clock(10, 0))
	a, err := engine.Enroll(ctx, c.ID, "a")
	require.NoError(t, err)
	b, err := engine.Enroll(ctx, c.ID, "b")
	require.NoError(t, err)

	t.Run("pending rows do not count against confirmation", func(t *testing.T) {
		confirmed, err := workflow.Confirm(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StateConfirmed, confirmed.State)
	})

	t.Run("only pending can be confirmed", func(t *testing.T) {
		_, err := workflow.Confirm(ctx, a.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})

	t.Run("confirmed seats at capacity block confirmation", func(t *testing.T) {
		shrunk := c
		shrunk.Capacity = 1
		require.NoError(t, store.UpdateCourse(ctx, shrunk))

		_, err := workflow.Confirm(ctx, b.ID)
		assert.ErrorIs(t, err, domain.ErrCapacityExceeded)

		got, err := store.FindEnrollmentByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatePending, got.State)
	})

	t.Run("cancelling a confirmed seat frees it", func(t *testing.T) {
		cancelled, err := workflow.Cancel(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StateCancelled, cancelled.State)

		_, err = workflow.Confirm(ctx, b.ID)
		assert.NoError(t, err)
	})

	t.Run("cancel is idempotent", func(t *testing.T) {
		first, err := workflow.Cancel(ctx, b.ID)
		require.NoError(t, err)
		second, err := workflow.Cancel(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Equal(t, domain.StateCancelled, second.State)
	})

	t.Run("cancelled cannot be confirmed", func(t *testing.T) {
		_, err := workflow.Confirm(ctx, b.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})

	t.Run("unknown enrollment", func(t *testing.T) {
		_, err := workflow.Confirm(ctx, 999)
		assert.ErrorIs(t, err, domain.ErrEnrollmentNotFound)
		_, err = workflow.Cancel(ctx, 999)
		assert.ErrorIs(t, err, domain.ErrEnrollmentNotFound)
	})
}

func TestConfirmationWorkflow_ConcurrentConfirmsRespectCapacity(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	engine := service.NewAdmissionEngine(store, zaptest.NewLogger(t))
	workflow := service.NewConfirmationWorkflow(store, zaptest.NewLogger(t))

	c := addCourse(t, store, "CC", 5, catalog.Clock(8, 0), catalog.Clock(10, 0))
	var ids []int64
	for i := 0; i < 5; i++ {
		e, err := engine.Enroll(ctx, c.ID, fmt.Sprintf("s%d", i))
		require.NoError(t, err)
		ids = append(ids, e.ID)
	}
	shrunk := c
	shrunk.Capacity = 2
	require.NoError(t, store.UpdateCourse(ctx, shrunk))

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, _ = workflow.Confirm(ctx, id)
		}(id)
	}
	wg.Wait()

	n, err := store.CountEnrollments(ctx, c.ID, domain.StateConfirmed)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestEnrollmentQuery(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	engine := service.NewAdmissionEngine(store, zaptest.NewLogger(t))
	query := service.NewEnrollmentQuery(store)

	t.Run("empty catalog", func(t *testing.T) {
		roster, err := query.ListByCourse(ctx, 0)
		require.NoError(t, err)
		assert.Nil(t, roster.Course)
		assert.Empty(t, roster.Enrollments)
	})

	require.NoError(t, store.Seed(ctx))
	courses, err := store.ListCourses(ctx)
	require.NoError(t, err)
	firstByName := courses[0]

	_, err = engine.Enroll(ctx, firstByName.ID, "alice")
	require.NoError(t, err)
	_, err = engine.Enroll(ctx, firstByName.ID, "bob")
	require.NoError(t, err)

	t.Run("defaults to the first course by name", func(t *testing.T) {
		roster, err := query.ListByCourse(ctx, 0)
		require.NoError(t, err)
		require.NotNil(t, roster.Course)
		assert.Equal(t, ".NET Avanzado", roster.Course.Name)
		require.Len(t, roster.Enrollments, 2)
		assert.Equal(t, "bob", roster.Enrollments[0].StudentID, "newest first")
	})

	t.Run("unknown course", func(t *testing.T) {
		_, err := query.ListByCourse(ctx, 999)
		assert.ErrorIs(t, err, domain.ErrCourseNotFound)
	})

	t.Run("by student", func(t *testing.T) {
		list, err := query.ListByStudent(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.NotNil(t, list[0].Course)
		assert.Equal(t, "PR301", list[0].Course.Code)

		list, err = query.ListByStudent(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}
