package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	catalog "github.com/portalacademico/portal-backend/internal/catalog/domain"
	enrollment "github.com/portalacademico/portal-backend/internal/enrollment/domain"
	"github.com/portalacademico/portal-backend/internal/storage"
)

func stateNames(states []enrollment.State) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}

func (q queries) FindEnrollmentByID(ctx context.Context, id int64) (enrollment.Enrollment, error) {
	var (
		e     enrollment.Enrollment
		state string
	)
	err := q.db.QueryRow(ctx,
		`SELECT id, course_id, student_id, registered_at, state FROM enrollments WHERE id = $1`, id,
	).Scan(&e.ID, &e.CourseID, &e.StudentID, &e.RegisteredAt, &state)
	if err != nil {
		return enrollment.Enrollment{}, mapError(err)
	}
	e.State = enrollment.State(state)
	return e, nil
}

func (q queries) CountEnrollments(ctx context.Context, courseID int64, states ...enrollment.State) (int, error) {
	sql := `SELECT count(*) FROM enrollments WHERE course_id = $1`
	args := []any{courseID}
	if len(states) > 0 {
		sql += ` AND state = ANY($2)`
		args = append(args, stateNames(states))
	}

	var n int
	if err := q.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return n, nil
}

func (q queries) HasEnrollment(ctx context.Context, courseID int64, studentID string, excluding ...enrollment.State) (bool, error) {
	const sql = `
SELECT EXISTS(
  SELECT 1 FROM enrollments
   WHERE course_id = $1 AND student_id = $2 AND NOT (state = ANY($3))
)`
	var ok bool
	if err := q.db.QueryRow(ctx, sql, courseID, studentID, stateNames(excluding)).Scan(&ok); err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return ok, nil
}

func (q queries) StudentCourses(ctx context.Context, studentID string, excluding ...enrollment.State) ([]catalog.Course, error) {
	const sql = `
SELECT c.id, c.code, c.name, c.credits, c.capacity, c.start_time, c.end_time, c.active
  FROM enrollments e
  JOIN courses c ON c.id = e.course_id
 WHERE e.student_id = $1 AND NOT (e.state = ANY($2))
 ORDER BY c.name, c.id`
	return q.selectCourses(ctx, sql, studentID, stateNames(excluding))
}

func (q queries) ListEnrollments(ctx context.Context, f storage.EnrollmentFilter) ([]enrollment.Enrollment, error) {
	var (
		where []string
		args  []any
	)
	if f.CourseID != 0 {
		args = append(args, f.CourseID)
		where = append(where, fmt.Sprintf("e.course_id = $%d", len(args)))
	}
	if f.StudentID != "" {
		args = append(args, f.StudentID)
		where = append(where, fmt.Sprintf("e.student_id = $%d", len(args)))
	}

	sql := `
SELECT e.id, e.course_id, e.student_id, e.registered_at, e.state,
       c.id, c.code, c.name, c.credits, c.capacity, c.start_time, c.end_time, c.active
  FROM enrollments e
  JOIN courses c ON c.id = e.course_id`
	if len(where) > 0 {
		sql += "\n WHERE " + strings.Join(where, " AND ")
	}
	sql += "\n ORDER BY e.registered_at DESC, e.id DESC"

	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query enrollments: %w", err)
	}
	defer rows.Close()

	out := []enrollment.Enrollment{}
	for rows.Next() {
		var (
			e          enrollment.Enrollment
			c          catalog.Course
			state      string
			start, end pgtype.Time
		)
		if err := rows.Scan(
			&e.ID, &e.CourseID, &e.StudentID, &e.RegisteredAt, &state,
			&c.ID, &c.Code, &c.Name, &c.Credits, &c.Capacity, &start, &end, &c.Active,
		); err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		c.Start = fromPGTime(start)
		c.End = fromPGTime(end)
		e.State = enrollment.State(state)
		e.Course = &c
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrollments: %w", err)
	}
	return out, nil
}

func (q queries) InsertEnrollment(ctx context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	const sql = `
INSERT INTO enrollments (course_id, student_id, registered_at, state)
VALUES ($1, $2, COALESCE($3, now()), $4)
RETURNING id, registered_at`

	var at *pgtype.Timestamptz
	if !e.RegisteredAt.IsZero() {
		at = &pgtype.Timestamptz{Time: e.RegisteredAt, Valid: true}
	}

	err := q.db.QueryRow(ctx, sql, e.CourseID, e.StudentID, at, string(e.State)).Scan(&e.ID, &e.RegisteredAt)
	if err != nil {
		return enrollment.Enrollment{}, fmt.Errorf("insert enrollment: %w", mapError(err))
	}
	e.Course = nil
	return e, nil
}

func (q queries) UpdateEnrollmentState(ctx context.Context, id int64, state enrollment.State) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE enrollments SET state = $2, updated_at = now() WHERE id = $1`, id, string(state))
	if err != nil {
		return fmt.Errorf("update enrollment: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
