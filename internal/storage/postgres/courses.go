package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	catalog "github.com/portalacademico/portal-backend/internal/catalog/domain"
	"github.com/portalacademico/portal-backend/internal/storage"
)

const courseColumns = `id, code, name, credits, capacity, start_time, end_time, active`

func toPGTime(t catalog.TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(t) * 60_000_000, Valid: true}
}

func fromPGTime(t pgtype.Time) catalog.TimeOfDay {
	return catalog.TimeOfDay(t.Microseconds / 60_000_000)
}

func scanCourse(row pgx.Row) (catalog.Course, error) {
	var (
		c          catalog.Course
		start, end pgtype.Time
	)
	if err := row.Scan(&c.ID, &c.Code, &c.Name, &c.Credits, &c.Capacity, &start, &end, &c.Active); err != nil {
		return catalog.Course{}, err
	}
	c.Start = fromPGTime(start)
	c.End = fromPGTime(end)
	return c, nil
}

func (q queries) FindCourseByID(ctx context.Context, id int64) (catalog.Course, error) {
	c, err := scanCourse(q.db.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id))
	if err != nil {
		return catalog.Course{}, mapError(err)
	}
	return c, nil
}

func (q queries) FindActiveCourses(ctx context.Context) ([]catalog.Course, error) {
	return q.selectCourses(ctx, `SELECT `+courseColumns+` FROM courses WHERE active ORDER BY name, id`)
}

func (q queries) ListCourses(ctx context.Context) ([]catalog.Course, error) {
	return q.selectCourses(ctx, `SELECT `+courseColumns+` FROM courses ORDER BY name, id`)
}

func (q queries) selectCourses(ctx context.Context, sql string, args ...any) ([]catalog.Course, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query courses: %w", err)
	}
	defer rows.Close()

	out := []catalog.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate courses: %w", err)
	}
	return out, nil
}

func (q queries) CreateCourse(ctx context.Context, c catalog.Course) (catalog.Course, error) {
	const sql = `
INSERT INTO courses (code, name, credits, capacity, start_time, end_time, active)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`

	err := q.db.QueryRow(ctx, sql,
		c.Code, c.Name, c.Credits, c.Capacity, toPGTime(c.Start), toPGTime(c.End), c.Active,
	).Scan(&c.ID)
	if err != nil {
		return catalog.Course{}, fmt.Errorf("insert course: %w", mapError(err))
	}
	return c, nil
}

func (q queries) UpdateCourse(ctx context.Context, c catalog.Course) error {
	const sql = `
UPDATE courses
   SET code = $2, name = $3, credits = $4, capacity = $5,
       start_time = $6, end_time = $7, active = $8, updated_at = now()
 WHERE id = $1`

	tag, err := q.db.Exec(ctx, sql,
		c.ID, c.Code, c.Name, c.Credits, c.Capacity, toPGTime(c.Start), toPGTime(c.End), c.Active,
	)
	if err != nil {
		return fmt.Errorf("update course: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (q queries) SetCourseActive(ctx context.Context, id int64, active bool) (bool, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE courses SET active = $2, updated_at = now() WHERE id = $1 AND active <> $2`, id, active)
	if err != nil {
		return false, fmt.Errorf("set course active: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	var exists bool
	if err := q.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM courses WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check course: %w", err)
	}
	if !exists {
		return false, storage.ErrNotFound
	}
	return false, nil
}
