package postgres

import (
	"context"
	"database/sql"
	"fmt"

	catalog "github.com/portalacademico/portal-backend/internal/catalog/domain"
	"github.com/portalacademico/portal-backend/internal/storage"
)

// Seed inserts the starter catalog. Existing codes are left untouched, so it
// is safe to run on every start.
func Seed(ctx context.Context, db *sql.DB) (int64, error) {
	return SeedCourses(ctx, db, storage.SeedCourses())
}

// SeedCourses inserts courses, skipping codes that already exist, and returns
// the number of rows written.
func SeedCourses(ctx context.Context, db *sql.DB, courses []catalog.Course) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO courses (code, name, credits, capacity, start_time, end_time, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, c := range courses {
		res, err := stmt.ExecContext(ctx,
			c.Code, c.Name, c.Credits, c.Capacity, c.Start.String(), c.End.String(), c.Active,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to seed course %s: %w", c.Code, err)
		}
		n, _ := res.RowsAffected()
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return inserted, nil
}
