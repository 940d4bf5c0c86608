package memory

import (
	"context"
	"errors"
	"fmt"

	catalog "github.com/portalacademico/portal-backend/internal/catalog/domain"
	"github.com/portalacademico/portal-backend/internal/storage"
)

// Seed inserts the starter catalog, skipping codes that already exist.
func (s *Store) Seed(ctx context.Context) error {
	return s.SeedCourses(ctx, storage.SeedCourses())
}

// SeedCourses inserts courses, skipping codes that already exist.
func (s *Store) SeedCourses(ctx context.Context, courses []catalog.Course) error {
	for _, c := range courses {
		if _, err := s.CreateCourse(ctx, c); err != nil && !errors.Is(err, storage.ErrConstraintViolation) {
			return fmt.Errorf("seed %s: %w", c.Code, err)
		}
	}
	return nil
}
