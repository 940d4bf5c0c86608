package storage_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalog "github.com/portalacademico/portal-backend/internal/catalog/domain"
	"github.com/portalacademico/portal-backend/internal/storage"
)

func TestLoadSeed_DefaultsToStarterCatalog(t *testing.T) {
	courses, err := storage.LoadSeed("")
	require.NoError(t, err)
	assert.Equal(t, storage.SeedCourses(), courses)
}

func TestLoadSeed_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "courses.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
courses:
  - code: " ma101 "
    name: Calculo I
    credits: 4
    capacity: 40
    start_time: "07:00"
    end_time: "09:00"
  - code: HI100
    name: Historia
    credits: 2
    capacity: 15
    start_time: "16:00"
    end_time: "17:30"
    active: false
`), 0o600))

	courses, err := storage.LoadSeed(path)
	require.NoError(t, err)
	require.Len(t, courses, 2)

	assert.Equal(t, "MA101", courses[0].Code)
	assert.Equal(t, catalog.Clock(7, 0), courses[0].Start)
	assert.True(t, courses[0].Active)

	assert.Equal(t, catalog.Clock(17, 30), courses[1].End)
	assert.False(t, courses[1].Active)
}

func TestParseSeed_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad yaml", "courses: ["},
		{"bad time", "courses:\n  - {code: A1, name: A, credits: 1, capacity: 1, start_time: \"25:00\", end_time: \"26:00\"}"},
		{"end before start", "courses:\n  - {code: A1, name: A, credits: 1, capacity: 1, start_time: \"10:00\", end_time: \"09:00\"}"},
		{"missing name", "courses:\n  - {code: A1, credits: 1, capacity: 1, start_time: \"08:00\", end_time: \"09:00\"}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := storage.ParseSeed([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadSeed_MissingFile(t *testing.T) {
	_, err := storage.LoadSeed(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
