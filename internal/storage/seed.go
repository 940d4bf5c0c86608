package storage

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	catalog "github.com/portalacademico/portal-backend/internal/catalog/domain"
)

// SeedCourses is the starter catalog loaded into empty databases.
func SeedCourses() []catalog.Course {
	return []catalog.Course{
		{Code: "IS101", Name: "Intro a Ing. Software", Credits: 3, Capacity: 30, Start: catalog.Clock(8, 0), End: catalog.Clock(10, 0), Active: true},
		{Code: "BD201", Name: "Bases de Datos", Credits: 4, Capacity: 25, Start: catalog.Clock(10, 0), End: catalog.Clock(12, 0), Active: true},
		{Code: "PR301", Name: ".NET Avanzado", Credits: 3, Capacity: 20, Start: catalog.Clock(14, 0), End: catalog.Clock(16, 0), Active: true},
	}
}

type seedFile struct {
	Courses []catalog.CourseInput `yaml:"courses"`
}

// LoadSeed returns the courses listed in the YAML file at path, or the starter
// catalog when path is empty. Entries go through the same validation as the
// admin API; a missing active flag means active.
//
//	courses:
//	  - code: IS101
//	    name: Intro a Ing. Software
//	    credits: 3
//	    capacity: 30
//	    start_time: "08:00"
//	    end_time: "10:00"
func LoadSeed(path string) ([]catalog.Course, error) {
	if path == "" {
		return SeedCourses(), nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(b)
}

// ParseSeed decodes a YAML seed document.
func ParseSeed(b []byte) ([]catalog.Course, error) {
	var f seedFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	out := make([]catalog.Course, 0, len(f.Courses))
	for i, in := range f.Courses {
		in.Normalize()
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("seed course #%d: %w", i+1, err)
		}
		c := catalog.Course{Active: true}
		in.Apply(&c)
		out = append(out, c)
	}
	return out, nil
}
