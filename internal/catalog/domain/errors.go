package domain

import "errors"

var (
	ErrCourseNotFound = errors.New("course not found")
	ErrDuplicateCode  = errors.New("a course with this code already exists")
	ErrInvalidCourse  = errors.New("invalid course")
	ErrInvalidFilter  = errors.New("invalid catalog filter")
)
