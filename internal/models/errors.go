package models

import "errors"

// Sentinel errors shared by repositories and services.
// Repositories wrap them with context; callers test with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrVersionConflict = errors.New("structure version changed")
)
