package models

import "time"

// Course represents the course aggregate row.
//
// Everything except the identity fields is a projection of the module/lesson tree
// and is written only by the syllabus rebuilder (or the counters fast path).
type Course struct {
	ID                   int            `json:"id"`
	AuthorID             int            `json:"authorId"`
	Slug                 string         `json:"slug"`
	Title                string         `json:"title"`
	ModulesCount         int            `json:"modulesCount"`
	TotalLessons         int            `json:"totalLessons"`
	TotalDurationSeconds int            `json:"totalDurationSeconds"`
	TotalDuration        string         `json:"totalDuration"`
	Syllabus             []SyllabusItem `json:"syllabus"`
	StructureVersion     int64          `json:"-"`
	CreatedAt            time.Time      `json:"createdAt"`
	UpdatedAt            time.Time      `json:"updatedAt"`
}

// AggregateStamp identifies one revision of a course aggregate row
type AggregateStamp struct {
	StructureVersion int64
	UpdatedAt        time.Time
}

// Stamp returns the revision the course was read at
func (c *Course) Stamp() AggregateStamp {
	return AggregateStamp{StructureVersion: c.StructureVersion, UpdatedAt: c.UpdatedAt}
}

// Equal reports whether both stamps name the same revision
func (s AggregateStamp) Equal(other AggregateStamp) bool {
	return s.StructureVersion == other.StructureVersion && s.UpdatedAt.Equal(other.UpdatedAt)
}

// CreateCourseRequest represents a request to create a course
type CreateCourseRequest struct {
	AuthorID int    `json:"authorId" validate:"omitempty,gt=0"`
	Slug     string `json:"slug" validate:"required,max=255"`
	Title    string `json:"title" validate:"required,max=255"`
}
