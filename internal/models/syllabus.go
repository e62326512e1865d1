package models

// SyllabusItem is a module summary embedded in the course aggregate
type SyllabusItem struct {
	ModuleID int              `json:"moduleId"`
	Title    string           `json:"title"`
	Order    int              `json:"order"`
	Lessons  []SyllabusLesson `json:"lessons"`
}

// SyllabusLesson carries only the lesson fields needed by course pages
type SyllabusLesson struct {
	LessonID        string `json:"lessonId"`
	Title           string `json:"title"`
	DurationSeconds int    `json:"durationSeconds"`
	FreePreview     bool   `json:"freePreview"`
}

// CourseAggregate holds the recomputed projection written back to the course row
type CourseAggregate struct {
	ModulesCount         int
	TotalLessons         int
	TotalDurationSeconds int
	TotalDuration        string
	Syllabus             []SyllabusItem
}

// ModuleTree is one module with its lessons, as read from the source-of-truth tables
type ModuleTree struct {
	Module  Module
	Lessons []Lesson
}
