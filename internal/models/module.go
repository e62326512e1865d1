package models

import "time"

// Module represents a section of a course that owns an ordered list of lessons
type Module struct {
	ID        int       `json:"id"`
	CourseID  int       `json:"courseId"`
	Title     string    `json:"title"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateModuleRequest represents a request to create a module
type CreateModuleRequest struct {
	Title string `json:"title" validate:"required,max=255"`
	Order int    `json:"order" validate:"gte=0"`
}

// UpdateModuleRequest represents a request to rename and/or reorder a module (partial update)
type UpdateModuleRequest struct {
	Title *string `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Order *int    `json:"order,omitempty" validate:"omitempty,gte=0"`
}
