package models

// FailureKind classifies a failed operation for the transport layer
type FailureKind string

const (
	FailureNone       FailureKind = ""
	FailureValidation FailureKind = "validation"
	FailureNotFound   FailureKind = "not_found"
	FailureForbidden  FailureKind = "forbidden"
	FailureConflict   FailureKind = "conflict"
	FailureInternal   FailureKind = "internal"
)

// OperationResult is returned by every structural mutation
type OperationResult struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	ID      string            `json:"id,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	Kind    FailureKind       `json:"-"`
}

// ResyncStats is the report of a maintenance resync
type ResyncStats struct {
	Modules  int    `json:"modules"`
	Lessons  int    `json:"lessons"`
	Duration string `json:"duration"`
}

// ResyncResult is returned by the maintenance entry point
type ResyncResult struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Stats   ResyncStats `json:"stats"`
	Kind    FailureKind `json:"-"`
}

// ResyncAllReport summarizes a resync over every course
type ResyncAllReport struct {
	Total  int            `json:"total"`
	Failed map[int]string `json:"failed,omitempty"`
}
