package models

import (
	"database/sql/driver"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Lesson represents a lesson owned by exactly one module
type Lesson struct {
	ID          string       `json:"id"`
	CourseID    int          `json:"courseId"`
	ModuleID    int          `json:"moduleId"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	VideoURL    string       `json:"videoUrl,omitempty"`
	Duration    DurationText `json:"durationSeconds"`
	Order       int          `json:"order"`
	Reward      int          `json:"reward"`
	FreePreview bool         `json:"freePreview"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// LessonPayload is the validated body of a lesson upsert
type LessonPayload struct {
	Title           string  `json:"title" validate:"required,max=255"`
	Description     string  `json:"description" validate:"max=5000"`
	VideoURL        string  `json:"videoUrl" validate:"omitempty,url"`
	DurationSeconds float64 `json:"durationSeconds" validate:"gte=0"`
	Order           int     `json:"order" validate:"gte=0"`
	Reward          int     `json:"reward" validate:"gte=0"`
	FreePreview     bool    `json:"freePreview"`
}

// MoveLessonRequest represents a request to move a lesson to another module
type MoveLessonRequest struct {
	FromModuleID int `json:"fromModuleId" validate:"required,gt=0"`
	ToModuleID   int `json:"toModuleId" validate:"required,gt=0"`
	NewOrder     int `json:"newOrder" validate:"gte=0"`
}

// DurationText is a lesson duration as stored.
//
// Lessons imported from the legacy editor hold free-form text in this column,
// so the raw value is kept and Seconds() parses it leniently.
type DurationText struct {
	Raw   string
	Valid bool
}

// DurationFromSeconds builds a stored duration from a number of seconds
func DurationFromSeconds(seconds float64) DurationText {
	return DurationText{Raw: strconv.FormatFloat(seconds, 'f', -1, 64), Valid: true}
}

// Seconds returns the whole number of seconds, or 0 for missing and non-numeric values
func (d DurationText) Seconds() int {
	if !d.Valid {
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(d.Raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return int(math.Round(f))
}

// Scan implements sql.Scanner
func (d *DurationText) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*d = DurationText{}
	case []byte:
		*d = DurationText{Raw: string(v), Valid: true}
	case string:
		*d = DurationText{Raw: v, Valid: true}
	case int64:
		*d = DurationText{Raw: strconv.FormatInt(v, 10), Valid: true}
	case float64:
		*d = DurationText{Raw: strconv.FormatFloat(v, 'f', -1, 64), Valid: true}
	default:
		return fmt.Errorf("unsupported duration type %T", value)
	}
	return nil
}

// Value implements driver.Valuer
func (d DurationText) Value() (driver.Value, error) {
	if !d.Valid {
		return nil, nil
	}
	return d.Raw, nil
}

// MarshalJSON exposes the parsed number of seconds
func (d DurationText) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(d.Seconds())), nil
}
