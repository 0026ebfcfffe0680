package models

import "time"

// GradeScaleType enumerates the supported scale families.
type GradeScaleType string

const (
	ScaleLetter     GradeScaleType = "letter"
	ScaleGPA        GradeScaleType = "gpa"
	ScalePercentage GradeScaleType = "percentage"
)

// GradeBand maps a closed percentage interval to a grade label. Bands within
// a scale must not overlap and are evaluated in stored order, first match
// wins.
type GradeBand struct {
	Min   float64  `json:"min"`
	Max   float64  `json:"max"`
	Grade string   `json:"grade"`
	GPA   *float64 `json:"gpa,omitempty"`
}

// GradeScale is a tenant-scoped grade-to-label mapping. At most one scale per
// school is the default at any time.
type GradeScale struct {
	ID          string         `db:"id" json:"id"`
	SchoolID    string         `db:"school_id" json:"school_id"`
	ScaleName   string         `db:"scale_name" json:"scale_name"`
	ScaleType   GradeScaleType `db:"scale_type" json:"scale_type"`
	GradeLabels []GradeBand    `db:"-" json:"grade_labels"`
	IsDefault   bool           `db:"is_default" json:"is_default"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}
