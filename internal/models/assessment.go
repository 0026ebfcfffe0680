package models

import "time"

// AssessmentType enumerates the supported gradable event kinds.
type AssessmentType string

const (
	AssessmentExam     AssessmentType = "exam"
	AssessmentTest     AssessmentType = "test"
	AssessmentQuiz     AssessmentType = "quiz"
	AssessmentHomework AssessmentType = "homework"
	AssessmentProject  AssessmentType = "project"
)

// ComponentType enumerates the supported assessment sub-part kinds.
type ComponentType string

const (
	ComponentMCQ       ComponentType = "MCQ"
	ComponentWritten   ComponentType = "Written"
	ComponentPractical ComponentType = "Practical"
	ComponentOral      ComponentType = "Oral"
)

// Assessment represents one gradable event for a subject/class/section.
// WeightPercentage is its contribution to the subject composite; nil means
// equal weighting (treated as 100 during calculation).
type Assessment struct {
	ID               string         `db:"id" json:"id"`
	SchoolID         string         `db:"school_id" json:"school_id"`
	SubjectID        string         `db:"subject_id" json:"subject_id"`
	Class            string         `db:"class" json:"class"`
	Section          string         `db:"section" json:"section"`
	TermID           string         `db:"term_id" json:"term_id"`
	AssessmentName   string         `db:"assessment_name" json:"assessment_name"`
	AssessmentType   AssessmentType `db:"assessment_type" json:"assessment_type"`
	TotalMarks       float64        `db:"total_marks" json:"total_marks"`
	WeightPercentage *float64       `db:"weight_percentage" json:"weight_percentage,omitempty"`
	Date             *time.Time     `db:"date" json:"date,omitempty"`
	IsPublished      bool           `db:"is_published" json:"is_published"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
	Components       []AssessmentComponent `json:"components,omitempty"`
}

// AssessmentComponent is a scored sub-part of an assessment. Component
// weights describe internal composition and are independent of the parent
// assessment's weight.
type AssessmentComponent struct {
	ID               string        `db:"id" json:"id"`
	AssessmentID     string        `db:"assessment_id" json:"assessment_id"`
	ComponentName    string        `db:"component_name" json:"component_name"`
	ComponentType    ComponentType `db:"component_type" json:"component_type"`
	MaxScore         float64       `db:"max_score" json:"max_score"`
	WeightPercentage *float64      `db:"weight_percentage" json:"weight_percentage,omitempty"`
	PassingMarks     *float64      `db:"passing_marks" json:"passing_marks,omitempty"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
}

// AssessmentFilter narrows assessment listings. SchoolID is mandatory and is
// supplied by the service from the resolved tenant, never by the client.
type AssessmentFilter struct {
	Class     string
	Section   string
	SubjectID string
	TermID    string
	Published *bool
}
