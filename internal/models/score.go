package models

import "time"

// StudentScore is the single active score row for a (student, assessment)
// pair. When IsAbsent is set the numeric value is ignored for grading,
// whatever is stored.
type StudentScore struct {
	ID            string     `db:"id" json:"id"`
	SchoolID      string     `db:"school_id" json:"school_id"`
	StudentID     string     `db:"student_id" json:"student_id"`
	AssessmentID  string     `db:"assessment_id" json:"assessment_id"`
	ScoreObtained *float64   `db:"score_obtained" json:"score_obtained,omitempty"`
	IsAbsent      bool       `db:"is_absent" json:"is_absent"`
	GradedDate    *time.Time `db:"graded_date" json:"graded_date,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// GradeHistoryEntry is the append-only log row written whenever an existing
// score changes. Rows are never updated or deleted.
type GradeHistoryEntry struct {
	ID           string    `db:"id" json:"id"`
	SchoolID     string    `db:"school_id" json:"school_id"`
	ScoreID      string    `db:"score_id" json:"score_id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	AssessmentID string    `db:"assessment_id" json:"assessment_id"`
	OldScore     *float64  `db:"old_score" json:"old_score,omitempty"`
	NewScore     *float64  `db:"new_score" json:"new_score,omitempty"`
	ChangedBy    string    `db:"changed_by" json:"changed_by"`
	ChangeReason string    `db:"change_reason" json:"change_reason"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ScoreFilter narrows score listings within the resolved tenant.
type ScoreFilter struct {
	AssessmentID string
	StudentID    string
}
