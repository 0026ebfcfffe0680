package models

import "time"

// GradeOverride forces a final grade for a (student, subject, term) triple.
// A row with nil ApprovedBy is pending; setting ApprovedBy/ApprovedAt makes
// it approved. Rejection is deletion, there is no terminal rejected state.
type GradeOverride struct {
	ID            string     `db:"id" json:"id"`
	SchoolID      string     `db:"school_id" json:"school_id"`
	StudentID     string     `db:"student_id" json:"student_id"`
	SubjectID     string     `db:"subject_id" json:"subject_id"`
	TermID        string     `db:"term_id" json:"term_id"`
	OverrideGrade string     `db:"override_grade" json:"override_grade"`
	Reason        string     `db:"reason" json:"reason"`
	ReasonBn      *string    `db:"reason_bn" json:"reason_bn,omitempty"`
	RequestedBy   string     `db:"requested_by" json:"requested_by"`
	ApprovedBy    *string    `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt    *time.Time `db:"approved_at" json:"approved_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Approved reports whether the override has been approved.
func (o *GradeOverride) Approved() bool {
	return o != nil && o.ApprovedBy != nil
}

// GradeEvent is the discrete payload handed to the notification subsystem.
// The core emits it; delivery happens elsewhere.
type GradeEvent struct {
	Type      string `json:"type"`
	SchoolID  string `json:"school_id"`
	SubjectID string `json:"subject_id"`
	StudentID string `json:"student_id"`
	Grade     string `json:"grade"`
}

const (
	// EventOverrideApproved is emitted when an override becomes approved.
	EventOverrideApproved = "grade_override.approved"
	// EventGradesPublished is emitted when an assessment's scores are published.
	EventGradesPublished = "grades.published"
)
