package models

// GradeDistribution summarises one assessment's scores. TotalStudents counts
// every recorded score including absences; Average is over non-absent scores
// only.
type GradeDistribution struct {
	AssessmentID  string         `json:"assessment_id"`
	TotalStudents int            `json:"total_students"`
	GradedCount   int            `json:"graded_count"`
	AbsentCount   int            `json:"absent_count"`
	Average       *float64       `json:"average,omitempty"`
	GradeCounts   map[string]int `json:"grade_counts"`
}

// SubjectGrade is a student's rendered grade for one subject/term. Composite
// is nil when the student has no gradable scores yet. When an approved
// override exists its grade supersedes the computed letter; a pending
// override only raises the indicator.
type SubjectGrade struct {
	StudentID       string   `json:"student_id"`
	SubjectID       string   `json:"subject_id"`
	TermID          string   `json:"term_id"`
	Composite       *float64 `json:"composite,omitempty"`
	Letter          string   `json:"letter,omitempty"`
	GPA             *float64 `json:"gpa,omitempty"`
	Overridden      bool     `json:"overridden"`
	PendingOverride bool     `json:"pending_override"`
}

// GradebookCell is one score in the grid projection.
type GradebookCell struct {
	AssessmentID  string   `json:"assessment_id"`
	ScoreObtained *float64 `json:"score_obtained,omitempty"`
	IsAbsent      bool     `json:"is_absent"`
	Percentage    *float64 `json:"percentage,omitempty"`
}

// GradebookRow is one student row in the grid projection.
type GradebookRow struct {
	StudentID string          `json:"student_id"`
	Cells     []GradebookCell `json:"cells"`
	Final     SubjectGrade    `json:"final"`
}

// GradebookGrid is the read-only {student, assessment, score, computed grade}
// projection consumed by export and report generators. It is a plain tabular
// structure independent of presentation format.
type GradebookGrid struct {
	SchoolID    string       `json:"school_id"`
	SubjectID   string       `json:"subject_id"`
	Class       string       `json:"class"`
	Section     string       `json:"section"`
	TermID      string       `json:"term_id"`
	Assessments []Assessment `json:"assessments"`
	Rows        []GradebookRow `json:"rows"`
}
