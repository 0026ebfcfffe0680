package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edutrack/gradebook-api/internal/models"
)

// ScoreRepository persists student scores and their append-only history.
type ScoreRepository struct {
	db *sqlx.DB
}

// NewScoreRepository creates a new score repository.
func NewScoreRepository(db *sqlx.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

const scoreColumns = `id, school_id, student_id, assessment_id, score_obtained, is_absent, graded_date, created_at, updated_at`

// Upsert writes the single active score for (student, assessment). The
// read-modify-write runs inside a transaction with the existing row locked,
// so two staff members editing the same score cannot lose an update. When an
// existing row changes, a history entry is appended first.
func (r *ScoreRepository) Upsert(ctx context.Context, score *models.StudentScore, changedBy, reason string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin score upsert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := upsertScoreTx(ctx, tx, score, changedBy, reason); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit score upsert: %w", err)
	}
	return nil
}

// BulkUpsert writes many scores in a single transaction, all or nothing.
func (r *ScoreRepository) BulkUpsert(ctx context.Context, scores []models.StudentScore, changedBy, reason string) error {
	if len(scores) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk score upsert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for i := range scores {
		if err := upsertScoreTx(ctx, tx, &scores[i], changedBy, reason); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk score upsert: %w", err)
	}
	return nil
}

func upsertScoreTx(ctx context.Context, tx *sqlx.Tx, score *models.StudentScore, changedBy, reason string) error {
	var existing models.StudentScore
	err := tx.GetContext(ctx, &existing,
		`SELECT `+scoreColumns+` FROM student_scores WHERE school_id = $1 AND student_id = $2 AND assessment_id = $3 FOR UPDATE`,
		score.SchoolID, score.StudentID, score.AssessmentID)
	now := time.Now().UTC()
	switch {
	case err == nil:
		if scoreChanged(&existing, score) {
			history := models.GradeHistoryEntry{
				ID:           uuid.NewString(),
				SchoolID:     score.SchoolID,
				ScoreID:      existing.ID,
				StudentID:    score.StudentID,
				AssessmentID: score.AssessmentID,
				OldScore:     effectiveScore(&existing),
				NewScore:     effectiveScore(score),
				ChangedBy:    changedBy,
				ChangeReason: reason,
				CreatedAt:    now,
			}
			const historyQuery = `INSERT INTO grade_history (id, school_id, score_id, student_id, assessment_id, old_score, new_score, changed_by, change_reason, created_at)
                VALUES (:id, :school_id, :score_id, :student_id, :assessment_id, :old_score, :new_score, :changed_by, :change_reason, :created_at)`
			if _, err := tx.NamedExecContext(ctx, historyQuery, history); err != nil {
				return fmt.Errorf("append grade history: %w", err)
			}
		}
		score.ID = existing.ID
		score.CreatedAt = existing.CreatedAt
		score.UpdatedAt = now
		const updateQuery = `UPDATE student_scores SET score_obtained = :score_obtained, is_absent = :is_absent, graded_date = :graded_date, updated_at = :updated_at
            WHERE id = :id AND school_id = :school_id`
		if _, err := tx.NamedExecContext(ctx, updateQuery, score); err != nil {
			return fmt.Errorf("update score: %w", err)
		}
		return nil
	case errors.Is(err, sql.ErrNoRows):
		if score.ID == "" {
			score.ID = uuid.NewString()
		}
		score.CreatedAt = now
		score.UpdatedAt = now
		const insertQuery = `INSERT INTO student_scores (id, school_id, student_id, assessment_id, score_obtained, is_absent, graded_date, created_at, updated_at)
            VALUES (:id, :school_id, :student_id, :assessment_id, :score_obtained, :is_absent, :graded_date, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, insertQuery, score); err != nil {
			return fmt.Errorf("insert score: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("load score: %w", err)
	}
}

// effectiveScore is the value grading sees: nil when absent.
func effectiveScore(s *models.StudentScore) *float64 {
	if s.IsAbsent {
		return nil
	}
	return s.ScoreObtained
}

func scoreChanged(old, new *models.StudentScore) bool {
	if old.IsAbsent != new.IsAbsent {
		return true
	}
	a, b := effectiveScore(old), effectiveScore(new)
	if (a == nil) != (b == nil) {
		return true
	}
	return a != nil && b != nil && *a != *b
}

// ListByAssessment returns all scores for one assessment within the school.
func (r *ScoreRepository) ListByAssessment(ctx context.Context, schoolID, assessmentID string) ([]models.StudentScore, error) {
	const query = `SELECT ` + scoreColumns + ` FROM student_scores WHERE school_id = $1 AND assessment_id = $2 ORDER BY student_id`
	var scores []models.StudentScore
	if err := r.db.SelectContext(ctx, &scores, query, schoolID, assessmentID); err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	return scores, nil
}

// ListByAssessments returns scores for a set of assessments keyed by student.
func (r *ScoreRepository) ListByAssessments(ctx context.Context, schoolID string, assessmentIDs []string) (map[string][]models.StudentScore, error) {
	if len(assessmentIDs) == 0 {
		return map[string][]models.StudentScore{}, nil
	}
	placeholders := make([]string, len(assessmentIDs))
	args := make([]interface{}, 0, len(assessmentIDs)+1)
	args = append(args, schoolID)
	for i, id := range assessmentIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}
	query := fmt.Sprintf(`SELECT `+scoreColumns+` FROM student_scores WHERE school_id = $1 AND assessment_id IN (%s)`, strings.Join(placeholders, ","))
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch scores: %w", err)
	}
	defer rows.Close()
	result := make(map[string][]models.StudentScore)
	for rows.Next() {
		var score models.StudentScore
		if err := rows.StructScan(&score); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		result[score.StudentID] = append(result[score.StudentID], score)
	}
	return result, nil
}

// FindByStudentAssessment loads one active score row.
func (r *ScoreRepository) FindByStudentAssessment(ctx context.Context, schoolID, studentID, assessmentID string) (*models.StudentScore, error) {
	const query = `SELECT ` + scoreColumns + ` FROM student_scores WHERE school_id = $1 AND student_id = $2 AND assessment_id = $3`
	var score models.StudentScore
	if err := r.db.GetContext(ctx, &score, query, schoolID, studentID, assessmentID); err != nil {
		return nil, err
	}
	return &score, nil
}

// History returns the append-only change log for one score row, oldest first.
func (r *ScoreRepository) History(ctx context.Context, schoolID, scoreID string) ([]models.GradeHistoryEntry, error) {
	const query = `SELECT id, school_id, score_id, student_id, assessment_id, old_score, new_score, changed_by, change_reason, created_at
        FROM grade_history WHERE school_id = $1 AND score_id = $2 ORDER BY created_at`
	var entries []models.GradeHistoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, schoolID, scoreID); err != nil {
		return nil, fmt.Errorf("load grade history: %w", err)
	}
	return entries, nil
}
