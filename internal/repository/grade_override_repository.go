package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edutrack/gradebook-api/internal/models"
)

// GradeOverrideRepository persists grade overrides.
type GradeOverrideRepository struct {
	db *sqlx.DB
}

// NewGradeOverrideRepository creates a new override repository.
func NewGradeOverrideRepository(db *sqlx.DB) *GradeOverrideRepository {
	return &GradeOverrideRepository{db: db}
}

const overrideColumns = `id, school_id, student_id, subject_id, term_id, override_grade, reason, reason_bn, requested_by, approved_by, approved_at, created_at, updated_at`

// FindByID loads one override within the school.
func (r *GradeOverrideRepository) FindByID(ctx context.Context, schoolID, id string) (*models.GradeOverride, error) {
	const query = `SELECT ` + overrideColumns + ` FROM grade_overrides WHERE id = $1 AND school_id = $2`
	var override models.GradeOverride
	if err := r.db.GetContext(ctx, &override, query, id, schoolID); err != nil {
		return nil, err
	}
	return &override, nil
}

// FindByTriple loads the override for (student, subject, term), sql.ErrNoRows
// when none exists.
func (r *GradeOverrideRepository) FindByTriple(ctx context.Context, schoolID, studentID, subjectID, termID string) (*models.GradeOverride, error) {
	const query = `SELECT ` + overrideColumns + ` FROM grade_overrides
        WHERE school_id = $1 AND student_id = $2 AND subject_id = $3 AND term_id = $4`
	var override models.GradeOverride
	if err := r.db.GetContext(ctx, &override, query, schoolID, studentID, subjectID, termID); err != nil {
		return nil, err
	}
	return &override, nil
}

// ListBySubjectTerm returns all overrides for a subject/term keyed by student.
func (r *GradeOverrideRepository) ListBySubjectTerm(ctx context.Context, schoolID, subjectID, termID string) (map[string]models.GradeOverride, error) {
	const query = `SELECT ` + overrideColumns + ` FROM grade_overrides WHERE school_id = $1 AND subject_id = $2 AND term_id = $3`
	rows, err := r.db.QueryxContext(ctx, query, schoolID, subjectID, termID)
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	defer rows.Close()
	result := make(map[string]models.GradeOverride)
	for rows.Next() {
		var override models.GradeOverride
		if err := rows.StructScan(&override); err != nil {
			return nil, fmt.Errorf("scan override: %w", err)
		}
		result[override.StudentID] = override
	}
	return result, nil
}

// ListPending returns the school's outstanding override requests.
func (r *GradeOverrideRepository) ListPending(ctx context.Context, schoolID string) ([]models.GradeOverride, error) {
	const query = `SELECT ` + overrideColumns + ` FROM grade_overrides WHERE school_id = $1 AND approved_by IS NULL ORDER BY created_at`
	var overrides []models.GradeOverride
	if err := r.db.SelectContext(ctx, &overrides, query, schoolID); err != nil {
		return nil, fmt.Errorf("list pending overrides: %w", err)
	}
	return overrides, nil
}

// Create inserts a pending override.
func (r *GradeOverrideRepository) Create(ctx context.Context, override *models.GradeOverride) error {
	if override.ID == "" {
		override.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	override.CreatedAt = now
	override.UpdatedAt = now
	const query = `INSERT INTO grade_overrides (id, school_id, student_id, subject_id, term_id, override_grade, reason, reason_bn, requested_by, approved_by, approved_at, created_at, updated_at)
        VALUES (:id, :school_id, :student_id, :subject_id, :term_id, :override_grade, :reason, :reason_bn, :requested_by, :approved_by, :approved_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, override); err != nil {
		return fmt.Errorf("create override: %w", err)
	}
	return nil
}

// UpdatePending rewrites a pending override's grade and justification. The
// WHERE clause keeps approved rows untouchable through this path.
func (r *GradeOverrideRepository) UpdatePending(ctx context.Context, override *models.GradeOverride) error {
	override.UpdatedAt = time.Now().UTC()
	const query = `UPDATE grade_overrides SET override_grade = :override_grade, reason = :reason, reason_bn = :reason_bn, requested_by = :requested_by, updated_at = :updated_at
        WHERE id = :id AND school_id = :school_id AND approved_by IS NULL`
	result, err := r.db.NamedExecContext(ctx, query, override)
	if err != nil {
		return fmt.Errorf("update override: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update override: %w", err)
	}
	if affected == 0 {
		return ErrScopeViolation
	}
	return nil
}

// Approve transitions pending to approved. The WHERE clause makes the
// transition race-safe: an already-approved row matches nothing.
func (r *GradeOverrideRepository) Approve(ctx context.Context, schoolID, id, approvedBy string, approvedAt time.Time) (bool, error) {
	const query = `UPDATE grade_overrides SET approved_by = $1, approved_at = $2, updated_at = $2
        WHERE id = $3 AND school_id = $4 AND approved_by IS NULL`
	result, err := r.db.ExecContext(ctx, query, approvedBy, approvedAt, id, schoolID)
	if err != nil {
		return false, fmt.Errorf("approve override: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("approve override: %w", err)
	}
	return affected > 0, nil
}

// Delete removes an override in either state. Rejection is deletion.
func (r *GradeOverrideRepository) Delete(ctx context.Context, schoolID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM grade_overrides WHERE id = $1 AND school_id = $2`, id, schoolID)
	if err != nil {
		return fmt.Errorf("delete override: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete override: %w", err)
	}
	if affected == 0 {
		return ErrScopeViolation
	}
	return nil
}
