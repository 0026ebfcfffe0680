package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edutrack/gradebook-api/internal/models"
)

// ErrScopeViolation is returned when a batch references rows outside the
// caller's school. The message carries no information about whose rows they
// are.
var ErrScopeViolation = errors.New("one or more rows are outside the school scope")

// ErrPublished is returned when a delete would remove a published assessment.
var ErrPublished = errors.New("assessment is published")

// AssessmentRepository handles assessment and component persistence. Every
// statement filters on school_id.
type AssessmentRepository struct {
	db *sqlx.DB
}

// NewAssessmentRepository creates a new assessment repository.
func NewAssessmentRepository(db *sqlx.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

// Create inserts a new assessment.
func (r *AssessmentRepository) Create(ctx context.Context, assessment *models.Assessment) error {
	if assessment.ID == "" {
		assessment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	assessment.CreatedAt = now
	assessment.UpdatedAt = now
	const query = `INSERT INTO assessments (id, school_id, subject_id, class, section, term_id, assessment_name, assessment_type, total_marks, weight_percentage, date, is_published, created_at, updated_at)
        VALUES (:id, :school_id, :subject_id, :class, :section, :term_id, :assessment_name, :assessment_type, :total_marks, :weight_percentage, :date, :is_published, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assessment); err != nil {
		return fmt.Errorf("create assessment: %w", err)
	}
	return nil
}

// Update rewrites mutable fields of an assessment within the school scope.
func (r *AssessmentRepository) Update(ctx context.Context, assessment *models.Assessment) error {
	assessment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE assessments SET subject_id = :subject_id, class = :class, section = :section, term_id = :term_id,
        assessment_name = :assessment_name, assessment_type = :assessment_type, total_marks = :total_marks,
        weight_percentage = :weight_percentage, date = :date, is_published = :is_published, updated_at = :updated_at
        WHERE id = :id AND school_id = :school_id`
	result, err := r.db.NamedExecContext(ctx, query, assessment)
	if err != nil {
		return fmt.Errorf("update assessment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update assessment: %w", err)
	}
	if affected == 0 {
		return ErrScopeViolation
	}
	return nil
}

// FindByID loads one assessment with its components. Rows belonging to other
// schools behave as if they do not exist.
func (r *AssessmentRepository) FindByID(ctx context.Context, schoolID, id string) (*models.Assessment, error) {
	const query = `SELECT id, school_id, subject_id, class, section, term_id, assessment_name, assessment_type, total_marks, weight_percentage, date, is_published, created_at, updated_at
        FROM assessments WHERE id = $1 AND school_id = $2`
	var assessment models.Assessment
	if err := r.db.GetContext(ctx, &assessment, query, id, schoolID); err != nil {
		return nil, err
	}
	components, err := r.ListComponents(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	assessment.Components = components
	return &assessment, nil
}

// List returns assessments matching the filter within one school.
func (r *AssessmentRepository) List(ctx context.Context, schoolID string, filter models.AssessmentFilter) ([]models.Assessment, error) {
	query := `SELECT id, school_id, subject_id, class, section, term_id, assessment_name, assessment_type, total_marks, weight_percentage, date, is_published, created_at, updated_at
        FROM assessments WHERE school_id = $1`
	args := []interface{}{schoolID}
	if filter.Class != "" {
		query += fmt.Sprintf(" AND class = $%d", len(args)+1)
		args = append(args, filter.Class)
	}
	if filter.Section != "" {
		query += fmt.Sprintf(" AND section = $%d", len(args)+1)
		args = append(args, filter.Section)
	}
	if filter.SubjectID != "" {
		query += fmt.Sprintf(" AND subject_id = $%d", len(args)+1)
		args = append(args, filter.SubjectID)
	}
	if filter.TermID != "" {
		query += fmt.Sprintf(" AND term_id = $%d", len(args)+1)
		args = append(args, filter.TermID)
	}
	if filter.Published != nil {
		query += fmt.Sprintf(" AND is_published = $%d", len(args)+1)
		args = append(args, *filter.Published)
	}
	query += " ORDER BY date NULLS LAST, created_at"
	var assessments []models.Assessment
	if err := r.db.SelectContext(ctx, &assessments, query, args...); err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	return assessments, nil
}

// SetPublished toggles publication.
func (r *AssessmentRepository) SetPublished(ctx context.Context, schoolID, id string, published bool) error {
	const query = `UPDATE assessments SET is_published = $1, updated_at = $2 WHERE id = $3 AND school_id = $4`
	result, err := r.db.ExecContext(ctx, query, published, time.Now().UTC(), id, schoolID)
	if err != nil {
		return fmt.Errorf("publish assessment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("publish assessment: %w", err)
	}
	if affected == 0 {
		return ErrScopeViolation
	}
	return nil
}

// CreateComponent inserts a component under an assessment. The parent is
// verified against the school before the insert.
func (r *AssessmentRepository) CreateComponent(ctx context.Context, schoolID string, component *models.AssessmentComponent) error {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM assessments WHERE id = $1 AND school_id = $2)`, component.AssessmentID, schoolID); err != nil {
		return fmt.Errorf("verify assessment scope: %w", err)
	}
	if !exists {
		return ErrScopeViolation
	}
	if component.ID == "" {
		component.ID = uuid.NewString()
	}
	component.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO assessment_components (id, assessment_id, component_name, component_type, max_score, weight_percentage, passing_marks, created_at)
        VALUES (:id, :assessment_id, :component_name, :component_type, :max_score, :weight_percentage, :passing_marks, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, component); err != nil {
		return fmt.Errorf("create component: %w", err)
	}
	return nil
}

// ListComponents returns components of one assessment within the school.
func (r *AssessmentRepository) ListComponents(ctx context.Context, schoolID, assessmentID string) ([]models.AssessmentComponent, error) {
	const query = `SELECT ac.id, ac.assessment_id, ac.component_name, ac.component_type, ac.max_score, ac.weight_percentage, ac.passing_marks, ac.created_at
        FROM assessment_components ac
        JOIN assessments a ON a.id = ac.assessment_id
        WHERE ac.assessment_id = $1 AND a.school_id = $2
        ORDER BY ac.created_at`
	var components []models.AssessmentComponent
	if err := r.db.SelectContext(ctx, &components, query, assessmentID, schoolID); err != nil {
		return nil, fmt.Errorf("list components: %w", err)
	}
	return components, nil
}

// DeleteComponent removes one component, verifying the parent's school.
func (r *AssessmentRepository) DeleteComponent(ctx context.Context, schoolID, assessmentID, componentID string) error {
	const query = `DELETE FROM assessment_components ac USING assessments a
        WHERE ac.id = $1 AND ac.assessment_id = $2 AND a.id = ac.assessment_id AND a.school_id = $3`
	result, err := r.db.ExecContext(ctx, query, componentID, assessmentID, schoolID)
	if err != nil {
		return fmt.Errorf("delete component: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete component: %w", err)
	}
	if affected == 0 {
		return ErrScopeViolation
	}
	return nil
}

// BulkDelete removes a batch of assessments atomically. Inside one
// transaction it first proves every id belongs to the school and that none
// is published, then cascades scores and score history. Any violation rolls
// the whole batch back.
func (r *AssessmentRepository) BulkDelete(ctx context.Context, schoolID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	placeholders := make([]string, len(ids))
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, schoolID)
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}
	in := strings.Join(placeholders, ",")

	var owned int
	if err := tx.GetContext(ctx, &owned, fmt.Sprintf(`SELECT COUNT(*) FROM assessments WHERE school_id = $1 AND id IN (%s)`, in), args...); err != nil {
		return fmt.Errorf("verify bulk delete scope: %w", err)
	}
	if owned != len(ids) {
		return ErrScopeViolation
	}

	var published int
	if err := tx.GetContext(ctx, &published, fmt.Sprintf(`SELECT COUNT(*) FROM assessments WHERE school_id = $1 AND id IN (%s) AND is_published`, in), args...); err != nil {
		return fmt.Errorf("verify publication state: %w", err)
	}
	if published > 0 {
		return ErrPublished
	}

	statements := []string{
		fmt.Sprintf(`DELETE FROM grade_history WHERE school_id = $1 AND assessment_id IN (%s)`, in),
		fmt.Sprintf(`DELETE FROM student_scores WHERE school_id = $1 AND assessment_id IN (%s)`, in),
		fmt.Sprintf(`DELETE FROM assessment_components WHERE assessment_id IN (%s) AND assessment_id IN (SELECT id FROM assessments WHERE school_id = $1)`, in),
		fmt.Sprintf(`DELETE FROM assessments WHERE school_id = $1 AND id IN (%s)`, in),
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("bulk delete assessments: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk delete: %w", err)
	}
	return nil
}
