package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edutrack/gradebook-api/internal/models"
)

// GradeScaleRepository persists tenant grade scales. Bands live in a JSONB
// column and are (de)serialised here so callers only ever see []GradeBand.
type GradeScaleRepository struct {
	db *sqlx.DB
}

// NewGradeScaleRepository creates a new grade scale repository.
func NewGradeScaleRepository(db *sqlx.DB) *GradeScaleRepository {
	return &GradeScaleRepository{db: db}
}

type gradeScaleRow struct {
	ID          string    `db:"id"`
	SchoolID    string    `db:"school_id"`
	ScaleName   string    `db:"scale_name"`
	ScaleType   string    `db:"scale_type"`
	GradeLabels []byte    `db:"grade_labels"`
	IsDefault   bool      `db:"is_default"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (row gradeScaleRow) toModel() (models.GradeScale, error) {
	scale := models.GradeScale{
		ID:        row.ID,
		SchoolID:  row.SchoolID,
		ScaleName: row.ScaleName,
		ScaleType: models.GradeScaleType(row.ScaleType),
		IsDefault: row.IsDefault,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if len(row.GradeLabels) > 0 {
		if err := json.Unmarshal(row.GradeLabels, &scale.GradeLabels); err != nil {
			return scale, fmt.Errorf("decode grade bands: %w", err)
		}
	}
	return scale, nil
}

const gradeScaleColumns = `id, school_id, scale_name, scale_type, grade_labels, is_default, created_at, updated_at`

// List returns all scales for one school, default first.
func (r *GradeScaleRepository) List(ctx context.Context, schoolID string) ([]models.GradeScale, error) {
	const query = `SELECT ` + gradeScaleColumns + ` FROM grade_scales WHERE school_id = $1 ORDER BY is_default DESC, scale_name`
	var rows []gradeScaleRow
	if err := r.db.SelectContext(ctx, &rows, query, schoolID); err != nil {
		return nil, fmt.Errorf("list grade scales: %w", err)
	}
	scales := make([]models.GradeScale, 0, len(rows))
	for _, row := range rows {
		scale, err := row.toModel()
		if err != nil {
			return nil, err
		}
		scales = append(scales, scale)
	}
	return scales, nil
}

// FindByID loads one scale within the school.
func (r *GradeScaleRepository) FindByID(ctx context.Context, schoolID, id string) (*models.GradeScale, error) {
	const query = `SELECT ` + gradeScaleColumns + ` FROM grade_scales WHERE id = $1 AND school_id = $2`
	var row gradeScaleRow
	if err := r.db.GetContext(ctx, &row, query, id, schoolID); err != nil {
		return nil, err
	}
	scale, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &scale, nil
}

// FindDefault loads the school's default scale, sql.ErrNoRows when none is
// configured.
func (r *GradeScaleRepository) FindDefault(ctx context.Context, schoolID string) (*models.GradeScale, error) {
	const query = `SELECT ` + gradeScaleColumns + ` FROM grade_scales WHERE school_id = $1 AND is_default`
	var row gradeScaleRow
	if err := r.db.GetContext(ctx, &row, query, schoolID); err != nil {
		return nil, err
	}
	scale, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &scale, nil
}

// Create inserts a scale.
func (r *GradeScaleRepository) Create(ctx context.Context, scale *models.GradeScale) error {
	if scale.ID == "" {
		scale.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	scale.CreatedAt = now
	scale.UpdatedAt = now
	bands, err := json.Marshal(scale.GradeLabels)
	if err != nil {
		return fmt.Errorf("encode grade bands: %w", err)
	}
	const query = `INSERT INTO grade_scales (id, school_id, scale_name, scale_type, grade_labels, is_default, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query, scale.ID, scale.SchoolID, scale.ScaleName, string(scale.ScaleType), bands, scale.IsDefault, scale.CreatedAt, scale.UpdatedAt); err != nil {
		return fmt.Errorf("create grade scale: %w", err)
	}
	return nil
}

// Update rewrites a scale within the school scope.
func (r *GradeScaleRepository) Update(ctx context.Context, scale *models.GradeScale) error {
	scale.UpdatedAt = time.Now().UTC()
	bands, err := json.Marshal(scale.GradeLabels)
	if err != nil {
		return fmt.Errorf("encode grade bands: %w", err)
	}
	const query = `UPDATE grade_scales SET scale_name = $1, scale_type = $2, grade_labels = $3, updated_at = $4
        WHERE id = $5 AND school_id = $6`
	result, err := r.db.ExecContext(ctx, query, scale.ScaleName, string(scale.ScaleType), bands, scale.UpdatedAt, scale.ID, scale.SchoolID)
	if err != nil {
		return fmt.Errorf("update grade scale: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update grade scale: %w", err)
	}
	if affected == 0 {
		return ErrScopeViolation
	}
	return nil
}

// SetDefault promotes one scale to default, demoting any sibling inside the
// same transaction so the school never has two defaults.
func (r *GradeScaleRepository) SetDefault(ctx context.Context, schoolID, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set default: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `UPDATE grade_scales SET is_default = FALSE, updated_at = $1 WHERE school_id = $2 AND is_default`, time.Now().UTC(), schoolID); err != nil {
		return fmt.Errorf("demote default scale: %w", err)
	}
	result, err := tx.ExecContext(ctx, `UPDATE grade_scales SET is_default = TRUE, updated_at = $1 WHERE id = $2 AND school_id = $3`, time.Now().UTC(), id, schoolID)
	if err != nil {
		return fmt.Errorf("promote default scale: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("promote default scale: %w", err)
	}
	if affected == 0 {
		return ErrScopeViolation
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit set default: %w", err)
	}
	return nil
}

// Delete removes a scale within the school scope.
func (r *GradeScaleRepository) Delete(ctx context.Context, schoolID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM grade_scales WHERE id = $1 AND school_id = $2`, id, schoolID)
	if err != nil {
		return fmt.Errorf("delete grade scale: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete grade scale: %w", err)
	}
	if affected == 0 {
		return ErrScopeViolation
	}
	return nil
}
