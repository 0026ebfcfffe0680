package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/edutrack/gradebook-api/internal/models"
	"github.com/edutrack/gradebook-api/internal/repository"
	appErrors "github.com/edutrack/gradebook-api/pkg/errors"
)

type gradeScaleRepo interface {
	List(ctx context.Context, schoolID string) ([]models.GradeScale, error)
	FindByID(ctx context.Context, schoolID, id string) (*models.GradeScale, error)
	FindDefault(ctx context.Context, schoolID string) (*models.GradeScale, error)
	Create(ctx context.Context, scale *models.GradeScale) error
	Update(ctx context.Context, scale *models.GradeScale) error
	SetDefault(ctx context.Context, schoolID, id string) error
	Delete(ctx context.Context, schoolID, id string) error
}

// CreateGradeScaleRequest is the payload for defining a scale.
type CreateGradeScaleRequest struct {
	ScaleName   string             `json:"scale_name" validate:"required"`
	ScaleType   models.GradeScaleType `json:"scale_type" validate:"required,oneof=letter gpa percentage"`
	GradeLabels []models.GradeBand `json:"grade_labels" validate:"required,min=1,dive"`
	IsDefault   bool               `json:"is_default"`
}

// GradeScaleService manages tenant grade scale configuration. The school's
// default scale is cached in redis and invalidated on every write.
type GradeScaleService struct {
	scales    gradeScaleRepo
	cache     *redis.Client
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradeScaleService constructs GradeScaleService. cache may be nil.
func NewGradeScaleService(scales gradeScaleRepo, cache *redis.Client, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *GradeScaleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeScaleService{scales: scales, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// List returns the school's scales.
func (s *GradeScaleService) List(ctx context.Context, schoolID string) ([]models.GradeScale, error) {
	scales, err := s.scales.List(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grade scales")
	}
	return scales, nil
}

// Get returns one scale.
func (s *GradeScaleService) Get(ctx context.Context, schoolID, id string) (*models.GradeScale, error) {
	scale, err := s.scales.FindByID(ctx, schoolID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade scale not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade scale")
	}
	return scale, nil
}

// Default returns the school's default scale, or nil when none is
// configured (the fixed thresholds apply then).
func (s *GradeScaleService) Default(ctx context.Context, schoolID string) (*models.GradeScale, error) {
	if cached := s.cachedDefault(ctx, schoolID); cached != nil {
		return cached, nil
	}
	scale, err := s.scales.FindDefault(ctx, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load default scale")
	}
	s.storeDefault(ctx, schoolID, scale)
	return scale, nil
}

// Create validates and stores a new scale.
func (s *GradeScaleService) Create(ctx context.Context, schoolID string, req CreateGradeScaleRequest) (*models.GradeScale, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade scale payload")
	}
	if err := validateBands(req.GradeLabels); err != nil {
		return nil, err
	}
	scale := &models.GradeScale{
		SchoolID:    schoolID,
		ScaleName:   req.ScaleName,
		ScaleType:   req.ScaleType,
		GradeLabels: req.GradeLabels,
	}
	if err := s.scales.Create(ctx, scale); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create grade scale")
	}
	if req.IsDefault {
		if err := s.SetDefault(ctx, schoolID, scale.ID); err != nil {
			return nil, err
		}
		scale.IsDefault = true
	}
	return scale, nil
}

// Update validates and rewrites a scale.
func (s *GradeScaleService) Update(ctx context.Context, schoolID, id string, req CreateGradeScaleRequest) (*models.GradeScale, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade scale payload")
	}
	if err := validateBands(req.GradeLabels); err != nil {
		return nil, err
	}
	scale, err := s.Get(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	scale.ScaleName = req.ScaleName
	scale.ScaleType = req.ScaleType
	scale.GradeLabels = req.GradeLabels
	if err := s.scales.Update(ctx, scale); err != nil {
		if errors.Is(err, repository.ErrScopeViolation) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade scale not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grade scale")
	}
	s.invalidateDefault(ctx, schoolID)
	return scale, nil
}

// SetDefault promotes a scale; any previous default is demoted atomically.
func (s *GradeScaleService) SetDefault(ctx context.Context, schoolID, id string) error {
	if err := s.scales.SetDefault(ctx, schoolID, id); err != nil {
		if errors.Is(err, repository.ErrScopeViolation) {
			return appErrors.Clone(appErrors.ErrNotFound, "grade scale not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set default scale")
	}
	s.invalidateDefault(ctx, schoolID)
	return nil
}

// Delete removes a scale.
func (s *GradeScaleService) Delete(ctx context.Context, schoolID, id string) error {
	if err := s.scales.Delete(ctx, schoolID, id); err != nil {
		if errors.Is(err, repository.ErrScopeViolation) {
			return appErrors.Clone(appErrors.ErrNotFound, "grade scale not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete grade scale")
	}
	s.invalidateDefault(ctx, schoolID)
	return nil
}

// validateBands checks bands are well-formed and non-overlapping.
func validateBands(bands []models.GradeBand) error {
	sorted := make([]models.GradeBand, len(bands))
	copy(sorted, bands)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min < sorted[j].Min })
	for i, band := range sorted {
		if band.Min > band.Max {
			return appErrors.Clone(appErrors.ErrInvalidBands, fmt.Sprintf("band %q has min above max", band.Grade))
		}
		if band.Grade == "" {
			return appErrors.Clone(appErrors.ErrInvalidBands, "band grade label required")
		}
		if i > 0 && band.Min <= sorted[i-1].Max {
			return appErrors.Clone(appErrors.ErrInvalidBands, fmt.Sprintf("bands %q and %q overlap", sorted[i-1].Grade, band.Grade))
		}
	}
	return nil
}

func defaultScaleKey(schoolID string) string {
	return "grade_scale:default:" + schoolID
}

func (s *GradeScaleService) cachedDefault(ctx context.Context, schoolID string) *models.GradeScale {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, defaultScaleKey(schoolID)).Bytes()
	if err != nil {
		return nil
	}
	var scale models.GradeScale
	if err := json.Unmarshal(raw, &scale); err != nil {
		return nil
	}
	return &scale
}

func (s *GradeScaleService) storeDefault(ctx context.Context, schoolID string, scale *models.GradeScale) {
	if s.cache == nil || scale == nil {
		return
	}
	raw, err := json.Marshal(scale)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, defaultScaleKey(schoolID), raw, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("failed to cache default scale", zap.Error(err))
	}
}

func (s *GradeScaleService) invalidateDefault(ctx context.Context, schoolID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, defaultScaleKey(schoolID)).Err(); err != nil {
		s.logger.Warn("failed to invalidate scale cache", zap.Error(err))
	}
}
