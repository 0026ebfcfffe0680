package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edutrack/gradebook-api/internal/models"
	"github.com/edutrack/gradebook-api/internal/repository"
	appErrors "github.com/edutrack/gradebook-api/pkg/errors"
)

type assessmentRepo interface {
	Create(ctx context.Context, assessment *models.Assessment) error
	Update(ctx context.Context, assessment *models.Assessment) error
	FindByID(ctx context.Context, schoolID, id string) (*models.Assessment, error)
	List(ctx context.Context, schoolID string, filter models.AssessmentFilter) ([]models.Assessment, error)
	SetPublished(ctx context.Context, schoolID, id string, published bool) error
	CreateComponent(ctx context.Context, schoolID string, component *models.AssessmentComponent) error
	ListComponents(ctx context.Context, schoolID, assessmentID string) ([]models.AssessmentComponent, error)
	DeleteComponent(ctx context.Context, schoolID, assessmentID, componentID string) error
	BulkDelete(ctx context.Context, schoolID string, ids []string) error
}

// CreateAssessmentRequest is the payload for defining a gradable event.
type CreateAssessmentRequest struct {
	SubjectID        string     `json:"subject_id" validate:"required"`
	Class            string     `json:"class" validate:"required"`
	Section          string     `json:"section" validate:"required"`
	TermID           string     `json:"term_id" validate:"required"`
	AssessmentName   string     `json:"assessment_name" validate:"required"`
	AssessmentType   string     `json:"assessment_type" validate:"required,oneof=exam test quiz homework project"`
	TotalMarks       float64    `json:"total_marks" validate:"required,gt=0"`
	WeightPercentage *float64   `json:"weight_percentage" validate:"omitempty,gt=0,lte=100"`
	Date             *time.Time `json:"date"`
}

// AddComponentRequest defines a sub-part of an assessment.
type AddComponentRequest struct {
	ComponentName    string   `json:"component_name" validate:"required"`
	ComponentType    string   `json:"component_type" validate:"required,oneof=MCQ Written Practical Oral"`
	MaxScore         float64  `json:"max_score" validate:"required,gt=0"`
	WeightPercentage *float64 `json:"weight_percentage" validate:"omitempty,gt=0,lte=100"`
	PassingMarks     *float64 `json:"passing_marks" validate:"omitempty,gte=0"`
}

// CopyAssessmentRequest targets another class/section within the same school.
type CopyAssessmentRequest struct {
	Class   string `json:"class" validate:"required"`
	Section string `json:"section" validate:"required"`
}

// BulkDeleteRequest carries the ids for an atomic batch delete.
type BulkDeleteRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// AssessmentService orchestrates assessment definition CRUD and the bulk
// operations layer. Every call receives the resolved school id from the
// handler; requests never carry one.
type AssessmentService struct {
	assessments assessmentRepo
	validator   *validator.Validate
	logger      *zap.Logger
	notifier    Notifier
}

// NewAssessmentService constructs AssessmentService.
func NewAssessmentService(assessments assessmentRepo, validate *validator.Validate, logger *zap.Logger, notifier Notifier) *AssessmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &AssessmentService{assessments: assessments, validator: validate, logger: logger, notifier: notifier}
}

// Create validates and stores a new assessment under the school.
func (s *AssessmentService) Create(ctx context.Context, schoolID string, req CreateAssessmentRequest) (*models.Assessment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assessment payload")
	}
	assessment := &models.Assessment{
		SchoolID:         schoolID,
		SubjectID:        req.SubjectID,
		Class:            req.Class,
		Section:          req.Section,
		TermID:           req.TermID,
		AssessmentName:   req.AssessmentName,
		AssessmentType:   models.AssessmentType(req.AssessmentType),
		TotalMarks:       req.TotalMarks,
		WeightPercentage: req.WeightPercentage,
		Date:             req.Date,
	}
	if err := s.assessments.Create(ctx, assessment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assessment")
	}
	return assessment, nil
}

// Update rewrites an assessment's mutable fields.
func (s *AssessmentService) Update(ctx context.Context, schoolID, id string, req CreateAssessmentRequest) (*models.Assessment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assessment payload")
	}
	assessment, err := s.Get(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	assessment.SubjectID = req.SubjectID
	assessment.Class = req.Class
	assessment.Section = req.Section
	assessment.TermID = req.TermID
	assessment.AssessmentName = req.AssessmentName
	assessment.AssessmentType = models.AssessmentType(req.AssessmentType)
	assessment.TotalMarks = req.TotalMarks
	assessment.WeightPercentage = req.WeightPercentage
	assessment.Date = req.Date
	if err := s.assessments.Update(ctx, assessment); err != nil {
		if errors.Is(err, repository.ErrScopeViolation) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assessment")
	}
	return assessment, nil
}

// Get loads one assessment with components.
func (s *AssessmentService) Get(ctx context.Context, schoolID, id string) (*models.Assessment, error) {
	assessment, err := s.assessments.FindByID(ctx, schoolID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessment")
	}
	return assessment, nil
}

// List returns assessments matching the filter.
func (s *AssessmentService) List(ctx context.Context, schoolID string, filter models.AssessmentFilter) ([]models.Assessment, error) {
	assessments, err := s.assessments.List(ctx, schoolID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assessments")
	}
	return assessments, nil
}

// Publish marks an assessment's results as published and emits an event
// payload for the notification subsystem.
func (s *AssessmentService) Publish(ctx context.Context, schoolID, id string) error {
	assessment, err := s.Get(ctx, schoolID, id)
	if err != nil {
		return err
	}
	if err := s.assessments.SetPublished(ctx, schoolID, id, true); err != nil {
		if errors.Is(err, repository.ErrScopeViolation) {
			return appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish assessment")
	}
	s.notifier.Notify(ctx, models.GradeEvent{
		Type:      models.EventGradesPublished,
		SchoolID:  schoolID,
		SubjectID: assessment.SubjectID,
	})
	return nil
}

// AddComponent attaches a sub-part to an assessment. Component weights are
// internal composition and may not push the total past 100.
func (s *AssessmentService) AddComponent(ctx context.Context, schoolID, assessmentID string, req AddComponentRequest) (*models.AssessmentComponent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid component payload")
	}
	if req.WeightPercentage != nil {
		existing, err := s.assessments.ListComponents(ctx, schoolID, assessmentID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list components")
		}
		total := *req.WeightPercentage
		for _, comp := range existing {
			if comp.WeightPercentage != nil {
				total += *comp.WeightPercentage
			}
		}
		if total > 100 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "component weights exceed 100")
		}
	}
	component := &models.AssessmentComponent{
		AssessmentID:     assessmentID,
		ComponentName:    req.ComponentName,
		ComponentType:    models.ComponentType(req.ComponentType),
		MaxScore:         req.MaxScore,
		WeightPercentage: req.WeightPercentage,
		PassingMarks:     req.PassingMarks,
	}
	if err := s.assessments.CreateComponent(ctx, schoolID, component); err != nil {
		if errors.Is(err, repository.ErrScopeViolation) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create component")
	}
	return component, nil
}

// RemoveComponent deletes one component.
func (s *AssessmentService) RemoveComponent(ctx context.Context, schoolID, assessmentID, componentID string) error {
	if err := s.assessments.DeleteComponent(ctx, schoolID, assessmentID, componentID); err != nil {
		if errors.Is(err, repository.ErrScopeViolation) {
			return appErrors.Clone(appErrors.ErrNotFound, "component not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete component")
	}
	return nil
}

// Duplicate clones an assessment's definition (components included, scores
// never) within its own class/section.
func (s *AssessmentService) Duplicate(ctx context.Context, schoolID, id string) (*models.Assessment, error) {
	return s.clone(ctx, schoolID, id, "", "")
}

// CopyToClass clones an assessment's definition into another class/section,
// always within the same school.
func (s *AssessmentService) CopyToClass(ctx context.Context, schoolID, id string, req CopyAssessmentRequest) (*models.Assessment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid copy payload")
	}
	return s.clone(ctx, schoolID, id, req.Class, req.Section)
}

func (s *AssessmentService) clone(ctx context.Context, schoolID, id, class, section string) (*models.Assessment, error) {
	source, err := s.Get(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	copyName := source.AssessmentName
	if class == "" {
		copyName += " (copy)"
	}
	clone := &models.Assessment{
		SchoolID:         schoolID,
		SubjectID:        source.SubjectID,
		Class:            source.Class,
		Section:          source.Section,
		TermID:           source.TermID,
		AssessmentName:   copyName,
		AssessmentType:   source.AssessmentType,
		TotalMarks:       source.TotalMarks,
		WeightPercentage: source.WeightPercentage,
		Date:             source.Date,
	}
	if class != "" {
		clone.Class = class
		clone.Section = section
	}
	if err := s.assessments.Create(ctx, clone); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clone assessment")
	}
	for _, comp := range source.Components {
		component := &models.AssessmentComponent{
			AssessmentID:     clone.ID,
			ComponentName:    comp.ComponentName,
			ComponentType:    comp.ComponentType,
			MaxScore:         comp.MaxScore,
			WeightPercentage: comp.WeightPercentage,
			PassingMarks:     comp.PassingMarks,
		}
		if err := s.assessments.CreateComponent(ctx, schoolID, component); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clone component")
		}
		clone.Components = append(clone.Components, *component)
	}
	return clone, nil
}

// BulkDelete removes a batch of assessments atomically. A single id outside
// the school fails the whole batch; a published assessment blocks it.
func (s *AssessmentService) BulkDelete(ctx context.Context, schoolID string, req BulkDeleteRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk delete payload")
	}
	if err := s.assessments.BulkDelete(ctx, schoolID, req.IDs); err != nil {
		switch {
		case errors.Is(err, repository.ErrScopeViolation):
			return appErrors.Clone(appErrors.ErrNotFound, "one or more assessments not found")
		case errors.Is(err, repository.ErrPublished):
			return appErrors.Clone(appErrors.ErrConflict, "published assessments cannot be deleted")
		default:
			s.logger.Error("bulk delete rolled back",
				zap.String("school_id", schoolID),
				zap.Int("requested", len(req.IDs)),
				zap.Error(err))
			return appErrors.Wrap(err, appErrors.ErrTransaction.Code, appErrors.ErrTransaction.Status, "bulk delete rolled back")
		}
	}
	return nil
}
