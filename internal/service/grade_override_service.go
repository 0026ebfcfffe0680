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

type overrideRepo interface {
	FindByID(ctx context.Context, schoolID, id string) (*models.GradeOverride, error)
	FindByTriple(ctx context.Context, schoolID, studentID, subjectID, termID string) (*models.GradeOverride, error)
	ListPending(ctx context.Context, schoolID string) ([]models.GradeOverride, error)
	Create(ctx context.Context, override *models.GradeOverride) error
	UpdatePending(ctx context.Context, override *models.GradeOverride) error
	Approve(ctx context.Context, schoolID, id, approvedBy string, approvedAt time.Time) (bool, error)
	Delete(ctx context.Context, schoolID, id string) error
}

// CreateOverrideRequest asks for a forced final grade. The justification is
// mandatory; reason_bn carries the bilingual copy when present.
type CreateOverrideRequest struct {
	StudentID     string  `json:"student_id" validate:"required"`
	SubjectID     string  `json:"subject_id" validate:"required"`
	TermID        string  `json:"term_id" validate:"required"`
	OverrideGrade string  `json:"override_grade" validate:"required"`
	Reason        string  `json:"reason" validate:"required"`
	ReasonBn      *string `json:"reason_bn"`
}

// GradeOverrideService runs the two-party override workflow: teachers file
// pending requests, grade-management staff approve them, rejection is
// deletion in either state.
type GradeOverrideService struct {
	overrides overrideRepo
	validator *validator.Validate
	logger    *zap.Logger
	notifier  Notifier
}

// NewGradeOverrideService constructs GradeOverrideService.
func NewGradeOverrideService(overrides overrideRepo, validate *validator.Validate, logger *zap.Logger, notifier Notifier) *GradeOverrideService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &GradeOverrideService{overrides: overrides, validator: validate, logger: logger, notifier: notifier}
}

// Create files a pending override. A second request for a triple with a
// pending override updates it in place; a triple that already has an
// approved override conflicts until that decision is deleted.
func (s *GradeOverrideService) Create(ctx context.Context, schoolID, requestedBy string, req CreateOverrideRequest) (*models.GradeOverride, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid override payload")
	}

	existing, err := s.overrides.FindByTriple(ctx, schoolID, req.StudentID, req.SubjectID, req.TermID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect override")
	}
	if existing != nil {
		if existing.Approved() {
			return nil, appErrors.Clone(appErrors.ErrConflict, "an approved override already exists for this subject and term")
		}
		existing.OverrideGrade = req.OverrideGrade
		existing.Reason = req.Reason
		existing.ReasonBn = req.ReasonBn
		existing.RequestedBy = requestedBy
		if err := s.overrides.UpdatePending(ctx, existing); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update override")
		}
		return existing, nil
	}

	override := &models.GradeOverride{
		SchoolID:      schoolID,
		StudentID:     req.StudentID,
		SubjectID:     req.SubjectID,
		TermID:        req.TermID,
		OverrideGrade: req.OverrideGrade,
		Reason:        req.Reason,
		ReasonBn:      req.ReasonBn,
		RequestedBy:   requestedBy,
	}
	if err := s.overrides.Create(ctx, override); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create override")
	}
	return override, nil
}

// Approve transitions a pending override to approved and emits the event for
// the notification subsystem. Approving an already-approved override is a
// conflict, consistently, so approval timestamps are never rewritten.
func (s *GradeOverrideService) Approve(ctx context.Context, schoolID, id, approvedBy string) (*models.GradeOverride, error) {
	override, err := s.Get(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	if override.Approved() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "override already approved")
	}

	approvedAt := time.Now().UTC()
	ok, err := s.overrides.Approve(ctx, schoolID, id, approvedBy, approvedAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve override")
	}
	if !ok {
		// Lost the race: somebody approved between the read and the update.
		return nil, appErrors.Clone(appErrors.ErrConflict, "override already approved")
	}
	override.ApprovedBy = &approvedBy
	override.ApprovedAt = &approvedAt

	s.notifier.Notify(ctx, models.GradeEvent{
		Type:      models.EventOverrideApproved,
		SchoolID:  schoolID,
		SubjectID: override.SubjectID,
		StudentID: override.StudentID,
		Grade:     override.OverrideGrade,
	})
	return override, nil
}

// Get loads one override.
func (s *GradeOverrideService) Get(ctx context.Context, schoolID, id string) (*models.GradeOverride, error) {
	override, err := s.overrides.FindByID(ctx, schoolID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "override not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load override")
	}
	return override, nil
}

// ListPending returns the school's outstanding requests.
func (s *GradeOverrideService) ListPending(ctx context.Context, schoolID string) ([]models.GradeOverride, error) {
	overrides, err := s.overrides.ListPending(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending overrides")
	}
	return overrides, nil
}

// Delete removes an override in either state. There is no rejected state;
// rejection is deletion.
func (s *GradeOverrideService) Delete(ctx context.Context, schoolID, id string) error {
	if err := s.overrides.Delete(ctx, schoolID, id); err != nil {
		if errors.Is(err, repository.ErrScopeViolation) {
			return appErrors.Clone(appErrors.ErrNotFound, "override not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete override")
	}
	return nil
}
