package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edutrack/gradebook-api/internal/models"
	appErrors "github.com/edutrack/gradebook-api/pkg/errors"
)

type scoreRepo interface {
	Upsert(ctx context.Context, score *models.StudentScore, changedBy, reason string) error
	BulkUpsert(ctx context.Context, scores []models.StudentScore, changedBy, reason string) error
	ListByAssessment(ctx context.Context, schoolID, assessmentID string) ([]models.StudentScore, error)
	FindByStudentAssessment(ctx context.Context, schoolID, studentID, assessmentID string) (*models.StudentScore, error)
	History(ctx context.Context, schoolID, scoreID string) ([]models.GradeHistoryEntry, error)
}

type scoreAssessmentReader interface {
	FindByID(ctx context.Context, schoolID, id string) (*models.Assessment, error)
}

// RecordScoreRequest is the payload for one score entry.
type RecordScoreRequest struct {
	StudentID     string   `json:"student_id" validate:"required"`
	ScoreObtained *float64 `json:"score_obtained" validate:"omitempty,gte=0"`
	IsAbsent      bool     `json:"is_absent"`
	ChangeReason  string   `json:"change_reason"`
}

// BulkScoreItem is one row of a batch entry.
type BulkScoreItem struct {
	StudentID     string   `json:"student_id" validate:"required"`
	ScoreObtained *float64 `json:"score_obtained" validate:"omitempty,gte=0"`
	IsAbsent      bool     `json:"is_absent"`
}

// BulkScoresRequest records many scores for one assessment atomically.
type BulkScoresRequest struct {
	Items        []BulkScoreItem `json:"items" validate:"required,min=1,dive"`
	ChangeReason string          `json:"change_reason"`
}

// ScoreService records scores and exposes their history. Re-grading an
// existing (student, assessment) pair updates the row and appends to grade
// history; it never creates a duplicate.
type ScoreService struct {
	scores        scoreRepo
	assessments   scoreAssessmentReader
	validator     *validator.Validate
	logger        *zap.Logger
	defaultReason string
}

// NewScoreService constructs ScoreService.
func NewScoreService(scores scoreRepo, assessments scoreAssessmentReader, validate *validator.Validate, logger *zap.Logger, defaultReason string) *ScoreService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultReason == "" {
		defaultReason = "score correction"
	}
	return &ScoreService{scores: scores, assessments: assessments, validator: validate, logger: logger, defaultReason: defaultReason}
}

// Record upserts one score. The assessment is loaded within the school scope
// first, so a foreign assessment id surfaces as not-found.
func (s *ScoreService) Record(ctx context.Context, schoolID, assessmentID, changedBy string, req RecordScoreRequest) (*models.StudentScore, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid score payload")
	}
	assessment, err := s.loadAssessment(ctx, schoolID, assessmentID)
	if err != nil {
		return nil, err
	}
	score, err := s.buildScore(schoolID, assessment, req.StudentID, req.ScoreObtained, req.IsAbsent)
	if err != nil {
		return nil, err
	}
	reason := req.ChangeReason
	if reason == "" {
		reason = s.defaultReason
	}
	if err := s.scores.Upsert(ctx, score, changedBy, reason); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record score")
	}
	return score, nil
}

// RecordBatch upserts many scores in one transaction, all or nothing. Any
// invalid row aborts before the storage layer is touched and names the rows
// that failed.
func (s *ScoreService) RecordBatch(ctx context.Context, schoolID, assessmentID, changedBy string, req BulkScoresRequest) (int, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk score payload")
	}
	assessment, err := s.loadAssessment(ctx, schoolID, assessmentID)
	if err != nil {
		return 0, err
	}
	scores := make([]models.StudentScore, 0, len(req.Items))
	seen := make(map[string]bool, len(req.Items))
	var badRows []string
	for _, item := range req.Items {
		if seen[item.StudentID] {
			badRows = append(badRows, fmt.Sprintf("%s: duplicate entry", item.StudentID))
			continue
		}
		seen[item.StudentID] = true
		score, err := s.buildScore(schoolID, assessment, item.StudentID, item.ScoreObtained, item.IsAbsent)
		if err != nil {
			badRows = append(badRows, fmt.Sprintf("%s: %v", item.StudentID, err))
			continue
		}
		scores = append(scores, *score)
	}
	if len(badRows) > 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("rejected rows: %v", badRows))
	}
	reason := req.ChangeReason
	if reason == "" {
		reason = s.defaultReason
	}
	if err := s.scores.BulkUpsert(ctx, scores, changedBy, reason); err != nil {
		s.logger.Error("bulk score entry rolled back",
			zap.String("school_id", schoolID),
			zap.String("assessment_id", assessmentID),
			zap.Int("rows", len(scores)),
			zap.Error(err))
		return 0, appErrors.Wrap(err, appErrors.ErrTransaction.Code, appErrors.ErrTransaction.Status, "bulk score entry rolled back")
	}
	return len(scores), nil
}

// ListByAssessment returns every score for an assessment.
func (s *ScoreService) ListByAssessment(ctx context.Context, schoolID, assessmentID string) ([]models.StudentScore, error) {
	if _, err := s.loadAssessment(ctx, schoolID, assessmentID); err != nil {
		return nil, err
	}
	scores, err := s.scores.ListByAssessment(ctx, schoolID, assessmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list scores")
	}
	return scores, nil
}

// History returns the append-only change log for one (student, assessment)
// score.
func (s *ScoreService) History(ctx context.Context, schoolID, studentID, assessmentID string) ([]models.GradeHistoryEntry, error) {
	score, err := s.scores.FindByStudentAssessment(ctx, schoolID, studentID, assessmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "score not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load score")
	}
	entries, err := s.scores.History(ctx, schoolID, score.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade history")
	}
	return entries, nil
}

func (s *ScoreService) loadAssessment(ctx context.Context, schoolID, assessmentID string) (*models.Assessment, error) {
	assessment, err := s.assessments.FindByID(ctx, schoolID, assessmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessment")
	}
	return assessment, nil
}

// buildScore normalises one entry: absences drop the numeric value, present
// scores must fit within the assessment's total marks.
func (s *ScoreService) buildScore(schoolID string, assessment *models.Assessment, studentID string, obtained *float64, absent bool) (*models.StudentScore, error) {
	score := &models.StudentScore{
		SchoolID:     schoolID,
		StudentID:    studentID,
		AssessmentID: assessment.ID,
		IsAbsent:     absent,
	}
	now := time.Now().UTC()
	score.GradedDate = &now
	if absent {
		return score, nil
	}
	if obtained == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "score_obtained required unless absent")
	}
	if *obtained > assessment.TotalMarks {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("score exceeds total marks (%v)", assessment.TotalMarks))
	}
	score.ScoreObtained = obtained
	return score, nil
}
