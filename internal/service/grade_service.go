package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/edutrack/gradebook-api/internal/models"
	appErrors "github.com/edutrack/gradebook-api/pkg/errors"
)

type gradeAssessmentReader interface {
	FindByID(ctx context.Context, schoolID, id string) (*models.Assessment, error)
	List(ctx context.Context, schoolID string, filter models.AssessmentFilter) ([]models.Assessment, error)
}

type gradeScoreReader interface {
	ListByAssessment(ctx context.Context, schoolID, assessmentID string) ([]models.StudentScore, error)
	ListByAssessments(ctx context.Context, schoolID string, assessmentIDs []string) (map[string][]models.StudentScore, error)
}

type gradeOverrideReader interface {
	FindByTriple(ctx context.Context, schoolID, studentID, subjectID, termID string) (*models.GradeOverride, error)
	ListBySubjectTerm(ctx context.Context, schoolID, subjectID, termID string) (map[string]models.GradeOverride, error)
}

type defaultScaleProvider interface {
	Default(ctx context.Context, schoolID string) (*models.GradeScale, error)
}

// GradeService is the grade computation engine: letter derivation, weighted
// composites, distributions, and the gradebook grid projection.
type GradeService struct {
	assessments gradeAssessmentReader
	scores      gradeScoreReader
	overrides   gradeOverrideReader
	scales      defaultScaleProvider
	logger      *zap.Logger
}

// NewGradeService constructs GradeService.
func NewGradeService(assessments gradeAssessmentReader, scores gradeScoreReader, overrides gradeOverrideReader, scales defaultScaleProvider, logger *zap.Logger) *GradeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{assessments: assessments, scores: scores, overrides: overrides, scales: scales, logger: logger}
}

// LetterFor maps a percentage to a grade label. A tenant scale's bands take
// precedence, evaluated in stored order, first containing band wins. Without
// a scale the fixed thresholds apply.
func LetterFor(percentage float64, scale *models.GradeScale) string {
	if scale != nil && len(scale.GradeLabels) > 0 {
		for _, band := range scale.GradeLabels {
			if percentage >= band.Min && percentage <= band.Max {
				return band.Grade
			}
		}
	}
	switch {
	case percentage >= 90:
		return "A+"
	case percentage >= 80:
		return "A"
	case percentage >= 70:
		return "B"
	case percentage >= 60:
		return "C"
	default:
		return "F"
	}
}

// GPAFor returns the band GPA for a percentage when the scale defines one.
func GPAFor(percentage float64, scale *models.GradeScale) *float64 {
	if scale == nil {
		return nil
	}
	for _, band := range scale.GradeLabels {
		if percentage >= band.Min && percentage <= band.Max {
			return band.GPA
		}
	}
	return nil
}

// Composite computes the weighted composite percentage for one student's
// scores across a subject's assessments. Absent and unrecorded scores do not
// contribute. The result is nil, not zero, when no gradable score exists.
func Composite(scores []models.StudentScore, assessments map[string]models.Assessment) *float64 {
	totalWeighted := 0.0
	totalWeight := 0.0
	for _, score := range scores {
		if score.IsAbsent || score.ScoreObtained == nil {
			continue
		}
		assessment, ok := assessments[score.AssessmentID]
		if !ok || assessment.TotalMarks <= 0 {
			continue
		}
		weight := 100.0
		if assessment.WeightPercentage != nil {
			weight = *assessment.WeightPercentage
		}
		percentage := *score.ScoreObtained / assessment.TotalMarks * 100
		totalWeighted += percentage * weight / 100
		totalWeight += weight
	}
	if totalWeight == 0 {
		return nil
	}
	composite := totalWeighted / totalWeight * 100
	composite = math.Round(composite*100) / 100
	return &composite
}

// Distribution partitions one assessment's scores into grade buckets and
// reports the mean over non-absent scores. Absent entries count toward the
// student total only.
func (s *GradeService) Distribution(ctx context.Context, schoolID, assessmentID string) (*models.GradeDistribution, error) {
	assessment, err := s.assessments.FindByID(ctx, schoolID, assessmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessment")
	}
	scores, err := s.scores.ListByAssessment(ctx, schoolID, assessmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scores")
	}
	scale, err := s.scales.Default(ctx, schoolID)
	if err != nil {
		return nil, err
	}

	dist := &models.GradeDistribution{
		AssessmentID:  assessmentID,
		TotalStudents: len(scores),
		GradeCounts:   map[string]int{},
	}
	sum := 0.0
	for _, score := range scores {
		if score.IsAbsent || score.ScoreObtained == nil {
			dist.AbsentCount++
			continue
		}
		dist.GradedCount++
		sum += *score.ScoreObtained
		percentage := *score.ScoreObtained / assessment.TotalMarks * 100
		dist.GradeCounts[LetterFor(percentage, scale)]++
	}
	if dist.GradedCount > 0 {
		average := math.Round(sum/float64(dist.GradedCount)*100) / 100
		dist.Average = &average
	}
	return dist, nil
}

// FinalGrade renders one student's grade for a subject/term. An approved
// override supersedes the computed composite; a pending one only flags the
// row so staff see the outstanding request.
func (s *GradeService) FinalGrade(ctx context.Context, schoolID, studentID, subjectID, termID string) (*models.SubjectGrade, error) {
	assessments, err := s.assessments.List(ctx, schoolID, models.AssessmentFilter{SubjectID: subjectID, TermID: termID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assessments")
	}
	assessmentMap := make(map[string]models.Assessment, len(assessments))
	ids := make([]string, 0, len(assessments))
	for _, a := range assessments {
		assessmentMap[a.ID] = a
		ids = append(ids, a.ID)
	}
	byStudent, err := s.scores.ListByAssessments(ctx, schoolID, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scores")
	}
	scale, err := s.scales.Default(ctx, schoolID)
	if err != nil {
		return nil, err
	}

	grade := s.renderGrade(schoolID, studentID, subjectID, termID, byStudent[studentID], assessmentMap, scale, nil)

	override, err := s.overrides.FindByTriple(ctx, schoolID, studentID, subjectID, termID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load override")
	}
	applyOverride(&grade, override)
	return &grade, nil
}

// Grid builds the read-only gradebook projection for one class/section and
// subject/term: per-assessment cells plus the rendered final grade for every
// student that has a score on record.
func (s *GradeService) Grid(ctx context.Context, schoolID, class, section, subjectID, termID string) (*models.GradebookGrid, error) {
	assessments, err := s.assessments.List(ctx, schoolID, models.AssessmentFilter{Class: class, Section: section, SubjectID: subjectID, TermID: termID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assessments")
	}
	assessmentMap := make(map[string]models.Assessment, len(assessments))
	ids := make([]string, 0, len(assessments))
	for _, a := range assessments {
		assessmentMap[a.ID] = a
		ids = append(ids, a.ID)
	}
	byStudent, err := s.scores.ListByAssessments(ctx, schoolID, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scores")
	}
	overrides, err := s.overrides.ListBySubjectTerm(ctx, schoolID, subjectID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load overrides")
	}
	scale, err := s.scales.Default(ctx, schoolID)
	if err != nil {
		return nil, err
	}

	grid := &models.GradebookGrid{
		SchoolID:    schoolID,
		SubjectID:   subjectID,
		Class:       class,
		Section:     section,
		TermID:      termID,
		Assessments: assessments,
	}
	students := sortedStudentIDs(byStudent)
	for _, studentID := range students {
		scores := byStudent[studentID]
		scoreByAssessment := make(map[string]models.StudentScore, len(scores))
		for _, score := range scores {
			scoreByAssessment[score.AssessmentID] = score
		}
		row := models.GradebookRow{StudentID: studentID, Cells: make([]models.GradebookCell, 0, len(assessments))}
		for _, assessment := range assessments {
			cell := models.GradebookCell{AssessmentID: assessment.ID}
			if score, ok := scoreByAssessment[assessment.ID]; ok {
				cell.IsAbsent = score.IsAbsent
				if !score.IsAbsent && score.ScoreObtained != nil {
					cell.ScoreObtained = score.ScoreObtained
					percentage := math.Round(*score.ScoreObtained/assessment.TotalMarks*100*100) / 100
					cell.Percentage = &percentage
				}
			}
			row.Cells = append(row.Cells, cell)
		}
		var override *models.GradeOverride
		if o, ok := overrides[studentID]; ok {
			override = &o
		}
		row.Final = s.renderGrade(schoolID, studentID, subjectID, termID, scores, assessmentMap, scale, override)
		grid.Rows = append(grid.Rows, row)
	}
	return grid, nil
}

func (s *GradeService) renderGrade(schoolID, studentID, subjectID, termID string, scores []models.StudentScore, assessments map[string]models.Assessment, scale *models.GradeScale, override *models.GradeOverride) models.SubjectGrade {
	grade := models.SubjectGrade{
		StudentID: studentID,
		SubjectID: subjectID,
		TermID:    termID,
		Composite: Composite(scores, assessments),
	}
	if grade.Composite != nil {
		grade.Letter = LetterFor(*grade.Composite, scale)
		grade.GPA = GPAFor(*grade.Composite, scale)
	}
	applyOverride(&grade, override)
	return grade
}

func applyOverride(grade *models.SubjectGrade, override *models.GradeOverride) {
	if override == nil {
		return
	}
	if override.Approved() {
		grade.Letter = override.OverrideGrade
		grade.Overridden = true
		return
	}
	grade.PendingOverride = true
}

func sortedStudentIDs(byStudent map[string][]models.StudentScore) []string {
	ids := make([]string, 0, len(byStudent))
	for id := range byStudent {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
