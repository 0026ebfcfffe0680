package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edutrack/gradebook-api/internal/models"
	appErrors "github.com/edutrack/gradebook-api/pkg/errors"
)

type stubGridProvider struct {
	grid *models.GradebookGrid
}

func (s *stubGridProvider) Grid(ctx context.Context, schoolID, class, section, subjectID, termID string) (*models.GradebookGrid, error) {
	return s.grid, nil
}

func exportTestGrid() *models.GradebookGrid {
	return &models.GradebookGrid{
		SchoolID:  "school-1",
		SubjectID: "math",
		Class:     "10",
		Section:   "A",
		TermID:    "t1",
		Assessments: []models.Assessment{
			{ID: "a1", AssessmentName: "Midterm", TotalMarks: 100},
			{ID: "a2", AssessmentName: "Final", TotalMarks: 100},
		},
		Rows: []models.GradebookRow{
			{
				StudentID: "s1",
				Cells: []models.GradebookCell{
					{AssessmentID: "a1", ScoreObtained: ptrFloat(88), Percentage: ptrFloat(88)},
					{AssessmentID: "a2", IsAbsent: true},
				},
				Final: models.SubjectGrade{StudentID: "s1", Composite: ptrFloat(88), Letter: "A"},
			},
			{
				StudentID: "s2",
				Cells: []models.GradebookCell{
					{AssessmentID: "a1"},
					{AssessmentID: "a2", ScoreObtained: ptrFloat(55), Percentage: ptrFloat(55)},
				},
				Final: models.SubjectGrade{StudentID: "s2", Composite: ptrFloat(55), Letter: "F", PendingOverride: true},
			},
		},
	}
}

func TestExportGridCSV(t *testing.T) {
	svc := NewExportService(&stubGridProvider{grid: exportTestGrid()}, "Gradebook", 100, zap.NewNop())

	data, err := svc.GridCSV(context.Background(), "school-1", "10", "A", "math", "t1")
	require.NoError(t, err)

	content := string(data)
	lines := strings.Split(strings.TrimSpace(content), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Student,Midterm,Final,Composite,Grade", strings.TrimSpace(lines[0]))
	assert.Contains(t, lines[1], "s1")
	assert.Contains(t, lines[1], "AB")
	assert.Contains(t, lines[1], "88.00")
	// pending override is flagged on the rendered grade
	assert.Contains(t, lines[2], "F *")
}

func TestExportGridPDF(t *testing.T) {
	svc := NewExportService(&stubGridProvider{grid: exportTestGrid()}, "Gradebook", 100, zap.NewNop())

	data, err := svc.GridPDF(context.Background(), "school-1", "10", "A", "math", "t1")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestExportGridRowLimit(t *testing.T) {
	grid := exportTestGrid()
	svc := NewExportService(&stubGridProvider{grid: grid}, "Gradebook", 1, zap.NewNop())

	_, err := svc.GridCSV(context.Background(), "school-1", "10", "A", "math", "t1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
