package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/edutrack/gradebook-api/internal/models"
	appErrors "github.com/edutrack/gradebook-api/pkg/errors"
	"github.com/edutrack/gradebook-api/pkg/export"
)

type gridProvider interface {
	Grid(ctx context.Context, schoolID, class, section, subjectID, termID string) (*models.GradebookGrid, error)
}

// ExportService flattens the gradebook grid into the tabular Dataset the
// renderers consume, then hands off to the CSV or PDF exporter. Exports are
// synchronous; there is no background worker in this core.
type ExportService struct {
	grades  gridProvider
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	title   string
	maxRows int
	logger  *zap.Logger
}

// NewExportService constructs ExportService.
func NewExportService(grades gridProvider, title string, maxRows int, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRows <= 0 {
		maxRows = 2000
	}
	return &ExportService{
		grades:  grades,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		title:   title,
		maxRows: maxRows,
		logger:  logger,
	}
}

// GridCSV renders the gradebook grid as CSV bytes.
func (s *ExportService) GridCSV(ctx context.Context, schoolID, class, section, subjectID, termID string) ([]byte, error) {
	dataset, err := s.dataset(ctx, schoolID, class, section, subjectID, termID)
	if err != nil {
		return nil, err
	}
	data, err := s.csv.Render(*dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return data, nil
}

// GridPDF renders the gradebook grid as PDF bytes.
func (s *ExportService) GridPDF(ctx context.Context, schoolID, class, section, subjectID, termID string) ([]byte, error) {
	dataset, err := s.dataset(ctx, schoolID, class, section, subjectID, termID)
	if err != nil {
		return nil, err
	}
	title := fmt.Sprintf("%s %s-%s", s.title, class, section)
	data, err := s.pdf.Render(*dataset, title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return data, nil
}

func (s *ExportService) dataset(ctx context.Context, schoolID, class, section, subjectID, termID string) (*export.Dataset, error) {
	grid, err := s.grades.Grid(ctx, schoolID, class, section, subjectID, termID)
	if err != nil {
		return nil, err
	}
	if len(grid.Rows) > s.maxRows {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("grid exceeds export limit of %d rows", s.maxRows))
	}

	headers := []string{"Student"}
	for _, assessment := range grid.Assessments {
		headers = append(headers, assessment.AssessmentName)
	}
	headers = append(headers, "Composite", "Grade")

	dataset := &export.Dataset{Headers: headers}
	for _, row := range grid.Rows {
		record := map[string]string{"Student": row.StudentID}
		for i, cell := range row.Cells {
			name := grid.Assessments[i].AssessmentName
			switch {
			case cell.IsAbsent:
				record[name] = "AB"
			case cell.ScoreObtained != nil:
				record[name] = strconv.FormatFloat(*cell.ScoreObtained, 'f', -1, 64)
			default:
				record[name] = ""
			}
		}
		if row.Final.Composite != nil {
			record["Composite"] = strconv.FormatFloat(*row.Final.Composite, 'f', 2, 64)
		}
		record["Grade"] = row.Final.Letter
		if row.Final.PendingOverride {
			record["Grade"] += " *"
		}
		dataset.Rows = append(dataset.Rows, record)
	}
	return dataset, nil
}
