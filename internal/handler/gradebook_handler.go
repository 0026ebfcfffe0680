package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edutrack/gradebook-api/internal/service"
	"github.com/edutrack/gradebook-api/pkg/response"
)

// GradebookHandler serves computed grades, grids and exports.
type GradebookHandler struct {
	grades  *service.GradeService
	exports *service.ExportService
}

// NewGradebookHandler constructs handler.
func NewGradebookHandler(grades *service.GradeService, exports *service.ExportService) *GradebookHandler {
	return &GradebookHandler{grades: grades, exports: exports}
}

// Distribution godoc
// @Summary Grade distribution for one assessment
// @Tags Gradebook
// @Produce json
// @Param id path string true "Assessment id"
// @Success 200 {object} response.Envelope
// @Router /assessments/{id}/distribution [get]
func (h *GradebookHandler) Distribution(c *gin.Context) {
	dist, err := h.grades.Distribution(c.Request.Context(), schoolFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dist, nil)
}

// FinalGrade godoc
// @Summary Weighted final grade for one student in a subject and term
// @Tags Gradebook
// @Produce json
// @Param studentId path string true "Student id"
// @Param subjectId query string true "Subject id"
// @Param termId query string true "Term id"
// @Success 200 {object} response.Envelope
// @Router /gradebook/students/{studentId}/final [get]
func (h *GradebookHandler) FinalGrade(c *gin.Context) {
	grade, err := h.grades.FinalGrade(
		c.Request.Context(),
		schoolFromContext(c),
		c.Param("studentId"),
		c.Query("subjectId"),
		c.Query("termId"),
	)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grade, nil)
}

// Grid godoc
// @Summary Gradebook grid for a class section
// @Tags Gradebook
// @Produce json
// @Param class query string true "Class"
// @Param section query string true "Section"
// @Param subjectId query string true "Subject id"
// @Param termId query string true "Term id"
// @Success 200 {object} response.Envelope
// @Router /gradebook/grid [get]
func (h *GradebookHandler) Grid(c *gin.Context) {
	grid, err := h.grades.Grid(
		c.Request.Context(),
		schoolFromContext(c),
		c.Query("class"),
		c.Query("section"),
		c.Query("subjectId"),
		c.Query("termId"),
	)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grid, nil)
}

// ExportCSV godoc
// @Summary Export the gradebook grid as CSV
// @Tags Gradebook
// @Produce text/csv
// @Param class query string true "Class"
// @Param section query string true "Section"
// @Param subjectId query string true "Subject id"
// @Param termId query string true "Term id"
// @Success 200 {file} file
// @Router /gradebook/grid/export/csv [get]
func (h *GradebookHandler) ExportCSV(c *gin.Context) {
	data, err := h.exports.GridCSV(
		c.Request.Context(),
		schoolFromContext(c),
		c.Query("class"),
		c.Query("section"),
		c.Query("subjectId"),
		c.Query("termId"),
	)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("gradebook_%s.csv", time.Now().UTC().Format("20060102_150405"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "text/csv", data)
}

// ExportPDF godoc
// @Summary Export the gradebook grid as PDF
// @Tags Gradebook
// @Produce application/pdf
// @Param class query string true "Class"
// @Param section query string true "Section"
// @Param subjectId query string true "Subject id"
// @Param termId query string true "Term id"
// @Success 200 {file} file
// @Router /gradebook/grid/export/pdf [get]
func (h *GradebookHandler) ExportPDF(c *gin.Context) {
	data, err := h.exports.GridPDF(
		c.Request.Context(),
		schoolFromContext(c),
		c.Query("class"),
		c.Query("section"),
		c.Query("subjectId"),
		c.Query("termId"),
	)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("gradebook_%s.pdf", time.Now().UTC().Format("20060102_150405"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/pdf", data)
}
