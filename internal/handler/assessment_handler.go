package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edutrack/gradebook-api/internal/models"
	"github.com/edutrack/gradebook-api/internal/service"
	appErrors "github.com/edutrack/gradebook-api/pkg/errors"
	"github.com/edutrack/gradebook-api/pkg/response"
)

// AssessmentHandler exposes assessment endpoints.
type AssessmentHandler struct {
	assessments *service.AssessmentService
}

// NewAssessmentHandler constructs handler.
func NewAssessmentHandler(assessments *service.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{assessments: assessments}
}

// List godoc
// @Summary List assessments
// @Tags Assessments
// @Produce json
// @Param class query string false "Filter by class"
// @Param section query string false "Filter by section"
// @Param subjectId query string false "Filter by subject"
// @Param termId query string false "Filter by term"
// @Success 200 {object} response.Envelope
// @Router /assessments [get]
func (h *AssessmentHandler) List(c *gin.Context) {
	filter := models.AssessmentFilter{
		Class:     c.Query("class"),
		Section:   c.Query("section"),
		SubjectID: c.Query("subjectId"),
		TermID:    c.Query("termId"),
	}
	assessments, err := h.assessments.List(c.Request.Context(), schoolFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assessments, nil)
}

// Get godoc
// @Summary Get one assessment with components
// @Tags Assessments
// @Produce json
// @Param id path string true "Assessment id"
// @Success 200 {object} response.Envelope
// @Router /assessments/{id} [get]
func (h *AssessmentHandler) Get(c *gin.Context) {
	assessment, err := h.assessments.Get(c.Request.Context(), schoolFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assessment, nil)
}

// Create godoc
// @Summary Create assessment
// @Tags Assessments
// @Accept json
// @Produce json
// @Param payload body service.CreateAssessmentRequest true "Assessment payload"
// @Success 201 {object} response.Envelope
// @Router /assessments [post]
func (h *AssessmentHandler) Create(c *gin.Context) {
	var req service.CreateAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	assessment, err := h.assessments.Create(c.Request.Context(), schoolFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assessment)
}

// Update godoc
// @Summary Update assessment
// @Tags Assessments
// @Accept json
// @Produce json
// @Param id path string true "Assessment id"
// @Param payload body service.CreateAssessmentRequest true "Assessment payload"
// @Success 200 {object} response.Envelope
// @Router /assessments/{id} [put]
func (h *AssessmentHandler) Update(c *gin.Context) {
	var req service.CreateAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	assessment, err := h.assessments.Update(c.Request.Context(), schoolFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assessment, nil)
}

// Publish godoc
// @Summary Publish assessment results
// @Tags Assessments
// @Produce json
// @Param id path string true "Assessment id"
// @Success 200 {object} response.Envelope
// @Router /assessments/{id}/publish [post]
func (h *AssessmentHandler) Publish(c *gin.Context) {
	if err := h.assessments.Publish(c.Request.Context(), schoolFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "published"}, nil)
}

// AddComponent godoc
// @Summary Add assessment component
// @Tags Assessments
// @Accept json
// @Produce json
// @Param id path string true "Assessment id"
// @Param payload body service.AddComponentRequest true "Component payload"
// @Success 201 {object} response.Envelope
// @Router /assessments/{id}/components [post]
func (h *AssessmentHandler) AddComponent(c *gin.Context) {
	var req service.AddComponentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	component, err := h.assessments.AddComponent(c.Request.Context(), schoolFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, component)
}

// RemoveComponent godoc
// @Summary Remove assessment component
// @Tags Assessments
// @Produce json
// @Param id path string true "Assessment id"
// @Param cid path string true "Component id"
// @Success 204
// @Router /assessments/{id}/components/{cid} [delete]
func (h *AssessmentHandler) RemoveComponent(c *gin.Context) {
	if err := h.assessments.RemoveComponent(c.Request.Context(), schoolFromContext(c), c.Param("id"), c.Param("cid")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Duplicate godoc
// @Summary Duplicate assessment within its class
// @Tags Assessments
// @Produce json
// @Param id path string true "Assessment id"
// @Success 201 {object} response.Envelope
// @Router /assessments/{id}/duplicate [post]
func (h *AssessmentHandler) Duplicate(c *gin.Context) {
	assessment, err := h.assessments.Duplicate(c.Request.Context(), schoolFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assessment)
}

// CopyToClass godoc
// @Summary Copy assessment to another class/section
// @Tags Assessments
// @Accept json
// @Produce json
// @Param id path string true "Assessment id"
// @Param payload body service.CopyAssessmentRequest true "Target class/section"
// @Success 201 {object} response.Envelope
// @Router /assessments/{id}/copy [post]
func (h *AssessmentHandler) CopyToClass(c *gin.Context) {
	var req service.CopyAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	assessment, err := h.assessments.CopyToClass(c.Request.Context(), schoolFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assessment)
}

// BulkDelete godoc
// @Summary Delete a batch of assessments atomically
// @Tags Assessments
// @Accept json
// @Produce json
// @Param payload body service.BulkDeleteRequest true "Assessment ids"
// @Success 204
// @Router /assessments/bulk-delete [post]
func (h *AssessmentHandler) BulkDelete(c *gin.Context) {
	var req service.BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.assessments.BulkDelete(c.Request.Context(), schoolFromContext(c), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
