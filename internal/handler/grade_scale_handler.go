package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edutrack/gradebook-api/internal/service"
	appErrors "github.com/edutrack/gradebook-api/pkg/errors"
	"github.com/edutrack/gradebook-api/pkg/response"
)

// GradeScaleHandler exposes tenant grading scale management.
type GradeScaleHandler struct {
	scales *service.GradeScaleService
}

// NewGradeScaleHandler constructs handler.
func NewGradeScaleHandler(scales *service.GradeScaleService) *GradeScaleHandler {
	return &GradeScaleHandler{scales: scales}
}

// List godoc
// @Summary List grading scales for the school
// @Tags GradeScales
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /grade-scales [get]
func (h *GradeScaleHandler) List(c *gin.Context) {
	scales, err := h.scales.List(c.Request.Context(), schoolFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scales, nil)
}

// Get godoc
// @Summary Get one grading scale
// @Tags GradeScales
// @Produce json
// @Param id path string true "Scale id"
// @Success 200 {object} response.Envelope
// @Router /grade-scales/{id} [get]
func (h *GradeScaleHandler) Get(c *gin.Context) {
	scale, err := h.scales.Get(c.Request.Context(), schoolFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scale, nil)
}

// Create godoc
// @Summary Create a grading scale
// @Tags GradeScales
// @Accept json
// @Produce json
// @Param payload body service.CreateGradeScaleRequest true "Scale payload"
// @Success 201 {object} response.Envelope
// @Router /grade-scales [post]
func (h *GradeScaleHandler) Create(c *gin.Context) {
	var req service.CreateGradeScaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	scale, err := h.scales.Create(c.Request.Context(), schoolFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, scale)
}

// Update godoc
// @Summary Update a grading scale
// @Tags GradeScales
// @Accept json
// @Produce json
// @Param id path string true "Scale id"
// @Param payload body service.CreateGradeScaleRequest true "Scale payload"
// @Success 200 {object} response.Envelope
// @Router /grade-scales/{id} [put]
func (h *GradeScaleHandler) Update(c *gin.Context) {
	var req service.CreateGradeScaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	scale, err := h.scales.Update(c.Request.Context(), schoolFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scale, nil)
}

// SetDefault godoc
// @Summary Mark a grading scale as the school default
// @Tags GradeScales
// @Produce json
// @Param id path string true "Scale id"
// @Success 200 {object} response.Envelope
// @Router /grade-scales/{id}/default [put]
func (h *GradeScaleHandler) SetDefault(c *gin.Context) {
	if err := h.scales.SetDefault(c.Request.Context(), schoolFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"default": true}, nil)
}

// Delete godoc
// @Summary Delete a grading scale
// @Tags GradeScales
// @Param id path string true "Scale id"
// @Success 204
// @Router /grade-scales/{id} [delete]
func (h *GradeScaleHandler) Delete(c *gin.Context) {
	if err := h.scales.Delete(c.Request.Context(), schoolFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
