package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edutrack/gradebook-api/internal/service"
	appErrors "github.com/edutrack/gradebook-api/pkg/errors"
	"github.com/edutrack/gradebook-api/pkg/response"
)

// GradeOverrideHandler exposes the manual override workflow.
type GradeOverrideHandler struct {
	overrides *service.GradeOverrideService
}

// NewGradeOverrideHandler constructs handler.
func NewGradeOverrideHandler(overrides *service.GradeOverrideService) *GradeOverrideHandler {
	return &GradeOverrideHandler{overrides: overrides}
}

// Create godoc
// @Summary Request a manual grade override
// @Tags Overrides
// @Accept json
// @Produce json
// @Param payload body service.CreateOverrideRequest true "Override payload"
// @Success 201 {object} response.Envelope
// @Router /grade-overrides [post]
func (h *GradeOverrideHandler) Create(c *gin.Context) {
	var req service.CreateOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	override, err := h.overrides.Create(c.Request.Context(), schoolFromContext(c), userFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, override)
}

// Get godoc
// @Summary Get one override
// @Tags Overrides
// @Produce json
// @Param id path string true "Override id"
// @Success 200 {object} response.Envelope
// @Router /grade-overrides/{id} [get]
func (h *GradeOverrideHandler) Get(c *gin.Context) {
	override, err := h.overrides.Get(c.Request.Context(), schoolFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, override, nil)
}

// ListPending godoc
// @Summary List overrides awaiting approval
// @Tags Overrides
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /grade-overrides/pending [get]
func (h *GradeOverrideHandler) ListPending(c *gin.Context) {
	overrides, err := h.overrides.ListPending(c.Request.Context(), schoolFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overrides, nil)
}

// Approve godoc
// @Summary Approve a pending override
// @Tags Overrides
// @Produce json
// @Param id path string true "Override id"
// @Success 200 {object} response.Envelope
// @Router /grade-overrides/{id}/approve [put]
func (h *GradeOverrideHandler) Approve(c *gin.Context) {
	override, err := h.overrides.Approve(c.Request.Context(), schoolFromContext(c), c.Param("id"), userFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, override, nil)
}

// Delete godoc
// @Summary Withdraw an override request
// @Tags Overrides
// @Param id path string true "Override id"
// @Success 204
// @Router /grade-overrides/{id} [delete]
func (h *GradeOverrideHandler) Delete(c *gin.Context) {
	if err := h.overrides.Delete(c.Request.Context(), schoolFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
