package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edutrack/gradebook-api/internal/service"
	appErrors "github.com/edutrack/gradebook-api/pkg/errors"
	"github.com/edutrack/gradebook-api/pkg/response"
)

// ScoreHandler exposes score entry endpoints.
type ScoreHandler struct {
	scores *service.ScoreService
}

// NewScoreHandler constructs handler.
func NewScoreHandler(scores *service.ScoreService) *ScoreHandler {
	return &ScoreHandler{scores: scores}
}

// List godoc
// @Summary List scores for an assessment
// @Tags Scores
// @Produce json
// @Param id path string true "Assessment id"
// @Success 200 {object} response.Envelope
// @Router /assessments/{id}/scores [get]
func (h *ScoreHandler) List(c *gin.Context) {
	scores, err := h.scores.ListByAssessment(c.Request.Context(), schoolFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scores, nil)
}

// Record godoc
// @Summary Record one score
// @Tags Scores
// @Accept json
// @Produce json
// @Param id path string true "Assessment id"
// @Param payload body service.RecordScoreRequest true "Score payload"
// @Success 200 {object} response.Envelope
// @Router /assessments/{id}/scores [post]
func (h *ScoreHandler) Record(c *gin.Context) {
	var req service.RecordScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	score, err := h.scores.Record(c.Request.Context(), schoolFromContext(c), c.Param("id"), userFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, score, nil)
}

// RecordBatch godoc
// @Summary Record many scores atomically
// @Tags Scores
// @Accept json
// @Produce json
// @Param id path string true "Assessment id"
// @Param payload body service.BulkScoresRequest true "Bulk payload"
// @Success 200 {object} response.Envelope
// @Router /assessments/{id}/scores/bulk [post]
func (h *ScoreHandler) RecordBatch(c *gin.Context) {
	var req service.BulkScoresRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	count, err := h.scores.RecordBatch(c.Request.Context(), schoolFromContext(c), c.Param("id"), userFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"recorded": count}, nil)
}

// History godoc
// @Summary Grade change history for one student's score
// @Tags Scores
// @Produce json
// @Param id path string true "Assessment id"
// @Param studentId path string true "Student id"
// @Success 200 {object} response.Envelope
// @Router /assessments/{id}/scores/{studentId}/history [get]
func (h *ScoreHandler) History(c *gin.Context) {
	entries, err := h.scores.History(c.Request.Context(), schoolFromContext(c), c.Param("studentId"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
