package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simlok-id/simlok-api/internal/dto"
	"github.com/simlok-id/simlok-api/internal/models"
	appErrors "github.com/simlok-id/simlok-api/pkg/errors"
	"github.com/simlok-id/simlok-api/pkg/response"
)

type workerService interface {
	Add(ctx context.Context, submissionID string, req dto.CreateWorkerRequest, actor *models.JWTClaims) (*models.WorkerPhoto, error)
	List(ctx context.Context, submissionID string, actor *models.JWTClaims) ([]models.WorkerPhoto, error)
	Remove(ctx context.Context, submissionID, workerID string, actor *models.JWTClaims) error
}

// WorkerHandler manages the roster endpoints nested under a submission.
type WorkerHandler struct {
	service workerService
}

// NewWorkerHandler constructs the handler.
func NewWorkerHandler(service workerService) *WorkerHandler {
	return &WorkerHandler{service: service}
}

// Add godoc
// @Summary Add a roster entry
// @Tags Workers
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body dto.CreateWorkerRequest true "Worker payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /submissions/{id}/workers [post]
func (h *WorkerHandler) Add(c *gin.Context) {
	var req dto.CreateWorkerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid worker payload"))
		return
	}
	worker, err := h.service.Add(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, worker, nil)
}

// List godoc
// @Summary List the roster of a submission
// @Tags Workers
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id}/workers [get]
func (h *WorkerHandler) List(c *gin.Context) {
	workers, err := h.service.List(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, workers, nil)
}

// Remove godoc
// @Summary Remove a roster entry
// @Tags Workers
// @Param id path string true "Submission ID"
// @Param workerId path string true "Worker ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /submissions/{id}/workers/{workerId} [delete]
func (h *WorkerHandler) Remove(c *gin.Context) {
	if err := h.service.Remove(c.Request.Context(), c.Param("id"), c.Param("workerId"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
