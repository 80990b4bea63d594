package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/simlok-id/simlok-api/internal/dto"
	"github.com/simlok-id/simlok-api/internal/models"
	appErrors "github.com/simlok-id/simlok-api/pkg/errors"
	"github.com/simlok-id/simlok-api/pkg/response"
)

type scanService interface {
	Verify(ctx context.Context, req dto.VerifyScanRequest, verifier *models.JWTClaims) (*dto.ScanResult, error)
	History(ctx context.Context, submissionID string, filter models.QrScanFilter, actor *models.JWTClaims) ([]models.QrScan, *models.Pagination, error)
}

// ScanHandler exposes the gate verification endpoints.
type ScanHandler struct {
	service scanService
}

// NewScanHandler constructs the handler.
func NewScanHandler(service scanService) *ScanHandler {
	return &ScanHandler{service: service}
}

// Verify godoc
// @Summary Verify a scanned permit QR code
// @Tags Scans
// @Accept json
// @Produce json
// @Param payload body dto.VerifyScanRequest true "Scan payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /scans/verify [post]
func (h *ScanHandler) Verify(c *gin.Context) {
	var req dto.VerifyScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid scan payload"))
		return
	}
	result, err := h.service.Verify(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// History godoc
// @Summary Scan history for a submission
// @Tags Scans
// @Produce json
// @Param id path string true "Submission ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id}/scans [get]
func (h *ScanHandler) History(c *gin.Context) {
	filter := models.QrScanFilter{}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))

	scans, pagination, err := h.service.History(c.Request.Context(), c.Param("id"), filter, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scans, pagination)
}
