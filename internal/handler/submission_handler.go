package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simlok-id/simlok-api/internal/dto"
	"github.com/simlok-id/simlok-api/internal/middleware"
	"github.com/simlok-id/simlok-api/internal/models"
	appErrors "github.com/simlok-id/simlok-api/pkg/errors"
	"github.com/simlok-id/simlok-api/pkg/response"
)

type submissionService interface {
	Create(ctx context.Context, req dto.CreateSubmissionRequest, actor *models.JWTClaims) (*dto.SubmissionDetail, error)
	List(ctx context.Context, query dto.SubmissionQuery, actor *models.JWTClaims) ([]models.Submission, *models.Pagination, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*dto.SubmissionDetail, error)
	Update(ctx context.Context, id string, req dto.UpdateSubmissionRequest, actor *models.JWTClaims) (*models.Submission, error)
	Review(ctx context.Context, id string, req dto.ReviewSubmissionRequest, reviewer *models.JWTClaims) (*models.Submission, error)
	Finalize(ctx context.Context, id string, req dto.FinalizeSubmissionRequest, approver *models.JWTClaims) (*models.Submission, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
	Stats(ctx context.Context, actor *models.JWTClaims) (*models.SubmissionStats, error)
}

type permitDocumentService interface {
	RenderPermit(ctx context.Context, submissionID string, actor *models.JWTClaims) ([]byte, string, error)
}

// SubmissionHandler exposes the permit request lifecycle over REST.
type SubmissionHandler struct {
	service   submissionService
	documents permitDocumentService
}

// NewSubmissionHandler constructs the handler. The documents service may be
// nil when PDF rendering is disabled.
func NewSubmissionHandler(service submissionService, documents permitDocumentService) *SubmissionHandler {
	return &SubmissionHandler{service: service, documents: documents}
}

// Create godoc
// @Summary Submit a work permit request
// @Tags Submissions
// @Accept json
// @Produce json
// @Param payload body dto.CreateSubmissionRequest true "Submission payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /submissions [post]
func (h *SubmissionHandler) Create(c *gin.Context) {
	var req dto.CreateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid submission payload"))
		return
	}
	detail, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, detail, nil)
}

// List godoc
// @Summary List submissions
// @Tags Submissions
// @Produce json
// @Param review_status query string false "Comma separated review statuses"
// @Param final_status query string false "Comma separated final statuses"
// @Param vendor query string false "Vendor name filter"
// @Param search query string false "Free text search"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param stats query bool false "Include aggregate counters in response meta"
// @Success 200 {object} response.Envelope
// @Router /submissions [get]
func (h *SubmissionHandler) List(c *gin.Context) {
	query := dto.SubmissionQuery{
		Vendor:    c.Query("vendor"),
		Search:    c.Query("search"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	query.WithStats = strings.EqualFold(c.Query("stats"), "true")

	for _, part := range splitStatuses(c.Query("review_status")) {
		query.ReviewStatus = append(query.ReviewStatus, models.ReviewStatus(part))
	}
	for _, part := range splitStatuses(c.Query("final_status")) {
		query.FinalStatus = append(query.FinalStatus, models.FinalStatus(part))
	}

	submissions, pagination, err := h.service.List(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if query.WithStats {
		stats, err := h.service.Stats(c.Request.Context(), claimsFromContext(c))
		if err != nil {
			response.Error(c, err)
			return
		}
		meta := middleware.ExtractMeta(c)
		if meta == nil {
			meta = map[string]interface{}{}
		}
		meta["stats"] = stats
		response.JSON(c, http.StatusOK, submissions, pagination, meta)
		return
	}
	response.JSON(c, http.StatusOK, submissions, pagination)
}

// Get godoc
// @Summary Get submission detail
// @Tags Submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Param format query string false "Set to pdf to download the permit sheet"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id} [get]
func (h *SubmissionHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if strings.EqualFold(c.Query("format"), "pdf") {
		h.servePDF(c, id)
		return
	}
	detail, err := h.service.Get(c.Request.Context(), id, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["roster_count"] = detail.RosterCount
	meta["worker_count_mismatch"] = detail.WorkerCountMismatch
	response.JSON(c, http.StatusOK, detail, nil, meta)
}

// Update godoc
// @Summary Patch submission content
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body dto.UpdateSubmissionRequest true "Patch payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /submissions/{id} [patch]
func (h *SubmissionHandler) Update(c *gin.Context) {
	var req dto.UpdateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid patch payload"))
		return
	}
	submission, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// Review godoc
// @Summary Record reviewer verdict
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body dto.ReviewSubmissionRequest true "Review payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /submissions/{id}/review [patch]
func (h *SubmissionHandler) Review(c *gin.Context) {
	var req dto.ReviewSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid review payload"))
		return
	}
	submission, err := h.service.Review(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// Finalize godoc
// @Summary Record approver decision
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body dto.FinalizeSubmissionRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /submissions/{id}/approval [patch]
func (h *SubmissionHandler) Finalize(c *gin.Context) {
	var req dto.FinalizeSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid decision payload"))
		return
	}
	submission, err := h.service.Finalize(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// Delete godoc
// @Summary Delete a pending submission
// @Tags Submissions
// @Param id path string true "Submission ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /submissions/{id} [delete]
func (h *SubmissionHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// PDF godoc
// @Summary Download the printable permit sheet
// @Tags Submissions
// @Produce application/pdf
// @Param id path string true "Submission ID"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /submissions/{id}/pdf [get]
func (h *SubmissionHandler) PDF(c *gin.Context) {
	h.servePDF(c, c.Param("id"))
}

func (h *SubmissionHandler) servePDF(c *gin.Context, id string) {
	if h.documents == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "document rendering is disabled"))
		return
	}
	payload, filename, err := h.documents.RenderPermit(c.Request.Context(), id, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", payload)
}

func splitStatuses(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
