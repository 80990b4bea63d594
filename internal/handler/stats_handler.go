package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simlok-id/simlok-api/internal/dto"
	"github.com/simlok-id/simlok-api/internal/middleware"
	"github.com/simlok-id/simlok-api/internal/models"
	"github.com/simlok-id/simlok-api/pkg/response"
)

type statsService interface {
	Dashboard(ctx context.Context, actor *models.JWTClaims) (*dto.DashboardStats, error)
}

// StatsHandler serves the aggregated dashboard counters.
type StatsHandler struct {
	service statsService
}

// NewStatsHandler constructs the handler.
func NewStatsHandler(service statsService) *StatsHandler {
	return &StatsHandler{service: service}
}

// Dashboard godoc
// @Summary Dashboard statistics
// @Tags Stats
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats/dashboard [get]
func (h *StatsHandler) Dashboard(c *gin.Context) {
	stats, err := h.service.Dashboard(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, stats.Cached)
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}
