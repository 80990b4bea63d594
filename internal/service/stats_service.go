package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/simlok-id/simlok-api/internal/dto"
	"github.com/simlok-id/simlok-api/internal/models"
	appErrors "github.com/simlok-id/simlok-api/pkg/errors"
)

const statsCacheKey = "stats:dashboard"

type statsSubmissionStore interface {
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error)
	Stats(ctx context.Context) (*models.SubmissionStats, error)
}

// StatsService aggregates dashboard counters with a short-lived cache in
// front of the database.
type StatsService struct {
	repo     statsSubmissionStore
	cache    *CacheService
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewStatsService constructs the service.
func NewStatsService(repo statsSubmissionStore, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &StatsService{repo: repo, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// Dashboard returns the aggregate counters plus the most recent
// submissions. Results are cached; lifecycle writes invalidate the key.
func (s *StatsService) Dashboard(ctx context.Context, actor *models.JWTClaims) (*dto.DashboardStats, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleSuperAdmin, models.RoleAdmin, models.RoleReviewer, models.RoleApprover:
	default:
		return nil, appErrors.ErrForbidden
	}

	var cached dto.DashboardStats
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, statsCacheKey, &cached); err == nil && hit {
			cached.Cached = true
			return &cached, nil
		}
	}

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate stats")
	}
	recent, _, err := s.repo.List(ctx, models.SubmissionFilter{
		Page:      1,
		PageSize:  10,
		SortBy:    "created_at",
		SortOrder: "DESC",
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent submissions")
	}

	result := &dto.DashboardStats{
		Submissions: *stats,
		Recent:      recent,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, statsCacheKey, result, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache dashboard stats", zap.Error(err))
		}
	}
	return result, nil
}
