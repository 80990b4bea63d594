package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/simlok-id/simlok-api/internal/models"
	appErrors "github.com/simlok-id/simlok-api/pkg/errors"
)

type mockStatsStore struct {
	stats    *models.SubmissionStats
	recent   []models.Submission
	statsErr error
	calls    int
}

func (m *mockStatsStore) Stats(ctx context.Context) (*models.SubmissionStats, error) {
	m.calls++
	if m.statsErr != nil {
		return nil, m.statsErr
	}
	return m.stats, nil
}

func (m *mockStatsStore) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error) {
	return m.recent, len(m.recent), nil
}

func TestStatsServiceDashboard(t *testing.T) {
	store := &mockStatsStore{
		stats:  &models.SubmissionStats{Total: 5, Approved: 2, ScansToday: 1},
		recent: []models.Submission{*newSubmissionFixture("sub-1", "vendor-1")},
	}
	svc := NewStatsService(store, nil, 0, zap.NewNop())

	stats, err := svc.Dashboard(context.Background(), roleClaims("a", models.RoleAdmin))
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Submissions.Total)
	assert.Len(t, stats.Recent, 1)
	assert.NotEmpty(t, stats.GeneratedAt)
}

func TestStatsServiceForbiddenForVendor(t *testing.T) {
	svc := NewStatsService(&mockStatsStore{stats: &models.SubmissionStats{}}, nil, 0, zap.NewNop())

	_, err := svc.Dashboard(context.Background(), vendorClaims("vendor-1"))
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}
