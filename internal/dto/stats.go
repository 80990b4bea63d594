package dto

import "github.com/simlok-id/simlok-api/internal/models"

// DashboardStats is the cached aggregate payload for role dashboards.
type DashboardStats struct {
	Submissions models.SubmissionStats `json:"submissions"`
	Recent      []models.Submission    `json:"recent"`
	GeneratedAt string                 `json:"generated_at"`

	// Cached reports whether the payload was served from redis. Exposed
	// to clients via response meta, not the body.
	Cached bool `json:"-"`
}
