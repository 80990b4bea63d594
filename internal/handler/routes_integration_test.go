package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	internalmiddleware "github.com/simlok-id/simlok-api/internal/middleware"
	"github.com/simlok-id/simlok-api/internal/models"
)

const (
	reviewPayload   = `{"verdict":"MEETS_REQUIREMENTS","review_note":"ok","note_for_vendor":"complete"}`
	approvalPayload = `{"decision":"APPROVED","permit_number":"SIMLOK/001/2026","tembusan":"HSSE Manager"}`
	updatePayload   = `{"job_description":"cable pulling"}`
)

// The documented verbs are PATCH for review and approval and PATCH/PUT for
// edits; the POST spellings stay registered for older clients.
func TestSubmissionRouteVerbs(t *testing.T) {
	router := buildSubmissionRouter()

	t.Run("review patch", func(t *testing.T) {
		resp := performSubmissionRequest(router, http.MethodPatch, "/submissions/sub-1/review", reviewPayload, models.RoleReviewer)
		require.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("review post alias", func(t *testing.T) {
		resp := performSubmissionRequest(router, http.MethodPost, "/submissions/sub-1/review", reviewPayload, models.RoleReviewer)
		require.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("approval patch", func(t *testing.T) {
		resp := performSubmissionRequest(router, http.MethodPatch, "/submissions/sub-1/approval", approvalPayload, models.RoleApprover)
		require.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("approval forbidden for reviewer", func(t *testing.T) {
		resp := performSubmissionRequest(router, http.MethodPatch, "/submissions/sub-1/approval", approvalPayload, models.RoleReviewer)
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("finalize post alias", func(t *testing.T) {
		resp := performSubmissionRequest(router, http.MethodPost, "/submissions/sub-1/finalize", approvalPayload, models.RoleApprover)
		require.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("update put", func(t *testing.T) {
		resp := performSubmissionRequest(router, http.MethodPut, "/submissions/sub-1", updatePayload, models.RoleVendor)
		require.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("update patch", func(t *testing.T) {
		resp := performSubmissionRequest(router, http.MethodPatch, "/submissions/sub-1", updatePayload, models.RoleVendor)
		require.Equal(t, http.StatusOK, resp.Code)
	})
}

// buildSubmissionRouter mirrors the submission route table from the server
// entrypoint, with a header-driven claims shim standing in for the JWT layer.
func buildSubmissionRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if role := c.GetHeader("X-Test-Role"); role != "" {
			c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{
				UserID: "user-1",
				Role:   models.UserRole(role),
			})
		}
		c.Next()
	})

	h := NewSubmissionHandler(&fakeSubmissionSrv{submission: &models.Submission{ID: "sub-1"}}, nil)

	editors := internalmiddleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleReviewer, models.RoleVendor)
	rosterAdmins := internalmiddleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleReviewer)
	approvers := internalmiddleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleApprover)

	submissions := router.Group("/submissions")
	submissions.PATCH("/:id", editors, h.Update)
	submissions.PUT("/:id", editors, h.Update)
	submissions.PATCH("/:id/review", rosterAdmins, h.Review)
	submissions.PATCH("/:id/approval", approvers, h.Finalize)
	submissions.POST("/:id/review", rosterAdmins, h.Review)
	submissions.POST("/:id/finalize", approvers, h.Finalize)

	return router
}

func performSubmissionRequest(router *gin.Engine, method, target, payload string, role models.UserRole) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, target, bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-Role", string(role))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}
