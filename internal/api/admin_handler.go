package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"crowdvault/internal/model"
	"crowdvault/internal/repository"
	"crowdvault/internal/service"
	"crowdvault/pkg/outbox"
)

type AdminHandler struct {
	auth     *service.AuthService
	users    *repository.UserRepository
	projects *repository.ProjectRepository
	audits   *repository.AuditRepository
	replay   *outbox.ReplayService
	logger   *zap.Logger
}

func NewAdminHandler(
	auth *service.AuthService,
	users *repository.UserRepository,
	projects *repository.ProjectRepository,
	audits *repository.AuditRepository,
	replay *outbox.ReplayService,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		auth:     auth,
		users:    users,
		projects: projects,
		audits:   audits,
		replay:   replay,
		logger:   logger,
	}
}

// SetKyc handles POST /admin/users/:id/kyc.
func (h *AdminHandler) SetKyc(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var req struct {
		Status string `json:"status" binding:"required,oneof=pending approved rejected"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.auth.SetKycStatus(c.Request.Context(), userID, model.KycStatus(req.Status)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user_id": userID, "kyc_status": req.Status})
}

// BanUser handles POST /admin/users/:id/ban.
func (h *AdminHandler) BanUser(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ban reason is required"})
		return
	}

	adminID, _, _ := currentUser(c)
	if err := h.auth.Ban(c.Request.Context(), userID, adminID, req.Reason); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user_id": userID, "banned": true})
}

// AuditTrail handles GET /admin/audit/:entityType/:id.
func (h *AdminHandler) AuditTrail(c *gin.Context) {
	entityID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entity id"})
		return
	}

	logs, err := h.audits.ListByEntity(c.Request.Context(), c.Param("entityType"), entityID, 100)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"audit_logs": logs})
}

// Stats handles GET /admin/stats, the platform-wide overview.
func (h *AdminHandler) Stats(c *gin.Context) {
	users, err := h.users.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	projects, err := h.projects.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "projects": projects})
}

// ReplayEvents handles POST /admin/outbox/replay, re-publishing parked
// outbox events.
func (h *AdminHandler) ReplayEvents(c *gin.Context) {
	var req struct {
		Limit int `json:"limit"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Limit <= 0 {
		req.Limit = 100
	}

	count, err := h.replay.ReplayFailedEvents(c.Request.Context(), req.Limit)
	if err != nil {
		h.logger.Error("Outbox replay failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "replay failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"replayed": count})
}
