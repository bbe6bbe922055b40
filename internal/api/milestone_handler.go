package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"crowdvault/internal/escrow"
	"crowdvault/internal/model"
	"crowdvault/internal/repository"
	"crowdvault/internal/service"
)

type MilestoneHandler struct {
	milestones *service.MilestoneService
	votes      *repository.VoteRepository
	logger     *zap.Logger
}

func NewMilestoneHandler(
	milestones *service.MilestoneService,
	votes *repository.VoteRepository,
	logger *zap.Logger,
) *MilestoneHandler {
	return &MilestoneHandler{
		milestones: milestones,
		votes:      votes,
		logger:     logger,
	}
}

func pathIDs(c *gin.Context) (projectID, milestoneID int64, ok bool) {
	projectID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return 0, 0, false
	}
	milestoneID, err = strconv.ParseInt(c.Param("milestoneId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid milestone id"})
		return 0, 0, false
	}
	return projectID, milestoneID, true
}

// ReportProgress handles PATCH /projects/:id/milestones/:milestoneId/progress.
func (h *MilestoneHandler) ReportProgress(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, milestoneID, ok := pathIDs(c)
	if !ok {
		return
	}

	var req struct {
		Percentage *int `json:"percentage" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	p, err := h.milestones.ReportProgress(c.Request.Context(), projectID, milestoneID, userID, *req.Percentage)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// RequestCompletion handles POST /projects/:id/milestones/:milestoneId/request-completion.
func (h *MilestoneHandler) RequestCompletion(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, milestoneID, ok := pathIDs(c)
	if !ok {
		return
	}

	p, err := h.milestones.RequestCompletion(c.Request.Context(), projectID, milestoneID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// CastVote handles POST /projects/:id/milestones/:milestoneId/votes.
func (h *MilestoneHandler) CastVote(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, milestoneID, ok := pathIDs(c)
	if !ok {
		return
	}

	var req struct {
		Value       string `json:"value" binding:"required,oneof=confirm reject"`
		Feedback    string `json:"feedback"`
		EvidenceRef string `json:"evidence_ref"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	p, err := h.milestones.CastVote(c.Request.Context(), service.CastVoteInput{
		ProjectID:   projectID,
		MilestoneID: milestoneID,
		BackerID:    userID,
		Value:       model.VoteValue(req.Value),
		Feedback:    req.Feedback,
		EvidenceRef: req.EvidenceRef,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// ListVotes handles GET /projects/:id/milestones/:milestoneId/votes.
func (h *MilestoneHandler) ListVotes(c *gin.Context) {
	_, milestoneID, ok := pathIDs(c)
	if !ok {
		return
	}

	votes, err := h.votes.ListByMilestone(c.Request.Context(), milestoneID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"votes": votes})
}

// Override handles POST /admin/projects/:id/milestones/:milestoneId/override.
func (h *MilestoneHandler) Override(c *gin.Context) {
	adminID, role, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, milestoneID, ok := pathIDs(c)
	if !ok {
		return
	}

	var req struct {
		Decision string `json:"decision" binding:"required,oneof=approved disputed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	p, err := h.milestones.Override(c.Request.Context(), projectID, milestoneID, adminID, role, escrow.Outcome(req.Decision))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}
