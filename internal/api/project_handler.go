package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"crowdvault/internal/escrow"
	"crowdvault/internal/model"
	"crowdvault/internal/repository"
	"crowdvault/internal/service"
)

type ProjectHandler struct {
	projects *service.ProjectService
	logger   *zap.Logger
}

func NewProjectHandler(projects *service.ProjectService, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{projects: projects, logger: logger}
}

type milestoneRequest struct {
	Title             string    `json:"title" binding:"required"`
	Description       string    `json:"description"`
	Deadline          time.Time `json:"deadline" binding:"required"`
	FundingPercentage int       `json:"funding_percentage" binding:"required"`
}

type createProjectRequest struct {
	Title       string             `json:"title" binding:"required"`
	Description string             `json:"description" binding:"required"`
	Category    string             `json:"category" binding:"required"`
	FundingGoal int64              `json:"funding_goal" binding:"required"`
	Deadline    time.Time          `json:"deadline" binding:"required"`
	Milestones  []milestoneRequest `json:"milestones" binding:"required"`
}

// Create handles POST /projects.
func (h *ProjectHandler) Create(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	allocs := make([]escrow.MilestoneAllocation, 0, len(req.Milestones))
	for _, m := range req.Milestones {
		allocs = append(allocs, escrow.MilestoneAllocation{
			Title:             m.Title,
			Description:       m.Description,
			Deadline:          m.Deadline,
			FundingPercentage: m.FundingPercentage,
		})
	}

	p, err := h.projects.Create(c.Request.Context(), service.CreateProjectInput{
		CreatorID:   userID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		FundingGoal: req.FundingGoal,
		Deadline:    req.Deadline,
		Milestones:  allocs,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, p)
}

// Get handles GET /projects/:id.
func (h *ProjectHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	p, err := h.projects.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// List handles GET /projects with optional status, category, creator_id,
// limit and offset query params.
func (h *ProjectHandler) List(c *gin.Context) {
	f := repository.ProjectFilter{
		Status:   model.ProjectStatus(c.Query("status")),
		Category: c.Query("category"),
	}
	if v := c.Query("creator_id"); v != "" {
		f.CreatorID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := c.Query("limit"); v != "" {
		f.Limit, _ = strconv.Atoi(v)
	}
	if v := c.Query("offset"); v != "" {
		f.Offset, _ = strconv.Atoi(v)
	}

	projects, err := h.projects.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// Verify handles POST /admin/projects/:id/verify.
func (h *ProjectHandler) Verify(c *gin.Context) {
	adminID, role, ok := currentUser(c)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	p, err := h.projects.Verify(c.Request.Context(), id, adminID, role)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// Flag handles POST /admin/projects/:id/flag.
func (h *ProjectHandler) Flag(c *gin.Context) {
	adminID, role, ok := currentUser(c)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "flag reason is required"})
		return
	}

	p, err := h.projects.Flag(c.Request.Context(), id, adminID, role, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}
