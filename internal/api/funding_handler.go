package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"crowdvault/internal/repository"
	"crowdvault/internal/service"
)

type FundingHandler struct {
	funding       *service.FundingService
	contributions *repository.ContributionRepository
	refunds       *repository.RefundRepository
	logger        *zap.Logger
}

func NewFundingHandler(
	funding *service.FundingService,
	contributions *repository.ContributionRepository,
	refunds *repository.RefundRepository,
	logger *zap.Logger,
) *FundingHandler {
	return &FundingHandler{
		funding:       funding,
		contributions: contributions,
		refunds:       refunds,
		logger:        logger,
	}
}

// Contribute handles POST /projects/:id/contributions.
func (h *FundingHandler) Contribute(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	var req struct {
		Amount int64 `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	contribution, err := h.funding.Contribute(c.Request.Context(), projectID, userID, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, contribution)
}

// ListContributions handles GET /projects/:id/contributions.
func (h *FundingHandler) ListContributions(c *gin.Context) {
	projectID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	contributions, err := h.contributions.ListByProject(c.Request.Context(), projectID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"contributions": contributions})
}

// MyRefunds handles GET /refunds for the authenticated backer.
func (h *FundingHandler) MyRefunds(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	refunds, err := h.refunds.ListByBacker(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"refunds": refunds})
}
