package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	authHandler *AuthHandler,
	projectHandler *ProjectHandler,
	fundingHandler *FundingHandler,
	milestoneHandler *MilestoneHandler,
	notificationHandler *NotificationHandler,
	adminHandler *AdminHandler,
	jwtSecret string,
	db *pgxpool.Pool,
	log *zap.Logger,
) *Router {
	r := gin.Default()
	r.Use(RequestIDMiddleware(log), MetricsMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}

		c.JSON(200, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public
	r.POST("/register", authHandler.Register)
	r.POST("/login", authHandler.Login)
	r.GET("/projects", projectHandler.List)
	r.GET("/projects/:id", projectHandler.Get)

	// Authenticated
	auth := r.Group("/")
	auth.Use(AuthMiddleware(jwtSecret))
	{
		auth.POST("/projects", projectHandler.Create)
		auth.POST("/projects/:id/contributions", fundingHandler.Contribute)
		auth.GET("/projects/:id/contributions", fundingHandler.ListContributions)
		auth.GET("/refunds", fundingHandler.MyRefunds)

		auth.PATCH("/projects/:id/milestones/:milestoneId/progress", milestoneHandler.ReportProgress)
		auth.POST("/projects/:id/milestones/:milestoneId/request-completion", milestoneHandler.RequestCompletion)
		auth.POST("/projects/:id/milestones/:milestoneId/votes", milestoneHandler.CastVote)
		auth.GET("/projects/:id/milestones/:milestoneId/votes", milestoneHandler.ListVotes)

		auth.GET("/notifications", notificationHandler.List)
		auth.POST("/notifications/:id/read", notificationHandler.MarkRead)
	}

	// Admin
	admin := r.Group("/admin")
	admin.Use(AuthMiddleware(jwtSecret), RequireAdmin())
	{
		admin.POST("/projects/:id/verify", projectHandler.Verify)
		admin.POST("/projects/:id/flag", projectHandler.Flag)
		admin.POST("/projects/:id/milestones/:milestoneId/override", milestoneHandler.Override)
		admin.POST("/users/:id/kyc", adminHandler.SetKyc)
		admin.POST("/users/:id/ban", adminHandler.BanUser)
		admin.GET("/stats", adminHandler.Stats)
		admin.GET("/audit/:entityType/:id", adminHandler.AuditTrail)
		admin.POST("/outbox/replay", adminHandler.ReplayEvents)
	}

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}
