package main

import (
	"crowdvault/config"
	"crowdvault/internal/api"
	"crowdvault/internal/escrow"
	"crowdvault/internal/repository"
	"crowdvault/internal/service"
	"crowdvault/pkg/db"
	"crowdvault/pkg/logger"
	"crowdvault/pkg/mq"
	"crowdvault/pkg/outbox"

	"go.uber.org/zap"
)

func main() {
	// Load config
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	// Init DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("DB initialization failed", zap.Error(err))
	}
	defer dbConn.Close()

	// Init RabbitMQ Publisher (for the outbox replay endpoint)
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("failed to init publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Init Repositories
	projectRepo := repository.NewProjectRepository(dbConn, log)
	contributionRepo := repository.NewContributionRepository(dbConn, log)
	voteRepo := repository.NewVoteRepository(dbConn, log)
	payoutRepo := repository.NewPayoutRepository(dbConn, log)
	refundRepo := repository.NewRefundRepository(dbConn, log)
	userRepo := repository.NewUserRepository(dbConn, log)
	notificationRepo := repository.NewNotificationRepository(dbConn, log)
	auditRepo := repository.NewAuditRepository(dbConn, log)
	outboxRepo := outbox.NewRepository(dbConn)

	// Init Services
	policy := escrow.ApprovalPolicy{
		QuorumFraction: cfg.Approval.QuorumFraction,
		VotingWindow:   cfg.Approval.VotingWindow(),
	}
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, log)
	projectService := service.NewProjectService(dbConn, projectRepo, userRepo, outboxRepo, log)
	fundingService := service.NewFundingService(dbConn, projectRepo, contributionRepo, payoutRepo, refundRepo, outboxRepo, log)
	milestoneService := service.NewMilestoneService(dbConn, projectRepo, contributionRepo, voteRepo, payoutRepo, outboxRepo, policy, log)
	replayService := outbox.NewReplayService(outboxRepo, publisher)

	// Init Handlers
	authHandler := api.NewAuthHandler(authService, log)
	projectHandler := api.NewProjectHandler(projectService, log)
	fundingHandler := api.NewFundingHandler(fundingService, contributionRepo, refundRepo, log)
	milestoneHandler := api.NewMilestoneHandler(milestoneService, voteRepo, log)
	notificationHandler := api.NewNotificationHandler(notificationRepo)
	adminHandler := api.NewAdminHandler(authService, userRepo, projectRepo, auditRepo, replayService, log)

	// Router
	router := api.NewRouter(
		authHandler,
		projectHandler,
		fundingHandler,
		milestoneHandler,
		notificationHandler,
		adminHandler,
		cfg.JWT.Secret,
		dbConn,
		log,
	)

	// Start API server
	if err := router.Run(cfg.Server.Port); err != nil {
		log.Fatal("server start failed", zap.Error(err))
	}
}
