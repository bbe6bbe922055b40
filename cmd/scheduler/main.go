package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"crowdvault/config"
	"crowdvault/internal/escrow"
	"crowdvault/internal/repository"
	"crowdvault/internal/service"
	"crowdvault/pkg/db"
	"crowdvault/pkg/logger"
	"crowdvault/pkg/mq"
	"crowdvault/pkg/outbox"
)

// The scheduler binary owns the two background loops: the outbox
// dispatcher that drains pending events to RabbitMQ, and the cron sweep
// that advances deadlines, expired voting rounds and dispute grace.
func main() {
	// 1. Load config
	cfg := config.Load()

	// 2. Init logger
	logg := logger.NewLogger()
	defer logg.Sync()

	// 3. Init database
	pool, err := db.NewConnection(cfg.DB, logg)
	if err != nil {
		logg.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	// 4. Init RabbitMQ publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		logg.Fatal("Failed to init publisher", zap.Error(err))
	}
	defer publisher.Close()

	// 5. Init repositories and services
	projectRepo := repository.NewProjectRepository(pool, logg)
	contributionRepo := repository.NewContributionRepository(pool, logg)
	voteRepo := repository.NewVoteRepository(pool, logg)
	payoutRepo := repository.NewPayoutRepository(pool, logg)
	refundRepo := repository.NewRefundRepository(pool, logg)
	outboxRepo := outbox.NewRepository(pool)

	approvalPolicy := escrow.ApprovalPolicy{
		QuorumFraction: cfg.Approval.QuorumFraction,
		VotingWindow:   cfg.Approval.VotingWindow(),
	}
	lifecyclePolicy := escrow.LifecyclePolicy{
		DisputeGrace: cfg.Lifecycle.DisputeGrace(),
	}

	fundingService := service.NewFundingService(pool, projectRepo, contributionRepo, payoutRepo, refundRepo, outboxRepo, logg)
	milestoneService := service.NewMilestoneService(pool, projectRepo, contributionRepo, voteRepo, payoutRepo, outboxRepo, approvalPolicy, logg)
	sweeper := service.NewSweeperService(pool, projectRepo, milestoneService, fundingService, outboxRepo, lifecyclePolicy, logg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 6. Start outbox dispatcher
	dispatcher := outbox.NewDispatcher(outboxRepo, publisher, logg)
	go dispatcher.Start(ctx)

	// 7. Schedule the sweep
	c := cron.New()
	_, err = c.AddFunc("@every 1m", func() {
		sweeper.Sweep(context.Background())
	})
	if err != nil {
		logg.Fatal("Failed to schedule sweep", zap.Error(err))
	}
	c.Start()

	logg.Info("Scheduler started",
		zap.String("sweep_interval", "1m"),
	)

	// 8. Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info("Shutting down scheduler")
	cancel()
	<-c.Stop().Done()
}
