package main

import (
	"time"

	"go.uber.org/zap"

	"crowdvault/config"
	"crowdvault/internal/mqhandler"
	"crowdvault/internal/repository"
	"crowdvault/internal/service"
	"crowdvault/pkg/db"
	"crowdvault/pkg/logger"
	"crowdvault/pkg/mq"
	"crowdvault/pkg/redis"
	"crowdvault/pkg/util"
)

type binding struct {
	queue   string
	pattern string
	handler mq.MessageHandler
}

func main() {
	// 1. Load config
	cfg := config.Load()

	// 2. Init logger
	logg := logger.NewLogger()
	defer logg.Sync()

	// 3. Init Redis (event dedup)
	redis.NewRedisClient(cfg.Redis)
	deduper := util.NewDeduperWithLogger(redis.Rdb, time.Hour, logg)

	// 4. Init database
	pool, err := db.NewConnection(cfg.DB, logg)
	if err != nil {
		logg.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	// 5. Init repositories
	projectRepo := repository.NewProjectRepository(pool, logg)
	contributionRepo := repository.NewContributionRepository(pool, logg)
	notificationRepo := repository.NewNotificationRepository(pool, logg)
	auditRepo := repository.NewAuditRepository(pool, logg)

	// 6. Init handlers
	projectHandler := mqhandler.NewProjectEventHandler(notificationRepo, auditRepo, contributionRepo, deduper, logg)
	milestoneHandler := mqhandler.NewMilestoneEventHandler(notificationRepo, auditRepo, contributionRepo, projectRepo, deduper, logg)
	contributionHandler := mqhandler.NewContributionEventHandler(notificationRepo, auditRepo, deduper, logg)

	// 7. One consumer per event family, bound with a wildcard pattern.
	bindings := []binding{
		{"events.project.q", "project.*", projectHandler.Handle},
		{"events.milestone.q", "milestone.*", milestoneHandler.Handle},
		{"events.contribution.q", "contribution.*", contributionHandler.Handle},
	}

	// 8. Optional webhook mirror on a catch-all binding.
	if cfg.Webhook.URL != "" {
		publisher, err := mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			logg.Fatal("Failed to init publisher", zap.Error(err))
		}
		defer publisher.Close()

		webhookClient := service.NewWebhookClient(cfg.Webhook.URL)
		retryCounter := util.NewRetryCounter(redis.Rdb, 24*time.Hour)
		forwarder := mqhandler.NewWebhookForwarder(webhookClient, retryCounter, publisher, logg)

		bindings = append(bindings, binding{"events.webhook.q", "#", forwarder.Handle})
	}

	for _, b := range bindings {
		logg.Info("Initializing consumer",
			zap.String("queue", b.queue),
			zap.String("pattern", b.pattern),
		)

		consumer, err := mq.NewConsumer(cfg.MQ.URL, b.queue, b.pattern, logg)
		if err != nil {
			logg.Fatal("Failed to create consumer",
				zap.String("queue", b.queue),
				zap.Error(err),
			)
		}
		defer consumer.Close()

		consumer.SetHandler(b.handler)

		go func(c *mq.Consumer, queue string) {
			if err := c.StartConsuming(); err != nil {
				logg.Error("Consumer stopped",
					zap.String("queue", queue),
					zap.Error(err),
				)
			}
		}(consumer, b.queue)
	}

	logg.Info("All consumers started, worker is ready to process messages")
	select {}
}
