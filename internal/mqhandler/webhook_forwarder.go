package mqhandler

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"crowdvault/internal/service"
	"crowdvault/pkg/mq"
	"crowdvault/pkg/util"
)

const maxWebhookRetries = 5

// WebhookForwarder mirrors every domain event to an external webhook
// endpoint. Retryable delivery failures are nacked for redelivery up to
// maxWebhookRetries, then the event is parked on the DLQ.
type WebhookForwarder struct {
	client       *service.WebhookClient
	retryCounter *util.RetryCounter
	publisher    *mq.Publisher
	logger       *zap.Logger
}

func NewWebhookForwarder(
	client *service.WebhookClient,
	retryCounter *util.RetryCounter,
	publisher *mq.Publisher,
	logger *zap.Logger,
) *WebhookForwarder {
	return &WebhookForwarder{
		client:       client,
		retryCounter: retryCounter,
		publisher:    publisher,
		logger:       logger,
	}
}

// Handle is the consumer callback bound to the catch-all pattern.
func (h *WebhookForwarder) Handle(ctx context.Context, routingKey string, raw json.RawMessage) error {
	var stamp struct {
		OccurredAt time.Time `json:"occurred_at"`
	}
	if err := json.Unmarshal(raw, &stamp); err != nil {
		h.logger.Error("Failed to unmarshal event envelope, sending to DLQ",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
		return h.park(routingKey, raw, err)
	}

	err := h.client.Deliver(ctx, routingKey, raw)
	if err == nil {
		return nil
	}

	isRetryable, errType := util.IsRetryableError(err)
	h.logger.Error("Webhook delivery failed",
		zap.String("routing_key", routingKey),
		zap.String("error_type", errType),
		zap.Bool("retryable", isRetryable),
		zap.Error(err),
	)

	if !isRetryable {
		return h.park(routingKey, raw, err)
	}

	retryKey := util.FormatRetryKey("webhook:"+routingKey, stamp.OccurredAt.UnixNano())
	retryCount, cntErr := h.retryCounter.IncrementAndGet(ctx, retryKey)
	if cntErr != nil {
		h.logger.Warn("Failed to get retry count, continuing anyway",
			zap.String("routing_key", routingKey),
			zap.Error(cntErr),
		)
		retryCount = 1
	}

	if !util.ShouldRetry(retryCount, maxWebhookRetries, isRetryable) {
		h.logger.Warn("Max webhook retries exceeded, sending to DLQ",
			zap.String("routing_key", routingKey),
			zap.Int64("retry_count", retryCount),
		)
		h.retryCounter.Reset(ctx, retryKey)
		return h.park(routingKey, raw, err)
	}

	// Returning the error nacks the delivery for another attempt.
	return err
}

// park drops the event on the DLQ and acks the original delivery.
func (h *WebhookForwarder) park(routingKey string, raw json.RawMessage, cause error) error {
	if err := h.publisher.PublishToDLQ(routingKey, raw, cause.Error()); err != nil {
		h.logger.Error("Failed to publish to DLQ",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
		return err
	}
	return nil
}
