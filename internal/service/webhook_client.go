package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"crowdvault/pkg/circuitbreaker"
	"crowdvault/pkg/metrics"
)

// WebhookClient delivers domain events to an external HTTP endpoint.
// Deliveries go through a circuit breaker so a dead receiver cannot
// stall the worker.
type WebhookClient struct {
	url        string
	httpClient *http.Client
	cb         *circuitbreaker.CircuitBreaker
}

func NewWebhookClient(url string) *WebhookClient {
	cbConfig := circuitbreaker.Config{
		FailureThreshold:    3,
		SuccessThreshold:    2,
		Timeout:             30 * time.Second,
		HalfOpenMaxRequests: 2,
	}

	return &WebhookClient{
		url: url,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		cb: circuitbreaker.NewCircuitBreaker(cbConfig),
	}
}

type webhookEnvelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Deliver posts one event to the configured endpoint. Error messages are
// kept stable so util.IsRetryableError can classify them.
func (c *WebhookClient) Deliver(ctx context.Context, event string, payload json.RawMessage) error {
	body, err := json.Marshal(webhookEnvelope{Event: event, Payload: payload})
	if err != nil {
		return err
	}

	return c.cb.Execute(func() error {
		start := time.Now()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Event-Type", event)

		resp, err := c.httpClient.Do(req)
		latency := time.Since(start)
		if err != nil {
			metrics.RecordWebhookDeliveryLatency("error", latency)
			return fmt.Errorf("failed to deliver webhook: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			metrics.RecordWebhookDeliveryLatency("5xx", latency)
			return fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			metrics.RecordWebhookDeliveryLatency("4xx", latency)
			return fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}

		metrics.RecordWebhookDeliveryLatency("success", latency)
		return nil
	})
}
