package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"crowdvault/internal/events"
	"crowdvault/internal/model"
	"crowdvault/internal/repository"
	"crowdvault/pkg/util"
)

// ContributionEventHandler writes audit entries for contributions and
// notifies backers of their refunds.
type ContributionEventHandler struct {
	notifications *repository.NotificationRepository
	audits        *repository.AuditRepository
	deduper       *util.Deduper
	logger        *zap.Logger
}

func NewContributionEventHandler(
	notifications *repository.NotificationRepository,
	audits *repository.AuditRepository,
	deduper *util.Deduper,
	logger *zap.Logger,
) *ContributionEventHandler {
	return &ContributionEventHandler{
		notifications: notifications,
		audits:        audits,
		deduper:       deduper,
		logger:        logger,
	}
}

// Handle is the consumer callback for contribution.* events.
func (h *ContributionEventHandler) Handle(ctx context.Context, routingKey string, raw json.RawMessage) error {
	var ev events.ContributionEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		h.logger.Error("Failed to unmarshal ContributionEvent", zap.Error(err))
		return err
	}

	handler := fmt.Sprintf("contribution:%s:%d:%d", routingKey, ev.ProjectID, ev.BackerID)
	if !h.deduper.AcquireOnce(ctx, handler, ev.OccurredAt.UnixNano()) {
		return nil
	}

	err := h.audits.Insert(ctx, &model.AuditLog{
		ActorID:    ev.BackerID,
		Action:     routingKey,
		EntityType: "contribution",
		EntityID:   ev.ProjectID,
		Details:    raw,
	})
	if err != nil {
		return err
	}

	if routingKey != events.ContributionRefund {
		return nil
	}

	return h.notifications.Insert(ctx, &model.Notification{
		UserID:  ev.BackerID,
		Title:   "Refund issued",
		Message: fmt.Sprintf("A refund of %d cents from project %d is on its way to you.", ev.Amount, ev.ProjectID),
		Type:    "info",
		Link:    fmt.Sprintf("/projects/%d", ev.ProjectID),
	})
}
