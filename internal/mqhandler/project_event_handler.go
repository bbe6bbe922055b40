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

// ProjectEventHandler turns project.* events into creator notifications
// and audit log entries.
type ProjectEventHandler struct {
	notifications *repository.NotificationRepository
	audits        *repository.AuditRepository
	contributions *repository.ContributionRepository
	deduper       *util.Deduper
	logger        *zap.Logger
}

func NewProjectEventHandler(
	notifications *repository.NotificationRepository,
	audits *repository.AuditRepository,
	contributions *repository.ContributionRepository,
	deduper *util.Deduper,
	logger *zap.Logger,
) *ProjectEventHandler {
	return &ProjectEventHandler{
		notifications: notifications,
		audits:        audits,
		contributions: contributions,
		deduper:       deduper,
		logger:        logger,
	}
}

// Handle is the consumer callback for project.* events.
func (h *ProjectEventHandler) Handle(ctx context.Context, routingKey string, raw json.RawMessage) error {
	var p events.ProjectEvent
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal ProjectEvent", zap.Error(err))
		return err
	}

	handler := fmt.Sprintf("project:%s:%d", routingKey, p.ProjectID)
	if !h.deduper.AcquireOnce(ctx, handler, p.OccurredAt.UnixNano()) {
		return nil
	}

	h.logger.Info("Handling project event",
		zap.String("routing_key", routingKey),
		zap.Int64("project_id", p.ProjectID),
	)

	if err := h.audit(ctx, routingKey, p, raw); err != nil {
		return err
	}
	return h.notify(ctx, routingKey, p)
}

func (h *ProjectEventHandler) audit(ctx context.Context, routingKey string, p events.ProjectEvent, raw json.RawMessage) error {
	actorID := p.AdminID
	if actorID == 0 {
		actorID = p.CreatorID
	}
	return h.audits.Insert(ctx, &model.AuditLog{
		ActorID:    actorID,
		Action:     routingKey,
		EntityType: "project",
		EntityID:   p.ProjectID,
		Details:    raw,
	})
}

func (h *ProjectEventHandler) notify(ctx context.Context, routingKey string, p events.ProjectEvent) error {
	link := fmt.Sprintf("/projects/%d", p.ProjectID)

	var n *model.Notification
	switch routingKey {
	case events.ProjectVerified:
		n = &model.Notification{
			UserID:  p.CreatorID,
			Title:   "Project verified",
			Message: fmt.Sprintf("%q has been verified and is now open for funding.", p.Title),
			Type:    "success",
			Link:    link,
		}
	case events.ProjectFlagged:
		n = &model.Notification{
			UserID:  p.CreatorID,
			Title:   "Project flagged",
			Message: fmt.Sprintf("%q was flagged by an administrator: %s", p.Title, p.Reason),
			Type:    "error",
			Link:    link,
		}
	case events.ProjectActivated:
		n = &model.Notification{
			UserID:  p.CreatorID,
			Title:   "Project active",
			Message: fmt.Sprintf("%q reached its funding goal and is now active.", p.Title),
			Type:    "success",
			Link:    link,
		}
	case events.ProjectGoalHit:
		n = &model.Notification{
			UserID:  p.CreatorID,
			Title:   "Funding goal reached",
			Message: fmt.Sprintf("%q has reached its funding goal.", p.Title),
			Type:    "success",
			Link:    link,
		}
	case events.ProjectCompleted:
		n = &model.Notification{
			UserID:  p.CreatorID,
			Title:   "Project completed",
			Message: fmt.Sprintf("All milestones of %q are complete. Congratulations!", p.Title),
			Type:    "success",
			Link:    link,
		}
	case events.ProjectFailed:
		if err := h.notifyBackers(ctx, p, link); err != nil {
			return err
		}
		n = &model.Notification{
			UserID:  p.CreatorID,
			Title:   "Project failed",
			Message: fmt.Sprintf("%q has failed. Unreleased escrow is being refunded to backers.", p.Title),
			Type:    "error",
			Link:    link,
		}
	default:
		return nil
	}

	return h.notifications.Insert(ctx, n)
}

func (h *ProjectEventHandler) notifyBackers(ctx context.Context, p events.ProjectEvent, link string) error {
	totals, err := h.contributions.TotalsByBacker(ctx, p.ProjectID)
	if err != nil {
		return err
	}
	for _, bt := range totals {
		err := h.notifications.Insert(ctx, &model.Notification{
			UserID:  bt.BackerID,
			Title:   "Project failed",
			Message: fmt.Sprintf("%q has failed. Your share of unreleased escrow will be refunded.", p.Title),
			Type:    "warning",
			Link:    link,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
