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

// MilestoneEventHandler turns milestone.* events into notifications and
// audit log entries. Review starts and disputes fan out to every backer.
type MilestoneEventHandler struct {
	notifications *repository.NotificationRepository
	audits        *repository.AuditRepository
	contributions *repository.ContributionRepository
	projects      *repository.ProjectRepository
	deduper       *util.Deduper
	logger        *zap.Logger
}

func NewMilestoneEventHandler(
	notifications *repository.NotificationRepository,
	audits *repository.AuditRepository,
	contributions *repository.ContributionRepository,
	projects *repository.ProjectRepository,
	deduper *util.Deduper,
	logger *zap.Logger,
) *MilestoneEventHandler {
	return &MilestoneEventHandler{
		notifications: notifications,
		audits:        audits,
		contributions: contributions,
		projects:      projects,
		deduper:       deduper,
		logger:        logger,
	}
}

// Handle is the consumer callback for milestone.* events.
func (h *MilestoneEventHandler) Handle(ctx context.Context, routingKey string, raw json.RawMessage) error {
	var m events.MilestoneEvent
	if err := json.Unmarshal(raw, &m); err != nil {
		h.logger.Error("Failed to unmarshal MilestoneEvent", zap.Error(err))
		return err
	}

	handler := fmt.Sprintf("milestone:%s:%d", routingKey, m.MilestoneID)
	if !h.deduper.AcquireOnce(ctx, handler, m.OccurredAt.UnixNano()) {
		return nil
	}

	h.logger.Info("Handling milestone event",
		zap.String("routing_key", routingKey),
		zap.Int64("milestone_id", m.MilestoneID),
	)

	err := h.audits.Insert(ctx, &model.AuditLog{
		ActorID:    m.ActorID,
		Action:     routingKey,
		EntityType: "milestone",
		EntityID:   m.MilestoneID,
		Details:    raw,
	})
	if err != nil {
		return err
	}

	return h.notify(ctx, routingKey, m)
}

func (h *MilestoneEventHandler) notify(ctx context.Context, routingKey string, m events.MilestoneEvent) error {
	link := fmt.Sprintf("/projects/%d", m.ProjectID)

	switch routingKey {
	case events.MilestoneReview:
		return h.fanOutToBackers(ctx, m, &model.Notification{
			Title:   "Milestone ready for review",
			Message: fmt.Sprintf("Milestone %d (%s) is awaiting your vote.", m.PhaseOrder+1, m.Title),
			Type:    "info",
			Link:    link,
		})
	case events.MilestoneDisputed:
		if err := h.fanOutToBackers(ctx, m, &model.Notification{
			Title:   "Milestone disputed",
			Message: fmt.Sprintf("Milestone %d (%s) did not pass review and is disputed.", m.PhaseOrder+1, m.Title),
			Type:    "warning",
			Link:    link,
		}); err != nil {
			return err
		}
		return h.notifyCreator(ctx, m, &model.Notification{
			Title:   "Milestone disputed",
			Message: fmt.Sprintf("Milestone %d (%s) was disputed by backers. Resolve it before the grace period ends.", m.PhaseOrder+1, m.Title),
			Type:    "error",
			Link:    link,
		})
	case events.MilestoneReleased:
		return h.notifyCreator(ctx, m, &model.Notification{
			Title:   "Escrow released",
			Message: fmt.Sprintf("Milestone %d (%s) was approved. %d cents have been released.", m.PhaseOrder+1, m.Title, m.Amount),
			Type:    "success",
			Link:    link,
		})
	case events.MilestoneDeferred:
		return h.notifyCreator(ctx, m, &model.Notification{
			Title:   "Release deferred",
			Message: fmt.Sprintf("Milestone %d (%s) was approved but escrow is short by %d cents. The payout settles as funding arrives.", m.PhaseOrder+1, m.Title, m.Shortfall),
			Type:    "warning",
			Link:    link,
		})
	default:
		return nil
	}
}

func (h *MilestoneEventHandler) notifyCreator(ctx context.Context, m events.MilestoneEvent, n *model.Notification) error {
	p, err := h.projects.GetByID(ctx, m.ProjectID)
	if err != nil {
		return err
	}
	n.UserID = p.CreatorID
	return h.notifications.Insert(ctx, n)
}

func (h *MilestoneEventHandler) fanOutToBackers(ctx context.Context, m events.MilestoneEvent, template *model.Notification) error {
	totals, err := h.contributions.TotalsByBacker(ctx, m.ProjectID)
	if err != nil {
		return err
	}
	for _, bt := range totals {
		n := *template
		n.UserID = bt.BackerID
		if err := h.notifications.Insert(ctx, &n); err != nil {
			return err
		}
	}
	return nil
}
