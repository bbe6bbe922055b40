package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"crowdvault/internal/escrow"
	"crowdvault/internal/events"
	"crowdvault/internal/model"
	"crowdvault/internal/repository"
	"crowdvault/pkg/metrics"
	"crowdvault/pkg/outbox"
)

// SweeperService runs the timer-driven transitions: activating funded
// projects, failing under-funded ones at deadline, closing lapsed voting
// rounds, and failing projects whose disputes sat past the grace period.
type SweeperService struct {
	pool       *pgxpool.Pool
	projects   *repository.ProjectRepository
	milestones *MilestoneService
	funding    *FundingService
	outbox     *outbox.Repository
	policy     escrow.LifecyclePolicy
	logger     *zap.Logger
}

func NewSweeperService(
	pool *pgxpool.Pool,
	projects *repository.ProjectRepository,
	milestones *MilestoneService,
	funding *FundingService,
	outboxRepo *outbox.Repository,
	policy escrow.LifecyclePolicy,
	logger *zap.Logger,
) *SweeperService {
	return &SweeperService{
		pool:       pool,
		projects:   projects,
		milestones: milestones,
		funding:    funding,
		outbox:     outboxRepo,
		policy:     policy,
		logger:     logger,
	}
}

// Sweep runs one pass over every project the sweeps care about. Errors on
// one project never stop the pass.
func (s *SweeperService) Sweep(ctx context.Context) {
	ids, err := s.projects.ListIDsForSweep(ctx)
	if err != nil {
		s.logger.Error("Sweep: failed to list projects", zap.Error(err))
		return
	}

	for _, id := range ids {
		if err := s.sweepProject(ctx, id); err != nil {
			s.logger.Error("Sweep: project pass failed",
				zap.Int64("project_id", id),
				zap.Error(err),
			)
		}
	}
}

func (s *SweeperService) sweepProject(ctx context.Context, projectID int64) error {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return err
	}

	// Lapsed voting rounds close before the failure checks so a decisive
	// tally still counts.
	for i := range p.Milestones {
		m := &p.Milestones[i]
		if !m.InReview() {
			continue
		}
		if _, err := s.milestones.EvaluateExpiredRound(ctx, projectID, m.ID); err != nil {
			s.logger.Error("Sweep: failed to evaluate voting round",
				zap.Int64("milestone_id", m.ID),
				zap.Error(err),
			)
		}
	}

	if err := s.activate(ctx, projectID); err != nil {
		return err
	}
	return s.failIfDue(ctx, projectID)
}

// activate promotes a verified project that reached its goal.
func (s *SweeperService) activate(ctx context.Context, projectID int64) error {
	now := time.Now()
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return err
	}
	if p.Status != model.ProjectVerified || p.CurrentFunding < p.FundingGoal {
		return nil
	}

	p, err = mutateProject(ctx, s.pool, s.projects, projectID, func(tx pgx.Tx, p *model.Project) error {
		if err := escrow.Activate(p, now); err != nil {
			return err
		}
		return outbox.InsertEventInTx(ctx, tx, s.outbox, "project", &p.ID,
			events.ProjectActivated, events.ProjectEvent{
				ProjectID:  p.ID,
				CreatorID:  p.CreatorID,
				Title:      p.Title,
				Status:     string(p.Status),
				OccurredAt: now,
			})
	})
	if err != nil {
		return err
	}

	metrics.IncrementProjectTransition(string(p.Status))
	s.logger.Info("Project activated", zap.Int64("project_id", p.ID))
	return nil
}

// failIfDue applies the deadline and dispute-grace checks, and on failure
// kicks off the refund fan-out.
func (s *SweeperService) failIfDue(ctx context.Context, projectID int64) error {
	now := time.Now()
	failed := false

	p, err := mutateProject(ctx, s.pool, s.projects, projectID, func(tx pgx.Tx, p *model.Project) error {
		failed = escrow.EvaluateDeadline(p, now) || escrow.EvaluateDisputeGrace(p, s.policy, now)
		if !failed {
			return errNoChange
		}
		return outbox.InsertEventInTx(ctx, tx, s.outbox, "project", &p.ID,
			events.ProjectFailed, events.ProjectEvent{
				ProjectID:  p.ID,
				CreatorID:  p.CreatorID,
				Title:      p.Title,
				Status:     string(p.Status),
				OccurredAt: now,
			})
	})
	if err != nil {
		return err
	}
	if !failed {
		return nil
	}

	metrics.IncrementProjectTransition(string(p.Status))
	s.logger.Info("Project failed", zap.Int64("project_id", p.ID))

	if _, err := s.funding.RefundFailedProject(ctx, projectID); err != nil {
		s.logger.Error("Failed to refund backers",
			zap.Int64("project_id", projectID),
			zap.Error(err),
		)
	}
	return nil
}
