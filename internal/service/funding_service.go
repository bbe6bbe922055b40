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

type FundingService struct {
	pool          *pgxpool.Pool
	projects      *repository.ProjectRepository
	contributions *repository.ContributionRepository
	payouts       *repository.PayoutRepository
	refunds       *repository.RefundRepository
	outbox        *outbox.Repository
	logger        *zap.Logger
}

func NewFundingService(
	pool *pgxpool.Pool,
	projects *repository.ProjectRepository,
	contributions *repository.ContributionRepository,
	payouts *repository.PayoutRepository,
	refunds *repository.RefundRepository,
	outboxRepo *outbox.Repository,
	logger *zap.Logger,
) *FundingService {
	return &FundingService{
		pool:          pool,
		projects:      projects,
		contributions: contributions,
		payouts:       payouts,
		refunds:       refunds,
		outbox:        outboxRepo,
		logger:        logger,
	}
}

// Contribute records a backer's contribution. Reaching the goal emits its
// own event; any payouts owed from under-funded releases settle as soon as
// the new escrow covers them.
func (s *FundingService) Contribute(ctx context.Context, projectID, backerID, amount int64) (*model.Contribution, error) {
	now := time.Now()

	contributed, err := s.contributions.HasContributed(ctx, projectID, backerID)
	if err != nil {
		return nil, err
	}

	var c *model.Contribution
	_, err = mutateProject(ctx, s.pool, s.projects, projectID, func(tx pgx.Tx, p *model.Project) error {
		goalReached, err := escrow.ApplyContribution(p, amount, !contributed, now)
		if err != nil {
			return err
		}

		c = &model.Contribution{
			ProjectID: projectID,
			BackerID:  backerID,
			Amount:    amount,
		}
		if err := s.contributions.Insert(ctx, tx, c); err != nil {
			return err
		}

		err = outbox.InsertEventInTx(ctx, tx, s.outbox, "contribution", &p.ID,
			events.ContributionMade, events.ContributionEvent{
				ProjectID:   projectID,
				BackerID:    backerID,
				Amount:      amount,
				GoalReached: goalReached,
				OccurredAt:  now,
			})
		if err != nil {
			return err
		}

		if goalReached {
			err = outbox.InsertEventInTx(ctx, tx, s.outbox, "project", &p.ID,
				events.ProjectGoalHit, events.ProjectEvent{
					ProjectID:  p.ID,
					CreatorID:  p.CreatorID,
					Title:      p.Title,
					Status:     string(p.Status),
					OccurredAt: now,
				})
			if err != nil {
				return err
			}
		}

		return s.settleOwedPayouts(ctx, tx, p)
	})
	if err != nil {
		metrics.IncrementContribution("rejected")
		return nil, err
	}

	metrics.IncrementContribution("success")
	s.logger.Info("Contribution recorded",
		zap.Int64("project_id", projectID),
		zap.Int64("backer_id", backerID),
		zap.Int64("amount", amount),
	)
	return c, nil
}

// settleOwedPayouts pays deferred releases oldest first while the new
// escrow level covers them.
func (s *FundingService) settleOwedPayouts(ctx context.Context, tx pgx.Tx, p *model.Project) error {
	owed, err := s.payouts.ListOwed(ctx, p.ID)
	if err != nil {
		return err
	}
	if len(owed) == 0 {
		return nil
	}

	paidToDate, err := s.payouts.SumPaid(ctx, p.ID)
	if err != nil {
		return err
	}

	for _, payout := range owed {
		if !escrow.CanSettle(p, *payout, paidToDate) {
			break
		}
		if err := s.payouts.MarkPaid(ctx, tx, payout.ID); err != nil {
			return err
		}
		paidToDate += payout.Amount
		metrics.EscrowReleasedCents.Add(float64(payout.Amount))

		m := p.MilestoneByID(payout.MilestoneID)
		ev := events.MilestoneEvent{
			ProjectID:   p.ID,
			MilestoneID: payout.MilestoneID,
			Amount:      payout.Amount,
			OccurredAt:  time.Now(),
		}
		if m != nil {
			ev.PhaseOrder = m.PhaseOrder
			ev.Title = m.Title
			ev.Status = string(m.Status)
		}
		err := outbox.InsertEventInTx(ctx, tx, s.outbox, "milestone", &payout.MilestoneID,
			events.MilestoneReleased, ev)
		if err != nil {
			return err
		}

		s.logger.Info("Deferred payout settled",
			zap.Int64("project_id", p.ID),
			zap.Int64("milestone_id", payout.MilestoneID),
			zap.Int64("amount", payout.Amount),
		)
	}
	return nil
}

// RefundFailedProject fans out pro-rata refunds to every backer of a
// failed project. It is idempotent: a second call finds the refund rows
// and does nothing.
func (s *FundingService) RefundFailedProject(ctx context.Context, projectID int64) (int, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return 0, err
	}

	done, err := s.refunds.ExistsForProject(ctx, projectID)
	if err != nil {
		return 0, err
	}
	if done {
		return 0, nil
	}

	totals, err := s.contributions.TotalsByBacker(ctx, projectID)
	if err != nil {
		return 0, err
	}
	if len(totals) == 0 {
		return 0, nil
	}

	releasedTotal, err := s.payouts.SumReleased(ctx, projectID)
	if err != nil {
		return 0, err
	}

	count := 0
	err = withTx(ctx, s.pool, func(tx pgx.Tx) error {
		for _, bt := range totals {
			share, err := escrow.RefundShare(p, bt.Total, releasedTotal)
			if err != nil {
				return err
			}
			if share == 0 {
				continue
			}

			ref := &model.Refund{
				ProjectID: projectID,
				BackerID:  bt.BackerID,
				Amount:    share,
			}
			if err := s.refunds.Insert(ctx, tx, ref); err != nil {
				return err
			}
			metrics.RefundIssuedCents.Add(float64(share))

			err = outbox.InsertEventInTx(ctx, tx, s.outbox, "contribution", &projectID,
				events.ContributionRefund, events.ContributionEvent{
					ProjectID:  projectID,
					BackerID:   bt.BackerID,
					Amount:     share,
					OccurredAt: time.Now(),
				})
			if err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("Refund fan-out complete",
		zap.Int64("project_id", projectID),
		zap.Int("refunds", count),
	)
	return count, nil
}
