package service

import (
	"context"
	"errors"
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

type MilestoneService struct {
	pool          *pgxpool.Pool
	projects      *repository.ProjectRepository
	contributions *repository.ContributionRepository
	votes         *repository.VoteRepository
	payouts       *repository.PayoutRepository
	outbox        *outbox.Repository
	policy        escrow.ApprovalPolicy
	logger        *zap.Logger
}

func NewMilestoneService(
	pool *pgxpool.Pool,
	projects *repository.ProjectRepository,
	contributions *repository.ContributionRepository,
	votes *repository.VoteRepository,
	payouts *repository.PayoutRepository,
	outboxRepo *outbox.Repository,
	policy escrow.ApprovalPolicy,
	logger *zap.Logger,
) *MilestoneService {
	return &MilestoneService{
		pool:          pool,
		projects:      projects,
		contributions: contributions,
		votes:         votes,
		payouts:       payouts,
		outbox:        outboxRepo,
		policy:        policy,
		logger:        logger,
	}
}

// ReportProgress updates the active milestone's self-declared completion.
func (s *MilestoneService) ReportProgress(ctx context.Context, projectID, milestoneID, actorID int64, percentage int) (*model.Project, error) {
	now := time.Now()
	return mutateProject(ctx, s.pool, s.projects, projectID, func(tx pgx.Tx, p *model.Project) error {
		if err := escrow.ReportProgress(p, milestoneID, actorID, percentage); err != nil {
			return err
		}
		m := p.MilestoneByID(milestoneID)
		return outbox.InsertEventInTx(ctx, tx, s.outbox, "milestone", &milestoneID,
			events.MilestoneProgress, events.MilestoneEvent{
				ProjectID:   projectID,
				MilestoneID: milestoneID,
				PhaseOrder:  m.PhaseOrder,
				Title:       m.Title,
				Status:      string(m.Status),
				ActorID:     actorID,
				OccurredAt:  now,
			})
	})
}

// RequestCompletion moves the active milestone into backer review.
func (s *MilestoneService) RequestCompletion(ctx context.Context, projectID, milestoneID, actorID int64) (*model.Project, error) {
	now := time.Now()
	p, err := mutateProject(ctx, s.pool, s.projects, projectID, func(tx pgx.Tx, p *model.Project) error {
		if err := escrow.RequestCompletion(p, milestoneID, actorID, now); err != nil {
			return err
		}
		m := p.MilestoneByID(milestoneID)
		return outbox.InsertEventInTx(ctx, tx, s.outbox, "milestone", &milestoneID,
			events.MilestoneReview, events.MilestoneEvent{
				ProjectID:   projectID,
				MilestoneID: milestoneID,
				PhaseOrder:  m.PhaseOrder,
				Title:       m.Title,
				Status:      string(m.Status),
				ActorID:     actorID,
				OccurredAt:  now,
			})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Milestone review requested",
		zap.Int64("project_id", projectID),
		zap.Int64("milestone_id", milestoneID),
	)
	return p, nil
}

// CastVoteInput is one backer's verdict plus optional feedback.
type CastVoteInput struct {
	ProjectID   int64
	MilestoneID int64
	BackerID    int64
	Value       model.VoteValue
	Feedback    string
	EvidenceRef string
}

// CastVote records the vote and evaluates the tally. A decisive tally
// resolves the milestone in the same transaction.
func (s *MilestoneService) CastVote(ctx context.Context, in CastVoteInput) (*model.Project, error) {
	now := time.Now()

	contributed, err := s.contributions.SumByBacker(ctx, in.ProjectID, in.BackerID)
	if err != nil {
		return nil, err
	}
	eligible, err := s.contributions.CountDistinctBackers(ctx, in.ProjectID)
	if err != nil {
		return nil, err
	}

	p, err := mutateProject(ctx, s.pool, s.projects, in.ProjectID, func(tx pgx.Tx, p *model.Project) error {
		if err := escrow.ValidateVote(p, in.MilestoneID, in.BackerID, contributed, in.Value); err != nil {
			return err
		}

		v := &model.ApprovalVote{
			MilestoneID: in.MilestoneID,
			ProjectID:   in.ProjectID,
			BackerID:    in.BackerID,
			Value:       in.Value,
			Feedback:    in.Feedback,
			EvidenceRef: in.EvidenceRef,
		}
		if err := s.votes.Upsert(ctx, tx, v); err != nil {
			return err
		}

		err := outbox.InsertEventInTx(ctx, tx, s.outbox, "milestone", &in.MilestoneID,
			events.MilestoneVoteCast, events.MilestoneEvent{
				ProjectID:   in.ProjectID,
				MilestoneID: in.MilestoneID,
				Status:      string(in.Value),
				ActorID:     in.BackerID,
				OccurredAt:  now,
			})
		if err != nil {
			return err
		}

		confirm, reject, err := s.votes.CountsInTx(ctx, tx, in.MilestoneID)
		if err != nil {
			return err
		}
		tally := escrow.Tally{Confirm: confirm, Reject: reject, Eligible: eligible}

		m := p.MilestoneByID(in.MilestoneID)
		outcome, resolved := escrow.EvaluateTally(m, tally, s.policy, now)
		if !resolved {
			return nil
		}
		return s.resolve(ctx, tx, p, in.MilestoneID, outcome, now)
	})
	if err != nil {
		return nil, err
	}

	return p, nil
}

// Override lets an admin force a verdict on a milestone stuck in review or
// dispute. Approving a disputed milestone is the escape hatch that unblocks
// the project.
func (s *MilestoneService) Override(ctx context.Context, projectID, milestoneID, adminID int64, role model.Role, decision escrow.Outcome) (*model.Project, error) {
	now := time.Now()
	p, err := mutateProject(ctx, s.pool, s.projects, projectID, func(tx pgx.Tx, p *model.Project) error {
		if err := escrow.ValidateOverride(p, milestoneID, role, decision); err != nil {
			return err
		}
		return s.resolve(ctx, tx, p, milestoneID, decision, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Milestone resolved by admin override",
		zap.Int64("project_id", projectID),
		zap.Int64("milestone_id", milestoneID),
		zap.Int64("admin_id", adminID),
		zap.String("decision", string(decision)),
	)
	return p, nil
}

// EvaluateExpiredRound closes a voting round whose window has lapsed. The
// sweeper calls this; it is a no-op for rounds still in flight.
func (s *MilestoneService) EvaluateExpiredRound(ctx context.Context, projectID, milestoneID int64) (bool, error) {
	now := time.Now()

	eligible, err := s.contributions.CountDistinctBackers(ctx, projectID)
	if err != nil {
		return false, err
	}
	confirm, reject, err := s.votes.Counts(ctx, milestoneID)
	if err != nil {
		return false, err
	}
	tally := escrow.Tally{Confirm: confirm, Reject: reject, Eligible: eligible}

	resolvedRound := false
	_, err = mutateProject(ctx, s.pool, s.projects, projectID, func(tx pgx.Tx, p *model.Project) error {
		m := p.MilestoneByID(milestoneID)
		if m == nil {
			return errNoChange
		}
		outcome, resolved := escrow.EvaluateTally(m, tally, s.policy, now)
		if !resolved {
			return errNoChange
		}
		resolvedRound = true
		return s.resolve(ctx, tx, p, milestoneID, outcome, now)
	})
	if err != nil {
		return false, err
	}
	return resolvedRound, nil
}

// resolve applies the verdict to the aggregate, clears the round's votes,
// and on approval releases (or defers) the milestone's escrow.
func (s *MilestoneService) resolve(ctx context.Context, tx pgx.Tx, p *model.Project, milestoneID int64, outcome escrow.Outcome, now time.Time) error {
	if err := escrow.ResolveMilestone(p, milestoneID, outcome, now); err != nil {
		return err
	}
	if err := s.votes.DeleteForMilestone(ctx, tx, milestoneID); err != nil {
		return err
	}
	metrics.IncrementMilestoneResolution(string(outcome))

	if p.Status == model.ProjectCompleted {
		metrics.IncrementProjectTransition(string(p.Status))
		err := outbox.InsertEventInTx(ctx, tx, s.outbox, "project", &p.ID,
			events.ProjectCompleted, events.ProjectEvent{
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

	m := p.MilestoneByID(milestoneID)

	if outcome == escrow.OutcomeDisputed {
		return outbox.InsertEventInTx(ctx, tx, s.outbox, "milestone", &milestoneID,
			events.MilestoneDisputed, events.MilestoneEvent{
				ProjectID:   p.ID,
				MilestoneID: milestoneID,
				PhaseOrder:  m.PhaseOrder,
				Title:       m.Title,
				Status:      string(m.Status),
				OccurredAt:  now,
			})
	}

	releasedToDate, err := s.payouts.SumReleased(ctx, p.ID)
	if err != nil {
		return err
	}

	amount, err := escrow.ReleaseAmount(p, m, releasedToDate)
	var short *escrow.InsufficientEscrowError
	switch {
	case err == nil:
		paidAt := now
		payout := &model.Payout{
			ProjectID:   p.ID,
			MilestoneID: milestoneID,
			Amount:      amount,
			Status:      model.PayoutPaid,
			PaidAt:      &paidAt,
		}
		if err := s.payouts.Insert(ctx, tx, payout); err != nil {
			return err
		}
		metrics.EscrowReleasedCents.Add(float64(amount))
		return outbox.InsertEventInTx(ctx, tx, s.outbox, "milestone", &milestoneID,
			events.MilestoneReleased, events.MilestoneEvent{
				ProjectID:   p.ID,
				MilestoneID: milestoneID,
				PhaseOrder:  m.PhaseOrder,
				Title:       m.Title,
				Status:      string(m.Status),
				Amount:      amount,
				OccurredAt:  now,
			})
	case errors.As(err, &short):
		// Approval stands. The payout is owed until escrow catches up.
		payout := &model.Payout{
			ProjectID:   p.ID,
			MilestoneID: milestoneID,
			Amount:      short.Amount,
			Status:      model.PayoutOwed,
		}
		if err := s.payouts.Insert(ctx, tx, payout); err != nil {
			return err
		}
		s.logger.Warn("Milestone release deferred",
			zap.Int64("project_id", p.ID),
			zap.Int64("milestone_id", milestoneID),
			zap.Int64("shortfall", short.Shortfall),
		)
		return outbox.InsertEventInTx(ctx, tx, s.outbox, "milestone", &milestoneID,
			events.MilestoneDeferred, events.MilestoneEvent{
				ProjectID:   p.ID,
				MilestoneID: milestoneID,
				PhaseOrder:  m.PhaseOrder,
				Title:       m.Title,
				Status:      string(m.Status),
				Amount:      short.Amount,
				Shortfall:   short.Shortfall,
				OccurredAt:  now,
			})
	default:
		return err
	}
}
