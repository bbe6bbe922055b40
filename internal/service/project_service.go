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

type ProjectService struct {
	pool     *pgxpool.Pool
	projects *repository.ProjectRepository
	users    *repository.UserRepository
	outbox   *outbox.Repository
	logger   *zap.Logger
}

func NewProjectService(
	pool *pgxpool.Pool,
	projects *repository.ProjectRepository,
	users *repository.UserRepository,
	outboxRepo *outbox.Repository,
	logger *zap.Logger,
) *ProjectService {
	return &ProjectService{
		pool:     pool,
		projects: projects,
		users:    users,
		outbox:   outboxRepo,
		logger:   logger,
	}
}

// CreateProjectInput is everything a creator supplies at launch.
type CreateProjectInput struct {
	CreatorID   int64
	Title       string
	Description string
	Category    string
	FundingGoal int64
	Deadline    time.Time
	Milestones  []escrow.MilestoneAllocation
}

// Create builds the milestone schedule, submits the project for admin
// review, and persists everything in one transaction.
func (s *ProjectService) Create(ctx context.Context, in CreateProjectInput) (*model.Project, error) {
	creator, err := s.users.GetByID(ctx, in.CreatorID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	milestones, err := escrow.NewMilestoneSchedule(in.FundingGoal, in.Milestones, now)
	if err != nil {
		return nil, err
	}

	p := &model.Project{
		CreatorID:   in.CreatorID,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		FundingGoal: in.FundingGoal,
		Deadline:    in.Deadline,
		Milestones:  milestones,
	}
	if err := escrow.SubmitForReview(p, creator.KycStatus, now); err != nil {
		return nil, err
	}

	err = withTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := s.projects.Insert(ctx, tx, p); err != nil {
			return err
		}
		return outbox.InsertEventInTx(ctx, tx, s.outbox, "project", &p.ID,
			events.ProjectSubmitted, events.ProjectEvent{
				ProjectID:  p.ID,
				CreatorID:  p.CreatorID,
				Title:      p.Title,
				Status:     string(p.Status),
				OccurredAt: now,
			})
	})
	if err != nil {
		return nil, err
	}

	metrics.IncrementProjectTransition(string(p.Status))
	s.logger.Info("Project submitted for review",
		zap.Int64("project_id", p.ID),
		zap.Int64("creator_id", p.CreatorID),
	)
	return p, nil
}

// Get returns the full aggregate.
func (s *ProjectService) Get(ctx context.Context, id int64) (*model.Project, error) {
	return s.projects.GetByID(ctx, id)
}

// List returns projects matching the filter.
func (s *ProjectService) List(ctx context.Context, f repository.ProjectFilter) ([]*model.Project, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	return s.projects.List(ctx, f)
}

// Verify approves a pending project for fundraising.
func (s *ProjectService) Verify(ctx context.Context, projectID, adminID int64, role model.Role) (*model.Project, error) {
	now := time.Now()
	p, err := mutateProject(ctx, s.pool, s.projects, projectID, func(tx pgx.Tx, p *model.Project) error {
		if err := escrow.AdminVerify(p, role, now); err != nil {
			return err
		}
		return outbox.InsertEventInTx(ctx, tx, s.outbox, "project", &p.ID,
			events.ProjectVerified, events.ProjectEvent{
				ProjectID:  p.ID,
				CreatorID:  p.CreatorID,
				Title:      p.Title,
				Status:     string(p.Status),
				AdminID:    adminID,
				OccurredAt: now,
			})
	})
	if err != nil {
		return nil, err
	}

	metrics.IncrementProjectTransition(string(p.Status))
	s.logger.Info("Project verified",
		zap.Int64("project_id", p.ID),
		zap.Int64("admin_id", adminID),
	)
	return p, nil
}

// Flag rejects a pending project with a mandatory reason.
func (s *ProjectService) Flag(ctx context.Context, projectID, adminID int64, role model.Role, reason string) (*model.Project, error) {
	now := time.Now()
	p, err := mutateProject(ctx, s.pool, s.projects, projectID, func(tx pgx.Tx, p *model.Project) error {
		if err := escrow.AdminFlag(p, role, adminID, reason, now); err != nil {
			return err
		}
		return outbox.InsertEventInTx(ctx, tx, s.outbox, "project", &p.ID,
			events.ProjectFlagged, events.ProjectEvent{
				ProjectID:  p.ID,
				CreatorID:  p.CreatorID,
				Title:      p.Title,
				Status:     string(p.Status),
				Reason:     reason,
				AdminID:    adminID,
				OccurredAt: now,
			})
	})
	if err != nil {
		return nil, err
	}

	metrics.IncrementProjectTransition(string(p.Status))
	s.logger.Info("Project flagged",
		zap.Int64("project_id", p.ID),
		zap.Int64("admin_id", adminID),
		zap.String("reason", reason),
	)
	return p, nil
}
