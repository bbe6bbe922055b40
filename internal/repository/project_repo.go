package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"crowdvault/internal/model"
)

type ProjectRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewProjectRepository(db *pgxpool.Pool, logger *zap.Logger) *ProjectRepository {
	return &ProjectRepository{
		db:     db,
		logger: logger,
	}
}

// ProjectFilter narrows List results. Zero values mean "no filter".
type ProjectFilter struct {
	Status    model.ProjectStatus
	Category  string
	CreatorID int64
	Limit     int
	Offset    int
}

const projectColumns = `
	id, creator_id, title, description, category, funding_goal,
	current_funding, backers, deadline, status, flag_reason, flagged_by,
	flagged_at, goal_reached_at, failed_at, version, created_at, updated_at
`

const milestoneColumns = `
	id, project_id, phase_order, title, description, deadline,
	funding_percentage, releasable_amount, status, completion_percentage,
	review_started_at, disputed_at, created_at, updated_at
`

// Insert writes the project and its milestone schedule in one transaction.
func (r *ProjectRepository) Insert(ctx context.Context, tx pgx.Tx, p *model.Project) error {
	r.logger.Debug("Inserting project",
		zap.Int64("creator_id", p.CreatorID),
		zap.String("title", p.Title),
	)

	query := `
        INSERT INTO projects (creator_id, title, description, category,
            funding_goal, current_funding, backers, deadline, status, version)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1)
        RETURNING id, version, created_at, updated_at
    `
	err := tx.QueryRow(ctx, query,
		p.CreatorID,
		p.Title,
		p.Description,
		p.Category,
		p.FundingGoal,
		p.CurrentFunding,
		p.Backers,
		p.Deadline,
		p.Status,
	).Scan(&p.ID, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert project", zap.Error(err))
		return err
	}

	for i := range p.Milestones {
		m := &p.Milestones[i]
		m.ProjectID = p.ID
		err := tx.QueryRow(ctx, `
            INSERT INTO milestones (project_id, phase_order, title, description,
                deadline, funding_percentage, releasable_amount, status,
                completion_percentage)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
            RETURNING id, created_at, updated_at
        `,
			m.ProjectID,
			m.PhaseOrder,
			m.Title,
			m.Description,
			m.Deadline,
			m.FundingPercentage,
			m.ReleasableAmount,
			m.Status,
			m.CompletionPercentage,
		).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			r.logger.Error("Failed to insert milestone",
				zap.Int64("project_id", p.ID),
				zap.Int("phase_order", m.PhaseOrder),
				zap.Error(err),
			)
			return err
		}
	}

	r.logger.Info("Project inserted successfully",
		zap.Int64("id", p.ID),
		zap.Int64("creator_id", p.CreatorID),
		zap.Int("milestones", len(p.Milestones)),
	)
	return nil
}

// GetByID loads the project aggregate with its milestones ordered by phase.
func (r *ProjectRepository) GetByID(ctx context.Context, id int64) (*model.Project, error) {
	var p model.Project
	err := r.db.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id).Scan(
		&p.ID,
		&p.CreatorID,
		&p.Title,
		&p.Description,
		&p.Category,
		&p.FundingGoal,
		&p.CurrentFunding,
		&p.Backers,
		&p.Deadline,
		&p.Status,
		&p.FlagReason,
		&p.FlaggedBy,
		&p.FlaggedAt,
		&p.GoalReachedAt,
		&p.FailedAt,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+milestoneColumns+` FROM milestones WHERE project_id = $1 ORDER BY phase_order`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var m model.Milestone
		err := rows.Scan(
			&m.ID,
			&m.ProjectID,
			&m.PhaseOrder,
			&m.Title,
			&m.Description,
			&m.Deadline,
			&m.FundingPercentage,
			&m.ReleasableAmount,
			&m.Status,
			&m.CompletionPercentage,
			&m.ReviewStartedAt,
			&m.DisputedAt,
			&m.CreatedAt,
			&m.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		p.Milestones = append(p.Milestones, m)
	}

	return &p, rows.Err()
}

// Save persists the aggregate conditionally on the version it was loaded
// at. A stale version returns ErrVersionConflict and writes nothing.
func (r *ProjectRepository) Save(ctx context.Context, tx pgx.Tx, p *model.Project, expectedVersion int64) error {
	tag, err := tx.Exec(ctx, `
        UPDATE projects
        SET title = $1, description = $2, category = $3, funding_goal = $4,
            current_funding = $5, backers = $6, deadline = $7, status = $8,
            flag_reason = $9, flagged_by = $10, flagged_at = $11,
            goal_reached_at = $12, failed_at = $13,
            version = version + 1, updated_at = NOW()
        WHERE id = $14 AND version = $15
    `,
		p.Title,
		p.Description,
		p.Category,
		p.FundingGoal,
		p.CurrentFunding,
		p.Backers,
		p.Deadline,
		p.Status,
		p.FlagReason,
		p.FlaggedBy,
		p.FlaggedAt,
		p.GoalReachedAt,
		p.FailedAt,
		p.ID,
		expectedVersion,
	)
	if err != nil {
		r.logger.Error("Failed to save project", zap.Int64("id", p.ID), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		r.logger.Warn("Project version conflict",
			zap.Int64("id", p.ID),
			zap.Int64("expected_version", expectedVersion),
		)
		return ErrVersionConflict
	}
	p.Version = expectedVersion + 1

	for i := range p.Milestones {
		m := &p.Milestones[i]
		_, err := tx.Exec(ctx, `
            UPDATE milestones
            SET status = $1, completion_percentage = $2, review_started_at = $3,
                disputed_at = $4, updated_at = NOW()
            WHERE id = $5 AND project_id = $6
        `,
			m.Status,
			m.CompletionPercentage,
			m.ReviewStartedAt,
			m.DisputedAt,
			m.ID,
			p.ID,
		)
		if err != nil {
			r.logger.Error("Failed to save milestone",
				zap.Int64("milestone_id", m.ID),
				zap.Error(err),
			)
			return err
		}
	}

	return nil
}

// List returns projects matching the filter, newest first. Milestones are
// not loaded here.
func (r *ProjectRepository) List(ctx context.Context, f ProjectFilter) ([]*model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE 1=1`
	args := []any{}

	if f.Status != "" {
		args = append(args, f.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if f.CreatorID != 0 {
		args = append(args, f.CreatorID)
		query += fmt.Sprintf(" AND creator_id = $%d", len(args))
	}

	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*model.Project
	for rows.Next() {
		var p model.Project
		err := rows.Scan(
			&p.ID,
			&p.CreatorID,
			&p.Title,
			&p.Description,
			&p.Category,
			&p.FundingGoal,
			&p.CurrentFunding,
			&p.Backers,
			&p.Deadline,
			&p.Status,
			&p.FlagReason,
			&p.FlaggedBy,
			&p.FlaggedAt,
			&p.GoalReachedAt,
			&p.FailedAt,
			&p.Version,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		projects = append(projects, &p)
	}

	return projects, rows.Err()
}

// ListIDsForSweep returns ids of projects the background sweeps care about:
// anything verified or active, plus anything with a disputed milestone.
func (r *ProjectRepository) ListIDsForSweep(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `
        SELECT DISTINCT p.id
        FROM projects p
        LEFT JOIN milestones m ON m.project_id = p.id
        WHERE p.status IN ('verified', 'active')
           OR m.status IN ('pending-approval', 'disputed')
        ORDER BY p.id
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Stats aggregates project counts and collected funding for the admin
// overview.
func (r *ProjectRepository) Stats(ctx context.Context) (*model.ProjectStats, error) {
	query := `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status = 'pending'),
               COUNT(*) FILTER (WHERE status = 'verified'),
               COUNT(*) FILTER (WHERE status = 'flagged'),
               COUNT(*) FILTER (WHERE status = 'active'),
               COUNT(*) FILTER (WHERE status = 'completed'),
               COUNT(*) FILTER (WHERE status = 'failed'),
               COALESCE(SUM(current_funding) FILTER (WHERE status IN ('verified', 'active', 'completed')), 0)
        FROM projects
    `
	var s model.ProjectStats
	err := r.db.QueryRow(ctx, query).Scan(
		&s.Total,
		&s.Pending,
		&s.Verified,
		&s.Flagged,
		&s.Active,
		&s.Completed,
		&s.Failed,
		&s.TotalFunding,
	)
	if err != nil {
		r.logger.Error("Failed to aggregate project stats", zap.Error(err))
		return nil, err
	}
	return &s, nil
}
