package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"crowdvault/internal/model"
)

type ContributionRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewContributionRepository(db *pgxpool.Pool, logger *zap.Logger) *ContributionRepository {
	return &ContributionRepository{
		db:     db,
		logger: logger,
	}
}

func (r *ContributionRepository) Insert(ctx context.Context, tx pgx.Tx, c *model.Contribution) error {
	r.logger.Debug("Inserting contribution",
		zap.Int64("project_id", c.ProjectID),
		zap.Int64("backer_id", c.BackerID),
		zap.Int64("amount", c.Amount),
	)

	query := `
        INSERT INTO contributions (project_id, backer_id, amount)
        VALUES ($1, $2, $3)
        RETURNING id, created_at
    `
	err := tx.QueryRow(ctx, query, c.ProjectID, c.BackerID, c.Amount).
		Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert contribution", zap.Error(err))
		return err
	}

	return nil
}

// SumByBacker returns the backer's total contributed to the project.
func (r *ContributionRepository) SumByBacker(ctx context.Context, projectID, backerID int64) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, `
        SELECT COALESCE(SUM(amount), 0)
        FROM contributions
        WHERE project_id = $1 AND backer_id = $2
    `, projectID, backerID).Scan(&total)
	return total, err
}

// HasContributed reports whether the backer already appears on the project.
func (r *ContributionRepository) HasContributed(ctx context.Context, projectID, backerID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM contributions WHERE project_id = $1 AND backer_id = $2
        )
    `, projectID, backerID).Scan(&exists)
	return exists, err
}

// CountDistinctBackers is the eligible-voter count for approval rounds.
func (r *ContributionRepository) CountDistinctBackers(ctx context.Context, projectID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
        SELECT COUNT(DISTINCT backer_id) FROM contributions WHERE project_id = $1
    `, projectID).Scan(&count)
	return count, err
}

// BackerTotal is one row of the refund fan-out.
type BackerTotal struct {
	BackerID int64
	Total    int64
}

// TotalsByBacker returns every backer's total on the project, for refunds.
func (r *ContributionRepository) TotalsByBacker(ctx context.Context, projectID int64) ([]BackerTotal, error) {
	rows, err := r.db.Query(ctx, `
        SELECT backer_id, SUM(amount)
        FROM contributions
        WHERE project_id = $1
        GROUP BY backer_id
        ORDER BY backer_id
    `, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []BackerTotal
	for rows.Next() {
		var bt BackerTotal
		if err := rows.Scan(&bt.BackerID, &bt.Total); err != nil {
			return nil, err
		}
		totals = append(totals, bt)
	}
	return totals, rows.Err()
}

// ListByProject returns the project's contribution history, newest first.
func (r *ContributionRepository) ListByProject(ctx context.Context, projectID int64, limit int) ([]*model.Contribution, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, project_id, backer_id, amount, created_at
        FROM contributions
        WHERE project_id = $1
        ORDER BY created_at DESC
        LIMIT $2
    `, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Contribution
	for rows.Next() {
		var c model.Contribution
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.BackerID, &c.Amount, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}
