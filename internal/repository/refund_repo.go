package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"crowdvault/internal/model"
)

type RefundRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewRefundRepository(db *pgxpool.Pool, logger *zap.Logger) *RefundRepository {
	return &RefundRepository{
		db:     db,
		logger: logger,
	}
}

func (r *RefundRepository) Insert(ctx context.Context, tx pgx.Tx, ref *model.Refund) error {
	r.logger.Debug("Inserting refund",
		zap.Int64("project_id", ref.ProjectID),
		zap.Int64("backer_id", ref.BackerID),
		zap.Int64("amount", ref.Amount),
	)

	query := `
        INSERT INTO refunds (project_id, backer_id, amount)
        VALUES ($1, $2, $3)
        RETURNING id, created_at
    `
	err := tx.QueryRow(ctx, query, ref.ProjectID, ref.BackerID, ref.Amount).
		Scan(&ref.ID, &ref.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert refund", zap.Error(err))
		return err
	}

	return nil
}

// ExistsForProject guards against refunding the same failed project twice.
func (r *RefundRepository) ExistsForProject(ctx context.Context, projectID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
        SELECT EXISTS (SELECT 1 FROM refunds WHERE project_id = $1)
    `, projectID).Scan(&exists)
	return exists, err
}

// ListByBacker returns the backer's refund history, newest first.
func (r *RefundRepository) ListByBacker(ctx context.Context, backerID int64) ([]*model.Refund, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, project_id, backer_id, amount, created_at
        FROM refunds
        WHERE backer_id = $1
        ORDER BY created_at DESC
    `, backerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refunds []*model.Refund
	for rows.Next() {
		var ref model.Refund
		if err := rows.Scan(&ref.ID, &ref.ProjectID, &ref.BackerID, &ref.Amount, &ref.CreatedAt); err != nil {
			return nil, err
		}
		refunds = append(refunds, &ref)
	}
	return refunds, rows.Err()
}
