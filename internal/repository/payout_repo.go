package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"crowdvault/internal/model"
)

type PayoutRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewPayoutRepository(db *pgxpool.Pool, logger *zap.Logger) *PayoutRepository {
	return &PayoutRepository{
		db:     db,
		logger: logger,
	}
}

func (r *PayoutRepository) Insert(ctx context.Context, tx pgx.Tx, p *model.Payout) error {
	r.logger.Debug("Inserting payout",
		zap.Int64("project_id", p.ProjectID),
		zap.Int64("milestone_id", p.MilestoneID),
		zap.Int64("amount", p.Amount),
		zap.String("status", string(p.Status)),
	)

	query := `
        INSERT INTO payouts (project_id, milestone_id, amount, status, paid_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at
    `
	err := tx.QueryRow(ctx, query,
		p.ProjectID,
		p.MilestoneID,
		p.Amount,
		p.Status,
		p.PaidAt,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert payout", zap.Error(err))
		return err
	}

	return nil
}

// SumReleased returns the project's total committed escrow: everything
// paid plus everything owed.
func (r *PayoutRepository) SumReleased(ctx context.Context, projectID int64) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, `
        SELECT COALESCE(SUM(amount), 0) FROM payouts WHERE project_id = $1
    `, projectID).Scan(&total)
	return total, err
}

// SumPaid returns only the escrow actually paid out so far.
func (r *PayoutRepository) SumPaid(ctx context.Context, projectID int64) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, `
        SELECT COALESCE(SUM(amount), 0) FROM payouts WHERE project_id = $1 AND status = 'paid'
    `, projectID).Scan(&total)
	return total, err
}

// ListOwed returns unsettled payouts in creation order, oldest first.
func (r *PayoutRepository) ListOwed(ctx context.Context, projectID int64) ([]*model.Payout, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, project_id, milestone_id, amount, status, created_at, paid_at
        FROM payouts
        WHERE project_id = $1 AND status = 'owed'
        ORDER BY created_at ASC
    `, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payouts []*model.Payout
	for rows.Next() {
		var p model.Payout
		err := rows.Scan(
			&p.ID,
			&p.ProjectID,
			&p.MilestoneID,
			&p.Amount,
			&p.Status,
			&p.CreatedAt,
			&p.PaidAt,
		)
		if err != nil {
			return nil, err
		}
		payouts = append(payouts, &p)
	}
	return payouts, rows.Err()
}

// MarkPaid settles an owed payout.
func (r *PayoutRepository) MarkPaid(ctx context.Context, tx pgx.Tx, payoutID int64) error {
	tag, err := tx.Exec(ctx, `
        UPDATE payouts SET status = 'paid', paid_at = NOW()
        WHERE id = $1 AND status = 'owed'
    `, payoutID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
