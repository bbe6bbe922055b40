package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"crowdvault/internal/model"
)

type VoteRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewVoteRepository(db *pgxpool.Pool, logger *zap.Logger) *VoteRepository {
	return &VoteRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert records the backer's vote. A re-vote on the same milestone
// replaces the earlier verdict.
func (r *VoteRepository) Upsert(ctx context.Context, tx pgx.Tx, v *model.ApprovalVote) error {
	r.logger.Debug("Upserting approval vote",
		zap.Int64("milestone_id", v.MilestoneID),
		zap.Int64("backer_id", v.BackerID),
		zap.String("value", string(v.Value)),
	)

	query := `
        INSERT INTO approval_votes (milestone_id, project_id, backer_id, value, feedback, evidence_ref)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (milestone_id, backer_id)
        DO UPDATE SET value = EXCLUDED.value,
                      feedback = EXCLUDED.feedback,
                      evidence_ref = EXCLUDED.evidence_ref,
                      cast_at = NOW()
        RETURNING id, cast_at
    `
	err := tx.QueryRow(ctx, query,
		v.MilestoneID,
		v.ProjectID,
		v.BackerID,
		v.Value,
		v.Feedback,
		v.EvidenceRef,
	).Scan(&v.ID, &v.CastAt)
	if err != nil {
		r.logger.Error("Failed to upsert vote", zap.Error(err))
		return err
	}

	return nil
}

const countsQuery = `
        SELECT COUNT(*) FILTER (WHERE value = 'confirm'),
               COUNT(*) FILTER (WHERE value = 'reject')
        FROM approval_votes
        WHERE milestone_id = $1
    `

// Counts returns the current confirm and reject counts for the milestone.
func (r *VoteRepository) Counts(ctx context.Context, milestoneID int64) (confirm, reject int, err error) {
	err = r.db.QueryRow(ctx, countsQuery, milestoneID).Scan(&confirm, &reject)
	return confirm, reject, err
}

// CountsInTx is Counts inside a transaction, so a vote upserted in the same
// tx is part of the tally it triggers.
func (r *VoteRepository) CountsInTx(ctx context.Context, tx pgx.Tx, milestoneID int64) (confirm, reject int, err error) {
	err = tx.QueryRow(ctx, countsQuery, milestoneID).Scan(&confirm, &reject)
	return confirm, reject, err
}

// DeleteForMilestone clears votes once a round resolves, so a re-opened
// dispute starts from a clean slate.
func (r *VoteRepository) DeleteForMilestone(ctx context.Context, tx pgx.Tx, milestoneID int64) error {
	_, err := tx.Exec(ctx, `DELETE FROM approval_votes WHERE milestone_id = $1`, milestoneID)
	return err
}

// ListByMilestone returns the round's votes with feedback, newest first.
func (r *VoteRepository) ListByMilestone(ctx context.Context, milestoneID int64) ([]*model.ApprovalVote, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, milestone_id, project_id, backer_id, value, feedback, evidence_ref, cast_at
        FROM approval_votes
        WHERE milestone_id = $1
        ORDER BY cast_at DESC
    `, milestoneID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var votes []*model.ApprovalVote
	for rows.Next() {
		var v model.ApprovalVote
		err := rows.Scan(
			&v.ID,
			&v.MilestoneID,
			&v.ProjectID,
			&v.BackerID,
			&v.Value,
			&v.Feedback,
			&v.EvidenceRef,
			&v.CastAt,
		)
		if err != nil {
			return nil, err
		}
		votes = append(votes, &v)
	}
	return votes, rows.Err()
}
