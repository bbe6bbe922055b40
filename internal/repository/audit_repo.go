package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"crowdvault/internal/model"
)

type AuditRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewAuditRepository(db *pgxpool.Pool, logger *zap.Logger) *AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

func (r *AuditRepository) Insert(ctx context.Context, a *model.AuditLog) error {
	query := `
        INSERT INTO audit_logs (actor_id, action, entity_type, entity_id, details)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at
    `
	err := r.db.QueryRow(ctx, query,
		a.ActorID,
		a.Action,
		a.EntityType,
		a.EntityID,
		a.Details,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert audit log",
			zap.String("action", a.Action),
			zap.Error(err),
		)
		return err
	}

	return nil
}

func (r *AuditRepository) ListByEntity(ctx context.Context, entityType string, entityID int64, limit int) ([]*model.AuditLog, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, actor_id, action, entity_type, entity_id, details, created_at
        FROM audit_logs
        WHERE entity_type = $1 AND entity_id = $2
        ORDER BY created_at DESC
        LIMIT $3
    `, entityType, entityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*model.AuditLog
	for rows.Next() {
		var a model.AuditLog
		err := rows.Scan(
			&a.ID,
			&a.ActorID,
			&a.Action,
			&a.EntityType,
			&a.EntityID,
			&a.Details,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		logs = append(logs, &a)
	}
	return logs, rows.Err()
}
