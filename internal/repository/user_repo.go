package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"crowdvault/internal/model"
)

type UserRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewUserRepository(db *pgxpool.Pool, logger *zap.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

func (r *UserRepository) Insert(ctx context.Context, u *model.User) error {
	r.logger.Debug("Inserting user",
		zap.String("email", u.Email),
		zap.String("role", string(u.Role)),
	)

	query := `
        INSERT INTO users (email, name, password_hash, role, kyc_status)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at
    `
	err := r.db.QueryRow(ctx, query,
		u.Email,
		u.Name,
		u.PasswordHash,
		u.Role,
		u.KycStatus,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert user", zap.Error(err))
		return err
	}

	return nil
}

const userColumns = `id, email, name, password_hash, role, kyc_status, banned, created_at`

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*model.User, error) {
	var u model.User
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.PasswordHash,
		&u.Role,
		&u.KycStatus,
		&u.Banned,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) UpdateKycStatus(ctx context.Context, id int64, status model.KycStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET kyc_status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	r.logger.Info("User KYC status updated",
		zap.Int64("user_id", id),
		zap.String("status", string(status)),
	)
	return nil
}

// Stats aggregates user counts for the admin overview.
func (r *UserRepository) Stats(ctx context.Context) (*model.UserStats, error) {
	query := `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE role = $1),
               COUNT(*) FILTER (WHERE role = $2),
               COUNT(*) FILTER (WHERE role = $3),
               COUNT(*) FILTER (WHERE kyc_status = $4)
        FROM users
    `
	var s model.UserStats
	err := r.db.QueryRow(ctx, query,
		model.RoleCreator,
		model.RoleBacker,
		model.RoleAdmin,
		model.KycPending,
	).Scan(&s.Total, &s.Creators, &s.Backers, &s.Admins, &s.PendingKyc)
	if err != nil {
		r.logger.Error("Failed to aggregate user stats", zap.Error(err))
		return nil, err
	}
	return &s, nil
}

func (r *UserRepository) SetBanned(ctx context.Context, id int64, banned bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET banned = $1 WHERE id = $2`, banned, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
