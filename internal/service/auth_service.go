package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"crowdvault/internal/model"
	"crowdvault/internal/repository"
	"crowdvault/internal/util"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type AuthService struct {
	users     *repository.UserRepository
	jwtSecret string
	logger    *zap.Logger
}

func NewAuthService(users *repository.UserRepository, jwtSecret string, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:     users,
		jwtSecret: jwtSecret,
		logger:    logger,
	}
}

// Register creates a new user. Creators start with KYC pending; backers
// never need it.
func (s *AuthService) Register(ctx context.Context, email, name, password string, role model.Role) (*model.User, error) {
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, errors.New("email already exists")
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, err
	}

	kyc := model.KycNone
	if role == model.RoleCreator {
		kyc = model.KycPending
	}

	u := &model.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         role,
		KycStatus:    kyc,
	}
	if err := s.users.Insert(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("User registered",
		zap.Int64("user_id", u.ID),
		zap.String("role", string(u.Role)),
	)
	return u, nil
}

// Login checks credentials and returns a signed JWT.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if u.Banned {
		return "", nil, ErrInvalidCredentials
	}
	if !util.CheckPassword(password, u.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := util.GenerateJWT(u.ID, string(u.Role), s.jwtSecret)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// SetKycStatus is the admin KYC decision.
func (s *AuthService) SetKycStatus(ctx context.Context, userID int64, status model.KycStatus) error {
	return s.users.UpdateKycStatus(ctx, userID, status)
}

// Ban suspends a user's account. Banned users are turned away at login;
// tokens already issued lapse on their own.
func (s *AuthService) Ban(ctx context.Context, userID, adminID int64, reason string) error {
	if err := s.users.SetBanned(ctx, userID, true); err != nil {
		return err
	}
	s.logger.Info("User banned",
		zap.Int64("user_id", userID),
		zap.Int64("admin_id", adminID),
		zap.String("reason", reason),
	)
	return nil
}
