package services

import (
	"context"
	"errors"
	"time"

	"axle-upload/internal/apperrors"
	"axle-upload/internal/models"
	"axle-upload/internal/repositories"
	"axle-upload/internal/utils"

	"go.uber.org/zap"
)

// ErrInvalidCredentials is returned on a failed login. It deliberately does
// not say whether the username or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid username or password")

const tokenTTL = 12 * time.Hour

// AuthService authenticates operator accounts and issues JWTs.
type AuthService interface {
	Login(ctx context.Context, username, password string) (string, error)
	EnsureDefaultAdmin(ctx context.Context, username, password string) error
}

type authServiceImpl struct {
	userRepo  repositories.UserRepository
	logger    *zap.Logger
	jwtSecret string
}

// NewAuthService creates an AuthService.
func NewAuthService(userRepo repositories.UserRepository, logger *zap.Logger, jwtSecret string) AuthService {
	return &authServiceImpl{userRepo: userRepo, logger: logger, jwtSecret: jwtSecret}
}

func (s *authServiceImpl) Login(ctx context.Context, username, password string) (string, error) {
	op, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if apperrors.IsNotFound(err) {
			s.logger.Warn("login attempt for unknown operator", zap.String("username", username))
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if !utils.CheckPasswordHash(password, op.PasswordHash) {
		s.logger.Warn("login attempt with wrong password", zap.String("username", username))
		return "", ErrInvalidCredentials
	}

	token, err := utils.GenerateToken(uint(op.ID), op.Username, s.jwtSecret, tokenTTL)
	if err != nil {
		return "", err
	}
	s.logger.Info("operator logged in", zap.String("username", username))
	return token, nil
}

// EnsureDefaultAdmin seeds the first operator account when the table is
// empty, so a fresh installation can be configured at all.
func (s *authServiceImpl) EnsureDefaultAdmin(ctx context.Context, username, password string) error {
	n, err := s.userRepo.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.userRepo.Create(ctx, &models.Operator{
		Username:     username,
		PasswordHash: hash,
		Role:         "admin",
	}); err != nil {
		return err
	}
	s.logger.Info("seeded default admin operator", zap.String("username", username))
	return nil
}
