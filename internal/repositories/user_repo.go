package repositories

import (
	"context"
	"errors"
	"fmt"

	"axle-upload/internal/apperrors"
	"axle-upload/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserRepository manages the operator accounts used by the settings API.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.Operator, error)
	Create(ctx context.Context, op *models.Operator) error
	Count(ctx context.Context) (int64, error)
}

type userRepositoryImpl struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewUserRepository creates a UserRepository.
func NewUserRepository(db *gorm.DB, logger *zap.Logger) UserRepository {
	return &userRepositoryImpl{db: db, logger: logger}
}

func (r *userRepositoryImpl) FindByUsername(ctx context.Context, username string) (*models.Operator, error) {
	var op models.Operator
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&op).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperrors.NotFoundError{Resource: "operator", Key: username}
	}
	if err != nil {
		return nil, fmt.Errorf("querying operator %s: %w", username, err)
	}
	return &op, nil
}

func (r *userRepositoryImpl) Create(ctx context.Context, op *models.Operator) error {
	if err := r.db.WithContext(ctx).Create(op).Error; err != nil {
		return fmt.Errorf("creating operator %s: %w", op.Username, err)
	}
	return nil
}

func (r *userRepositoryImpl) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Operator{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting operators: %w", err)
	}
	return n, nil
}
