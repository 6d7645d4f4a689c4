package services

import (
	"context"
	"errors"
	"testing"

	"axle-upload/internal/apperrors"
	"axle-upload/internal/models"
	"axle-upload/internal/utils"

	"go.uber.org/zap"
)

type fakeUserRepo struct {
	users map[string]*models.Operator
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.Operator)}
}

func (f *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*models.Operator, error) {
	op, ok := f.users[username]
	if !ok {
		return nil, &apperrors.NotFoundError{Resource: "operator", Key: username}
	}
	return op, nil
}

func (f *fakeUserRepo) Create(ctx context.Context, op *models.Operator) error {
	op.ID = int64(len(f.users) + 1)
	f.users[op.Username] = op
	return nil
}

func (f *fakeUserRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(f.users)), nil
}

func TestLogin(t *testing.T) {
	repo := newFakeUserRepo()
	hash, err := utils.HashPassword("hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	repo.users["depot"] = &models.Operator{ID: 1, Username: "depot", PasswordHash: hash}

	svc := NewAuthService(repo, zap.NewNop(), "secret")
	ctx := context.Background()

	token, err := svc.Login(ctx, "depot", "hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := utils.ValidateToken(token, "secret")
	if err != nil {
		t.Fatalf("issued token invalid: %v", err)
	}
	if claims.Username != "depot" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := svc.Login(ctx, "depot", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody", "hunter2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestEnsureDefaultAdmin(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewAuthService(repo, zap.NewNop(), "secret")
	ctx := context.Background()

	if err := svc.EnsureDefaultAdmin(ctx, "admin", "admin"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if len(repo.users) != 1 {
		t.Fatalf("expected seeded admin, got %d users", len(repo.users))
	}

	// A second call must not create a duplicate.
	if err := svc.EnsureDefaultAdmin(ctx, "admin", "admin"); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if len(repo.users) != 1 {
		t.Fatalf("expected 1 user after reseed, got %d", len(repo.users))
	}
}
