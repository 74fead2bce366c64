package repository

import (
	"context"
	"errors"

	"storefront-admin/internal/domain"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned when a write would violate a uniqueness constraint.
	ErrAlreadyExists = errors.New("record already exists")
)

// AdminRepository persists the single admin account. Implementations must
// reject a second admin record with ErrAlreadyExists.
type AdminRepository interface {
	Init(ctx context.Context) error
	FindSingleton(ctx context.Context) (*domain.Admin, error)
	FindByUsername(ctx context.Context, username string) (*domain.Admin, error)
	FindByID(ctx context.Context, id string) (*domain.Admin, error)
	Create(ctx context.Context, admin *domain.Admin) error
	Save(ctx context.Context, admin *domain.Admin) error
}
