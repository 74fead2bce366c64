package repository

import (
	"context"

	"storefront-admin/internal/domain"
)

// PostRepository exposes persistence operations for storefront listings.
type PostRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, post *domain.Post) (int64, error)
	Update(ctx context.Context, post *domain.Post) error
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*domain.Post, error)
	List(ctx context.Context, includeInactive bool) ([]domain.Post, error)
}
