package repository

import (
	"context"

	"blog-server/internal/domain"
)

// PostRepository exposes persistence operations for Post records.
type PostRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, post *domain.Post) (string, error)
	Get(ctx context.Context, id string) (*domain.Post, error)
	// List returns every post, most recently updated first.
	List(ctx context.Context) ([]domain.Post, error)
	// ListByCategory and ListByCreator return newest posts first.
	ListByCategory(ctx context.Context, category string) ([]domain.Post, error)
	ListByCreator(ctx context.Context, creatorID string) ([]domain.Post, error)
	Update(ctx context.Context, post *domain.Post) error
	Delete(ctx context.Context, id string) error
	CountByCreator(ctx context.Context, creatorID string) (int64, error)
	CountAllByCreator(ctx context.Context) (map[string]int64, error)
}
