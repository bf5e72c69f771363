package repository

import (
	"context"

	"blog-server/internal/domain"
)

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) (string, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	UpdateAvatar(ctx context.Context, id, avatar string) error
	UpdateProfile(ctx context.Context, id, name, email, passwordHash string) error
}
