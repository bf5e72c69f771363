package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"blog-server/internal/domain"
	"blog-server/internal/repository"
)

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	avatar TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

const selectUser = `
SELECT id, name, email, password_hash, avatar, created_at, updated_at
FROM users`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createUsersTable); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (string, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO users (id, name, email, password_hash, avatar, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Avatar,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("insert user %s: %w", user.Email, repository.ErrDuplicate)
		}
		return "", fmt.Errorf("insert user: %w", err)
	}
	return user.ID, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, selectUser+` WHERE id = ?`, id)
	return scanUser(row)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, selectUser+` WHERE email = ?`, email)
	return scanUser(row)
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, selectUser+` ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func (r *UserRepository) UpdateAvatar(ctx context.Context, id, avatar string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE users
SET avatar=?, updated_at=?
WHERE id=?`,
		avatar,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("update user avatar: %w", err)
	}
	return expectAffected(res, "user")
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id, name, email, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE users
SET name=?, email=?, password_hash=?, updated_at=?
WHERE id=?`,
		name,
		email,
		passwordHash,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update user %s: %w", email, repository.ErrDuplicate)
		}
		return fmt.Errorf("update user profile: %w", err)
	}
	return expectAffected(res, "user")
}

func scanUser(row interface {
	Scan(dest ...any) error
}) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Avatar,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &user, nil
}

func expectAffected(res sql.Result, entity string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", entity, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", entity, repository.ErrNotFound)
	}
	return nil
}
