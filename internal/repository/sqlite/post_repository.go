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

const createPostsTable = `
CREATE TABLE IF NOT EXISTS posts (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	category TEXT NOT NULL,
	description TEXT NOT NULL,
	thumbnail TEXT NOT NULL,
	creator TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY(creator) REFERENCES users(id)
);
CREATE INDEX IF NOT EXISTS idx_posts_creator ON posts(creator);
CREATE INDEX IF NOT EXISTS idx_posts_category ON posts(category);
`

const selectPost = `
SELECT id, title, category, description, thumbnail, creator, created_at, updated_at
FROM posts`

type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) repository.PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createPostsTable); err != nil {
		return fmt.Errorf("create posts table: %w", err)
	}
	return nil
}

func (r *PostRepository) Create(ctx context.Context, post *domain.Post) (string, error) {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	if post.UpdatedAt.IsZero() {
		post.UpdatedAt = post.CreatedAt
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO posts (id, title, category, description, thumbnail, creator, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		post.ID,
		post.Title,
		post.Category,
		post.Description,
		post.Thumbnail,
		post.Creator,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert post: %w", err)
	}
	return post.ID, nil
}

func (r *PostRepository) Get(ctx context.Context, id string) (*domain.Post, error) {
	row := r.db.QueryRowContext(ctx, selectPost+` WHERE id = ?`, id)
	post, err := scanPost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("post %s: %w", id, repository.ErrNotFound)
		}
		return nil, err
	}
	return post, nil
}

func (r *PostRepository) List(ctx context.Context) ([]domain.Post, error) {
	return r.query(ctx, selectPost+` ORDER BY updated_at DESC, id DESC`)
}

func (r *PostRepository) ListByCategory(ctx context.Context, category string) ([]domain.Post, error) {
	return r.query(ctx, selectPost+` WHERE category = ? ORDER BY created_at DESC, id DESC`, category)
}

func (r *PostRepository) ListByCreator(ctx context.Context, creatorID string) ([]domain.Post, error) {
	return r.query(ctx, selectPost+` WHERE creator = ? ORDER BY created_at DESC, id DESC`, creatorID)
}

func (r *PostRepository) Update(ctx context.Context, post *domain.Post) error {
	post.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
UPDATE posts
SET title=?, category=?, description=?, thumbnail=?, updated_at=?
WHERE id=?`,
		post.Title,
		post.Category,
		post.Description,
		post.Thumbnail,
		post.UpdatedAt,
		post.ID,
	)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return expectAffected(res, "post")
}

func (r *PostRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return expectAffected(res, "post")
}

func (r *PostRepository) CountByCreator(ctx context.Context, creatorID string) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE creator = ?`, creatorID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return count, nil
}

func (r *PostRepository) CountAllByCreator(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT creator, COUNT(*) FROM posts GROUP BY creator`)
	if err != nil {
		return nil, fmt.Errorf("count posts by creator: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			creator string
			count   int64
		)
		if err := rows.Scan(&creator, &count); err != nil {
			return nil, fmt.Errorf("scan post count: %w", err)
		}
		counts[creator] = count
	}
	return counts, rows.Err()
}

func (r *PostRepository) query(ctx context.Context, query string, args ...any) ([]domain.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	posts := []domain.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, *post)
	}
	return posts, rows.Err()
}

func scanPost(row interface {
	Scan(dest ...any) error
}) (*domain.Post, error) {
	var post domain.Post
	if err := row.Scan(
		&post.ID,
		&post.Title,
		&post.Category,
		&post.Description,
		&post.Thumbnail,
		&post.Creator,
		&post.CreatedAt,
		&post.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &post, nil
}
