package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"blog-server/internal/domain"
	"blog-server/internal/repository"
	"blog-server/internal/storage"
)

type CreatePostInput struct {
	Title       string
	Category    string
	Description string
	Thumbnail   *Upload
	CreatorID   string
}

// EditPostInput replaces the text fields of a post and, when Thumbnail is set,
// its image.
type EditPostInput struct {
	ID          string
	Title       string
	Category    string
	Description string
	Thumbnail   *Upload
	CallerID    string
}

// PostService coordinates post operations backed by the repository and the
// uploads store.
type PostService interface {
	CreatePost(ctx context.Context, in CreatePostInput) (*domain.Post, error)
	GetPosts(ctx context.Context) ([]domain.Post, error)
	GetPost(ctx context.Context, id string) (*domain.Post, error)
	GetPostsByCategory(ctx context.Context, category string) ([]domain.Post, error)
	GetPostsByUser(ctx context.Context, userID string) ([]domain.Post, error)
	EditPost(ctx context.Context, in EditPostInput) (*domain.Post, []string, error)
	DeletePost(ctx context.Context, id, callerID string) ([]string, error)
}

type postService struct {
	posts repository.PostRepository
	store storage.Service
	log   *logrus.Entry
}

func NewPostService(posts repository.PostRepository, store storage.Service, logger *logrus.Logger) PostService {
	if logger == nil {
		logger = logrus.New()
	}
	return &postService{
		posts: posts,
		store: store,
		log:   logger.WithField("component", "service.posts"),
	}
}

func (s *postService) CreatePost(ctx context.Context, in CreatePostInput) (*domain.Post, error) {
	title, category, description := trimFields(in.Title, in.Category, in.Description)
	if title == "" || category == "" || description == "" || in.Thumbnail == nil {
		return nil, validationError("Fill in all fields and choose thumbnail.")
	}

	obj, err := readUpload(in.Thumbnail, MaxThumbnailSize)
	if err != nil {
		return nil, thumbnailError(err)
	}
	if err := s.store.Put(ctx, obj); err != nil {
		return nil, storageError(err)
	}

	post := &domain.Post{
		Title:       title,
		Category:    category,
		Description: description,
		Thumbnail:   obj.Key,
		Creator:     in.CreatorID,
	}
	id, err := s.posts.Create(ctx, post)
	if err != nil {
		s.discard(ctx, obj.Key)
		return nil, internalError("Post couldn't be created.", err)
	}

	created, err := s.posts.Get(ctx, id)
	if err != nil {
		s.discard(ctx, obj.Key)
		return nil, notFoundError("Post couldn't be created.", err)
	}

	s.log.WithFields(logrus.Fields{"post_id": id, "creator": in.CreatorID}).Info("post created")
	return created, nil
}

func (s *postService) GetPosts(ctx context.Context) ([]domain.Post, error) {
	posts, err := s.posts.List(ctx)
	if err != nil {
		return nil, internalError("Couldn't load posts.", err)
	}
	return posts, nil
}

func (s *postService) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	post, err := s.posts.Get(ctx, id)
	if err != nil {
		return nil, postLookupError(err)
	}
	return post, nil
}

func (s *postService) GetPostsByCategory(ctx context.Context, category string) ([]domain.Post, error) {
	posts, err := s.posts.ListByCategory(ctx, category)
	if err != nil {
		return nil, internalError("Couldn't load posts.", err)
	}
	return posts, nil
}

func (s *postService) GetPostsByUser(ctx context.Context, userID string) ([]domain.Post, error) {
	posts, err := s.posts.ListByCreator(ctx, userID)
	if err != nil {
		return nil, internalError("Couldn't load posts.", err)
	}
	return posts, nil
}

func (s *postService) EditPost(ctx context.Context, in EditPostInput) (*domain.Post, []string, error) {
	title, category, description := trimFields(in.Title, in.Category, in.Description)
	if title == "" || category == "" || description == "" {
		return nil, nil, validationError("Fill in all fields.")
	}

	post, err := s.posts.Get(ctx, in.ID)
	if err != nil {
		return nil, nil, postLookupError(err)
	}
	if !post.IsOwnedBy(in.CallerID) {
		return nil, nil, forbiddenError("Couldn't update post.")
	}

	oldThumbnail := post.Thumbnail
	post.Title = title
	post.Category = category
	post.Description = description

	if in.Thumbnail != nil {
		obj, err := readUpload(in.Thumbnail, MaxThumbnailSize)
		if err != nil {
			return nil, nil, thumbnailError(err)
		}
		if err := s.store.Put(ctx, obj); err != nil {
			return nil, nil, storageError(err)
		}
		post.Thumbnail = obj.Key
	}

	if err := s.posts.Update(ctx, post); err != nil {
		if post.Thumbnail != oldThumbnail {
			s.discard(ctx, post.Thumbnail)
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, notFoundError("Post not found.", err)
		}
		return nil, nil, internalError("Couldn't update post.", err)
	}

	var warnings []string
	if post.Thumbnail != oldThumbnail {
		if err := removeObject(ctx, s.store, oldThumbnail); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{"post_id": post.ID, "key": oldThumbnail}).Warn("delete old thumbnail")
			warnings = append(warnings, fmt.Sprintf("delete old thumbnail %s: %v", oldThumbnail, err))
		}
	}

	updated, err := s.posts.Get(ctx, post.ID)
	if err != nil {
		return nil, warnings, postLookupError(err)
	}
	return updated, warnings, nil
}

func (s *postService) DeletePost(ctx context.Context, id, callerID string) ([]string, error) {
	if strings.TrimSpace(id) == "" {
		return nil, validationError("Post unavailable.")
	}

	post, err := s.posts.Get(ctx, id)
	if err != nil {
		return nil, postLookupError(err)
	}
	if !post.IsOwnedBy(callerID) {
		return nil, forbiddenError("Post couldn't be deleted.")
	}

	if err := s.posts.Delete(ctx, post.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError("Post not found.", err)
		}
		return nil, internalError("Post couldn't be deleted.", err)
	}

	var warnings []string
	if err := removeObject(ctx, s.store, post.Thumbnail); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"post_id": post.ID, "key": post.Thumbnail}).Warn("delete thumbnail")
		warnings = append(warnings, fmt.Sprintf("delete thumbnail %s: %v", post.Thumbnail, err))
	}

	s.log.WithFields(logrus.Fields{"post_id": post.ID, "creator": callerID}).Info("post deleted")
	return warnings, nil
}

// discard removes an object written for a record that was never saved.
func (s *postService) discard(ctx context.Context, key string) {
	if err := removeObject(ctx, s.store, key); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("remove unused thumbnail")
	}
}

func trimFields(title, category, description string) (string, string, string) {
	return strings.TrimSpace(title), strings.TrimSpace(category), strings.TrimSpace(description)
}

func thumbnailError(err error) error {
	if errors.Is(err, errTooLarge) {
		return validationError("Thumbnail is too big. Should be less than 2mb.")
	}
	return internalError("Couldn't read thumbnail.", err)
}

func postLookupError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFoundError("Post not found.", err)
	}
	return internalError("Couldn't load post.", err)
}
