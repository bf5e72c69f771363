package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"blog-server/internal/repository"
	"blog-server/internal/storage"
)

// DefaultOrphanGrace keeps freshly written uploads out of a sweep while the
// request that wrote them may still be saving its record.
const DefaultOrphanGrace = time.Hour

// Janitor removes uploads that no post thumbnail or user avatar references.
type Janitor struct {
	users repository.UserRepository
	posts repository.PostRepository
	store storage.Service
	grace time.Duration
	log   *logrus.Entry
	now   func() time.Time
}

func NewJanitor(users repository.UserRepository, posts repository.PostRepository, store storage.Service, grace time.Duration, logger *logrus.Logger) *Janitor {
	if grace <= 0 {
		grace = DefaultOrphanGrace
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Janitor{
		users: users,
		posts: posts,
		store: store,
		grace: grace,
		log:   logger.WithField("component", "service.janitor"),
		now:   time.Now,
	}
}

// Sweep deletes orphaned uploads older than the grace period and returns how
// many were removed.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	referenced, err := j.referencedKeys(ctx)
	if err != nil {
		return 0, err
	}

	objects, err := j.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list uploads: %w", err)
	}

	cutoff := j.now().Add(-j.grace)
	removed := 0
	for _, obj := range objects {
		if _, ok := referenced[obj.Key]; ok {
			continue
		}
		if obj.LastModified == nil || obj.LastModified.After(cutoff) {
			continue
		}
		if err := removeObject(ctx, j.store, obj.Key); err != nil {
			j.log.WithError(err).WithField("key", obj.Key).Warn("remove orphaned upload")
			continue
		}
		removed++
	}

	if removed > 0 {
		j.log.Infof("removed %d orphaned uploads", removed)
	}
	return removed, nil
}

// Run sweeps every interval until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := j.Sweep(ctx); err != nil && ctx.Err() == nil {
				j.log.WithError(err).Warn("sweep uploads")
			}
		}
	}
}

func (j *Janitor) referencedKeys(ctx context.Context) (map[string]struct{}, error) {
	posts, err := j.posts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	users, err := j.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	keys := make(map[string]struct{}, len(posts)+len(users))
	for i := range posts {
		keys[posts[i].Thumbnail] = struct{}{}
	}
	for i := range users {
		if users[i].Avatar != "" {
			keys[users[i].Avatar] = struct{}{}
		}
	}
	return keys, nil
}
