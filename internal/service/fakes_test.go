package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"blog-server/internal/domain"
	"blog-server/internal/repository"
	"blog-server/internal/storage"
)

var errBackend = errors.New("backend unavailable")

// clock hands out strictly increasing timestamps so ordering is deterministic.
type clock struct {
	m   sync.Mutex
	now time.Time
}

func (c *clock) next() time.Time {
	c.m.Lock()
	defer c.m.Unlock()
	if c.now.IsZero() {
		c.now = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	c.now = c.now.Add(time.Second)
	return c.now
}

type fakeUserRepo struct {
	m     sync.Mutex
	users map[string]*domain.User
	seq   int
	clock *clock
}

func newFakeUserRepo(c *clock) *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User), clock: c}
}

func (r *fakeUserRepo) Init(context.Context) error { return nil }

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) (string, error) {
	r.m.Lock()
	defer r.m.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return "", repository.ErrDuplicate
		}
	}
	r.seq++
	user.ID = fmt.Sprintf("user-%d", r.seq)
	user.CreatedAt = r.clock.next()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	r.users[user.ID] = &stored
	return user.ID, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.m.Lock()
	defer r.m.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.m.Lock()
	defer r.m.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) List(context.Context) ([]domain.User, error) {
	r.m.Lock()
	defer r.m.Unlock()
	users := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

func (r *fakeUserRepo) UpdateAvatar(_ context.Context, id, avatar string) error {
	r.m.Lock()
	defer r.m.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Avatar = avatar
	u.UpdatedAt = r.clock.next()
	return nil
}

func (r *fakeUserRepo) UpdateProfile(_ context.Context, id, name, email, passwordHash string) error {
	r.m.Lock()
	defer r.m.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	for _, other := range r.users {
		if other.ID != id && other.Email == email {
			return repository.ErrDuplicate
		}
	}
	u.Name, u.Email, u.PasswordHash = name, email, passwordHash
	u.UpdatedAt = r.clock.next()
	return nil
}

type fakePostRepo struct {
	m     sync.Mutex
	posts map[string]*domain.Post
	seq   int
	clock *clock
	// loseCreates makes Create succeed without persisting anything.
	loseCreates bool
}

func newFakePostRepo(c *clock) *fakePostRepo {
	return &fakePostRepo{posts: make(map[string]*domain.Post), clock: c}
}

func (r *fakePostRepo) Init(context.Context) error { return nil }

func (r *fakePostRepo) Create(_ context.Context, post *domain.Post) (string, error) {
	r.m.Lock()
	defer r.m.Unlock()
	r.seq++
	post.ID = fmt.Sprintf("post-%d", r.seq)
	post.CreatedAt = r.clock.next()
	post.UpdatedAt = post.CreatedAt
	if !r.loseCreates {
		stored := *post
		r.posts[post.ID] = &stored
	}
	return post.ID, nil
}

func (r *fakePostRepo) Get(_ context.Context, id string) (*domain.Post, error) {
	r.m.Lock()
	defer r.m.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (r *fakePostRepo) filter(keep func(*domain.Post) bool, byUpdate bool) []domain.Post {
	r.m.Lock()
	defer r.m.Unlock()
	posts := []domain.Post{}
	for _, p := range r.posts {
		if keep(p) {
			posts = append(posts, *p)
		}
	}
	sort.Slice(posts, func(i, j int) bool {
		if byUpdate {
			return posts[i].UpdatedAt.After(posts[j].UpdatedAt)
		}
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	return posts
}

func (r *fakePostRepo) List(context.Context) ([]domain.Post, error) {
	return r.filter(func(*domain.Post) bool { return true }, true), nil
}

func (r *fakePostRepo) ListByCategory(_ context.Context, category string) ([]domain.Post, error) {
	return r.filter(func(p *domain.Post) bool { return p.Category == category }, false), nil
}

func (r *fakePostRepo) ListByCreator(_ context.Context, creatorID string) ([]domain.Post, error) {
	return r.filter(func(p *domain.Post) bool { return p.Creator == creatorID }, false), nil
}

func (r *fakePostRepo) Update(_ context.Context, post *domain.Post) error {
	r.m.Lock()
	defer r.m.Unlock()
	p, ok := r.posts[post.ID]
	if !ok {
		return repository.ErrNotFound
	}
	post.UpdatedAt = r.clock.next()
	p.Title, p.Category, p.Description, p.Thumbnail, p.UpdatedAt = post.Title, post.Category, post.Description, post.Thumbnail, post.UpdatedAt
	return nil
}

func (r *fakePostRepo) Delete(_ context.Context, id string) error {
	r.m.Lock()
	defer r.m.Unlock()
	if _, ok := r.posts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.posts, id)
	return nil
}

func (r *fakePostRepo) CountByCreator(_ context.Context, creatorID string) (int64, error) {
	r.m.Lock()
	defer r.m.Unlock()
	var n int64
	for _, p := range r.posts {
		if p.Creator == creatorID {
			n++
		}
	}
	return n, nil
}

func (r *fakePostRepo) CountAllByCreator(context.Context) (map[string]int64, error) {
	r.m.Lock()
	defer r.m.Unlock()
	counts := make(map[string]int64)
	for _, p := range r.posts {
		counts[p.Creator]++
	}
	return counts, nil
}

type fakeStore struct {
	m          sync.Mutex
	objects    map[string]storage.Object
	modified   map[string]time.Time
	puts       int
	failPut    bool
	failDelete bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string]storage.Object), modified: make(map[string]time.Time)}
}

func (s *fakeStore) Put(_ context.Context, obj storage.Object) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.failPut {
		return errBackend
	}
	s.puts++
	s.objects[obj.Key] = obj
	s.modified[obj.Key] = time.Now()
	return nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.failDelete {
		return errBackend
	}
	if _, ok := s.objects[key]; !ok {
		return storage.ErrNotFound
	}
	delete(s.objects, key)
	delete(s.modified, key)
	return nil
}

func (s *fakeStore) Exists(_ context.Context, key string) (bool, error) {
	s.m.Lock()
	defer s.m.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *fakeStore) List(context.Context) ([]storage.ObjectInfo, error) {
	s.m.Lock()
	defer s.m.Unlock()
	var out []storage.ObjectInfo
	for key, obj := range s.objects {
		modified := s.modified[key]
		out = append(out, storage.ObjectInfo{Key: key, Size: int64(len(obj.Body)), LastModified: &modified})
	}
	return out, nil
}

func (s *fakeStore) URL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "/uploads/" + key, nil
}

func (s *fakeStore) has(key string) bool {
	ok, _ := s.Exists(context.Background(), key)
	return ok
}

func (s *fakeStore) count() int {
	s.m.Lock()
	defer s.m.Unlock()
	return len(s.objects)
}

type fakeTokens struct{}

func (fakeTokens) Issue(userID, name string) (string, error) {
	return "token-" + userID, nil
}

type fakeRevoker struct {
	revoked map[string]time.Time
}

func (r *fakeRevoker) Revoke(_ context.Context, tokenID string, until time.Time) error {
	r.revoked[tokenID] = until
	return nil
}

func (r *fakeRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	_, ok := r.revoked[tokenID]
	return ok, nil
}

type fixture struct {
	users   *fakeUserRepo
	posts   *fakePostRepo
	store   *fakeStore
	revoker *fakeRevoker
	userSvc *userService
	postSvc *postService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	c := &clock{}
	f := &fixture{
		users:   newFakeUserRepo(c),
		posts:   newFakePostRepo(c),
		store:   newFakeStore(),
		revoker: &fakeRevoker{revoked: make(map[string]time.Time)},
	}
	f.userSvc = NewUserService(f.users, f.posts, f.store, fakeTokens{}, f.revoker, logger).(*userService)
	f.userSvc.bcryptCost = bcrypt.MinCost
	f.postSvc = NewPostService(f.posts, f.store, logger).(*postService)
	return f
}

func (f *fixture) register(t *testing.T, name, email, password string) *domain.User {
	t.Helper()

	user, err := f.userSvc.Register(context.Background(), RegisterInput{
		Name: name, Email: email, Password: password, ConfirmPassword: password,
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return user
}

func (f *fixture) createPost(t *testing.T, creatorID, category string) *domain.Post {
	t.Helper()

	post, err := f.postSvc.CreatePost(context.Background(), CreatePostInput{
		Title:       "Title",
		Category:    category,
		Description: "Body",
		Thumbnail:   pngUpload("thumb.png", 64),
		CreatorID:   creatorID,
	})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	return post
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n")

// pngUpload returns an upload of exactly size bytes that sniffs as PNG.
func pngUpload(name string, size int) *Upload {
	body := make([]byte, size)
	copy(body, pngHeader)
	return &Upload{Filename: name, Size: int64(size), Body: bytes.NewReader(body)}
}

func assertKind(t *testing.T, err error, want Kind, wantMsg string) {
	t.Helper()

	var svcErr *Error
	if !errors.As(err, &svcErr) {
		t.Fatalf("want *Error, got %T (%v)", err, err)
	}
	if svcErr.Kind != want {
		t.Errorf("want kind %s, got %s", want, svcErr.Kind)
	}
	if wantMsg != "" && svcErr.Message != wantMsg {
		t.Errorf("want message %q, got %q", wantMsg, svcErr.Message)
	}
}
