package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"blog-server/internal/auth"
	"blog-server/internal/domain"
	"blog-server/internal/repository"
	"blog-server/internal/storage"
)

const minPasswordLength = 6

// TokenIssuer signs session tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID, name string) (string, error)
}

type RegisterInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

type EditUserInput struct {
	Name               string
	Email              string
	CurrentPassword    string
	NewPassword        string
	ConfirmNewPassword string
}

// LoginResult is what a successful login hands back to the client.
type LoginResult struct {
	Token string
	ID    string
	Name  string
}

// UserService describes user lifecycle operations.
type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Logout(ctx context.Context, tokenID string, expiresAt time.Time) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	ChangeAvatar(ctx context.Context, callerID string, avatar *Upload) (*domain.User, []string, error)
	EditUser(ctx context.Context, callerID string, in EditUserInput) (*domain.User, error)
	ListAuthors(ctx context.Context) ([]domain.User, error)
}

type userService struct {
	users      repository.UserRepository
	posts      repository.PostRepository
	store      storage.Service
	tokens     TokenIssuer
	revoker    auth.Revoker
	log        *logrus.Entry
	bcryptCost int
}

// NewUserService wires the user operations. revoker may be nil, in which case
// Logout is unavailable.
func NewUserService(
	users repository.UserRepository,
	posts repository.PostRepository,
	store storage.Service,
	tokens TokenIssuer,
	revoker auth.Revoker,
	logger *logrus.Logger,
) UserService {
	if logger == nil {
		logger = logrus.New()
	}
	return &userService{
		users:      users,
		posts:      posts,
		store:      store,
		tokens:     tokens,
		revoker:    revoker,
		log:        logger.WithField("component", "service.users"),
		bcryptCost: bcrypt.DefaultCost,
	}
}

func (s *userService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return nil, validationError("Fill in all fields.")
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, registrationFailed(err)
	}

	if len(strings.TrimSpace(in.Password)) < minPasswordLength {
		return nil, validationError(fmt.Sprintf("Password should be at least %d characters.", minPasswordLength))
	}
	if in.Password != in.ConfirmPassword {
		return nil, validationError("Passwords do not match.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, registrationFailed(fmt.Errorf("hash password: %w", err))
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailExists
		}
		return nil, registrationFailed(err)
	}

	s.log.WithField("user_id", user.ID).Info("user registered")
	return sanitizeUser(user), nil
}

func (s *userService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, validationError("Fill in all fields.")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, loginFailed(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Name)
	if err != nil {
		return nil, loginFailed(err)
	}
	return &LoginResult{Token: token, ID: user.ID, Name: user.Name}, nil
}

func (s *userService) Logout(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if s.revoker == nil {
		return internalError("Logout is not available.", errors.New("no token revoker configured"))
	}
	if tokenID == "" {
		return validationError("Token has no id.")
	}
	if err := s.revoker.Revoke(ctx, tokenID, expiresAt); err != nil {
		return internalError("Logout failed.", err)
	}
	return nil
}

func (s *userService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, userLookupError(err)
	}
	count, err := s.posts.CountByCreator(ctx, user.ID)
	if err != nil {
		return nil, internalError("Couldn't load user.", err)
	}
	user.PostCount = count
	return sanitizeUser(user), nil
}

func (s *userService) ChangeAvatar(ctx context.Context, callerID string, avatar *Upload) (*domain.User, []string, error) {
	if avatar == nil {
		return nil, nil, validationError("Please choose an image.")
	}
	if strings.TrimSpace(avatar.Filename) == "" {
		return nil, nil, validationError("Invalid file name.")
	}

	user, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return nil, nil, userLookupError(err)
	}

	obj, err := readUpload(avatar, MaxAvatarSize)
	if err != nil {
		if errors.Is(err, errTooLarge) {
			return nil, nil, validationError("Profile picture too big. Should be less than 500kb.")
		}
		return nil, nil, internalError("Avatar couldn't be changed.", err)
	}

	if err := s.store.Put(ctx, obj); err != nil {
		return nil, nil, storageError(err)
	}

	if err := s.users.UpdateAvatar(ctx, user.ID, obj.Key); err != nil {
		if cleanupErr := removeObject(ctx, s.store, obj.Key); cleanupErr != nil {
			s.log.WithError(cleanupErr).WithField("key", obj.Key).Warn("remove unused avatar")
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, notFoundError("User not found.", err)
		}
		return nil, nil, internalError("Avatar couldn't be changed.", err)
	}

	var warnings []string
	if user.Avatar != "" {
		if warning := s.removePreviousAvatar(ctx, user.Avatar); warning != "" {
			warnings = append(warnings, warning)
		}
	}

	updated, err := s.GetUser(ctx, user.ID)
	if err != nil {
		return nil, warnings, err
	}
	return updated, warnings, nil
}

func (s *userService) removePreviousAvatar(ctx context.Context, key string) string {
	log := s.log.WithField("key", key)

	exists, err := s.store.Exists(ctx, key)
	if err != nil {
		log.WithError(err).Warn("check previous avatar")
		return fmt.Sprintf("check previous avatar %s: %v", key, err)
	}
	if !exists {
		return ""
	}
	if err := removeObject(ctx, s.store, key); err != nil {
		log.WithError(err).Warn("delete previous avatar")
		return fmt.Sprintf("delete previous avatar %s: %v", key, err)
	}
	return ""
}

func (s *userService) EditUser(ctx context.Context, callerID string, in EditUserInput) (*domain.User, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" || email == "" || in.CurrentPassword == "" || in.NewPassword == "" {
		return nil, validationError("Fill in all fields.")
	}

	user, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return nil, userLookupError(err)
	}

	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil && existing.ID != user.ID:
		return nil, ErrEmailExists
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return nil, internalError("Couldn't update user.", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.CurrentPassword)); err != nil {
		return nil, validationError("Invalid current password.")
	}
	if len(strings.TrimSpace(in.NewPassword)) < minPasswordLength {
		return nil, validationError(fmt.Sprintf("Password should be at least %d characters.", minPasswordLength))
	}
	if in.NewPassword != in.ConfirmNewPassword {
		return nil, validationError("New passwords do not match.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), s.bcryptCost)
	if err != nil {
		return nil, internalError("Couldn't update user.", fmt.Errorf("hash password: %w", err))
	}

	if err := s.users.UpdateProfile(ctx, user.ID, name, email, string(hash)); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrEmailExists
		case errors.Is(err, repository.ErrNotFound):
			return nil, notFoundError("User not found.", err)
		default:
			return nil, internalError("Couldn't update user.", err)
		}
	}

	return s.GetUser(ctx, user.ID)
}

func (s *userService) ListAuthors(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, internalError("Couldn't load authors.", err)
	}
	counts, err := s.posts.CountAllByCreator(ctx)
	if err != nil {
		return nil, internalError("Couldn't load authors.", err)
	}

	authors := make([]domain.User, 0, len(users))
	for i := range users {
		users[i].PostCount = counts[users[i].ID]
		authors = append(authors, *sanitizeUser(&users[i]))
	}
	return authors, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func userLookupError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFoundError("User not found.", err)
	}
	return internalError("Couldn't load user.", err)
}

func registrationFailed(cause error) error {
	return &Error{Kind: KindValidation, Message: "User registration failed.", Err: cause}
}

func loginFailed(cause error) error {
	return &Error{Kind: KindAuth, Message: "Login failed, please check your credentials.", Err: cause}
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Avatar:    user.Avatar,
		PostCount: user.PostCount,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
