package http

import (
	"blog-server/internal/domain"
)

// timeLayout keeps millisecond precision so clients can order records created
// within the same second.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

type PostResponse struct {
	ID          string   `json:"_id"`
	Title       string   `json:"title"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Thumbnail   string   `json:"thumbnail"`
	Creator     string   `json:"creator"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
	Warnings    []string `json:"warnings,omitempty"`
}

// UserResponse is a public profile. It never carries the password hash.
type UserResponse struct {
	ID        string   `json:"_id"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Avatar    string   `json:"avatar"`
	Posts     int64    `json:"posts"`
	CreatedAt string   `json:"createdAt"`
	UpdatedAt string   `json:"updatedAt"`
	Warnings  []string `json:"warnings,omitempty"`
}

type LoginResponse struct {
	Token string `json:"token"`
	ID    string `json:"id"`
	Name  string `json:"name"`
}

func postToResponse(post domain.Post) PostResponse {
	return PostResponse{
		ID:          post.ID,
		Title:       post.Title,
		Category:    post.Category,
		Description: post.Description,
		Thumbnail:   post.Thumbnail,
		Creator:     post.Creator,
		CreatedAt:   post.CreatedAt.UTC().Format(timeLayout),
		UpdatedAt:   post.UpdatedAt.UTC().Format(timeLayout),
	}
}

func postsToResponse(posts []domain.Post) []PostResponse {
	resp := make([]PostResponse, len(posts))
	for i := range posts {
		resp[i] = postToResponse(posts[i])
	}
	return resp
}

func userToResponse(user domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Avatar:    user.Avatar,
		Posts:     user.PostCount,
		CreatedAt: user.CreatedAt.UTC().Format(timeLayout),
		UpdatedAt: user.UpdatedAt.UTC().Format(timeLayout),
	}
}
