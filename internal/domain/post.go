package domain

import "time"

// Post is a blog entry owned by the user referenced in Creator.
type Post struct {
	ID          string
	Title       string
	Category    string
	Description string
	Thumbnail   string
	Creator     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsOwnedBy reports whether userID created the post.
func (p *Post) IsOwnedBy(userID string) bool {
	return p != nil && userID != "" && p.Creator == userID
}
