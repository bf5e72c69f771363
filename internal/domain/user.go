package domain

import "time"

// User represents a registered author of the platform.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Avatar       string
	// PostCount is derived from the posts collection on read and never stored.
	PostCount int64
	CreatedAt time.Time
	UpdatedAt time.Time
}
