package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when an object does not exist in the store.
	ErrNotFound = errors.New("object not found")
	// ErrInvalidKey is returned for keys that are not plain file names.
	ErrInvalidKey = errors.New("invalid object key")
)

// Object is a file ready to be written to the uploads store.
type Object struct {
	Key         string
	Body        []byte
	ContentType string
}

type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified *time.Time
}

// Service persists uploaded thumbnails and avatars under flat keys.
type Service interface {
	Put(ctx context.Context, obj Object) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	List(ctx context.Context) ([]ObjectInfo, error)
	// URL returns a location clients can fetch the object from.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// ValidKey reports whether key is a flat file name safe to use in any backend.
func ValidKey(key string) bool {
	if key == "" || key == "." || key == ".." || len(key) > 255 {
		return false
	}
	for _, r := range key {
		if r == '/' || r == '\\' || r == 0 {
			return false
		}
	}
	return true
}
