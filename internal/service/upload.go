package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"blog-server/internal/storage"
)

const (
	// MaxThumbnailSize is the largest accepted post thumbnail in bytes.
	MaxThumbnailSize int64 = 2_000_000
	// MaxAvatarSize is the largest accepted avatar in bytes.
	MaxAvatarSize int64 = 500_000

	maxExtensionLength = 10
)

var errTooLarge = errors.New("upload exceeds size limit")

// Upload is a file received from a client. Size is the declared size and is
// checked before Body is read.
type Upload struct {
	Filename string
	Size     int64
	Body     io.Reader
}

// readUpload loads the upload into memory and assigns it a fresh storage key.
// Nothing is written anywhere when the file exceeds limit.
func readUpload(up *Upload, limit int64) (storage.Object, error) {
	if up.Size > limit {
		return storage.Object{}, errTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(up.Body, limit+1))
	if err != nil {
		return storage.Object{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return storage.Object{}, errTooLarge
	}

	mtype := mimetype.Detect(data)
	return storage.Object{
		Key:         newObjectKey(up.Filename, mtype.Extension()),
		Body:        data,
		ContentType: mtype.String(),
	}, nil
}

// newObjectKey builds a random key that keeps the original extension when it
// is a plain alphanumeric suffix, falling back to the sniffed one.
func newObjectKey(filename, detectedExt string) string {
	ext := sanitizeExtension(filepath.Ext(filename))
	if ext == "" {
		ext = sanitizeExtension(detectedExt)
	}
	return uuid.NewString() + ext
}

func sanitizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" || len(ext) > maxExtensionLength {
		return ""
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return "." + ext
}

// removeObject deletes key from the store. A missing object is not an error.
func removeObject(ctx context.Context, store storage.Service, key string) error {
	if key == "" {
		return nil
	}
	if err := store.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return nil
}
