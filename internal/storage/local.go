package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// LocalService keeps uploads as plain files in a single directory.
type LocalService struct {
	dir    string
	logger *logrus.Entry
}

func NewLocalService(dir string, logger *logrus.Logger) (*LocalService, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("uploads dir is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &LocalService{
		dir:    filepath.Clean(dir),
		logger: logger.WithField("component", "storage.local"),
	}, nil
}

// Dir is the directory files are served from.
func (s *LocalService) Dir() string {
	return s.dir
}

func (s *LocalService) path(key string) (string, error) {
	if !ValidKey(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.dir, key), nil
}

func (s *LocalService) Put(ctx context.Context, obj Object) error {
	target, err := s.path(obj.Key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", stripDir(err))
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(obj.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", obj.Key, stripDir(err))
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", obj.Key, stripDir(err))
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", obj.Key, stripDir(err))
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", obj.Key, stripDir(err))
	}
	if err = os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("move %s into place: %w", obj.Key, stripDir(err))
	}

	s.logger.WithFields(logrus.Fields{"key": obj.Key, "size": len(obj.Body)}).Debug("object stored")
	return nil
}

func (s *LocalService) Delete(ctx context.Context, key string) error {
	target, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return fmt.Errorf("remove %s: %w", key, stripDir(err))
	}
	s.logger.WithField("key", key).Debug("object deleted")
	return nil
}

func (s *LocalService) Exists(ctx context.Context, key string) (bool, error) {
	target, err := s.path(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", key, stripDir(err))
	}
	return info.Mode().IsRegular(), nil
}

func (s *LocalService) List(ctx context.Context) ([]ObjectInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read uploads dir: %w", stripDir(err))
	}

	objects := make([]ObjectInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", entry.Name(), stripDir(err))
		}
		modified := info.ModTime()
		objects = append(objects, ObjectInfo{
			Key:          entry.Name(),
			Size:         info.Size(),
			LastModified: &modified,
		})
	}
	return objects, nil
}

func (s *LocalService) URL(ctx context.Context, key string, _ time.Duration) (string, error) {
	if !ValidKey(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return "/uploads/" + url.PathEscape(key), nil
}

// stripDir drops directories from path errors so messages sent to clients
// name only the file.
func stripDir(err error) error {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return &fs.PathError{Op: pathErr.Op, Path: filepath.Base(pathErr.Path), Err: pathErr.Err}
	}
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return &os.LinkError{Op: linkErr.Op, Old: filepath.Base(linkErr.Old), New: filepath.Base(linkErr.New), Err: linkErr.Err}
	}
	return err
}

var _ Service = (*LocalService)(nil)
