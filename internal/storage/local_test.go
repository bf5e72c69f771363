package storage_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"blog-server/internal/storage"
)

func setupLocalService(t *testing.T) (*storage.LocalService, string) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	dir := filepath.Join(t.TempDir(), "uploads")
	svc, err := storage.NewLocalService(dir, logger)
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}
	return svc, dir
}

func TestLocalService_PutAndDelete(t *testing.T) {
	svc, dir := setupLocalService(t)
	ctx := context.Background()

	obj := storage.Object{Key: "photo.png", Body: []byte("png bytes"), ContentType: "image/png"}
	if err := svc.Put(ctx, obj); err != nil {
		t.Fatalf("put: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(dir, "photo.png"))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if !bytes.Equal(content, obj.Body) {
		t.Errorf("content mismatch\nwant: %s\ngot:  %s", obj.Body, content)
	}

	exists, err := svc.Exists(ctx, "photo.png")
	if err != nil || !exists {
		t.Fatalf("exists: want true, got %v (%v)", exists, err)
	}

	objects, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(objects) != 1 || objects[0].Key != "photo.png" || objects[0].Size != int64(len(obj.Body)) {
		t.Errorf("unexpected listing: %+v", objects)
	}

	if err := svc.Delete(ctx, "photo.png"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if exists, _ := svc.Exists(ctx, "photo.png"); exists {
		t.Error("expected file to be gone")
	}
	if err := svc.Delete(ctx, "photo.png"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second delete: want ErrNotFound, got %v", err)
	}
}

func TestLocalService_RejectsUnsafeKeys(t *testing.T) {
	svc, _ := setupLocalService(t)
	ctx := context.Background()

	for _, key := range []string{"", ".", "..", "../escape.png", "nested/file.png", `win\path.png`} {
		t.Run(key, func(t *testing.T) {
			if err := svc.Put(ctx, storage.Object{Key: key, Body: []byte("x")}); !errors.Is(err, storage.ErrInvalidKey) {
				t.Errorf("put: want ErrInvalidKey, got %v", err)
			}
			if err := svc.Delete(ctx, key); !errors.Is(err, storage.ErrInvalidKey) {
				t.Errorf("delete: want ErrInvalidKey, got %v", err)
			}
		})
	}
}

func TestLocalService_ListSkipsTempFiles(t *testing.T) {
	svc, dir := setupLocalService(t)

	if err := os.WriteFile(filepath.Join(dir, ".upload-123"), []byte("partial"), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	objects, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(objects) != 0 {
		t.Errorf("want empty listing, got %+v", objects)
	}
}

func TestLocalService_URL(t *testing.T) {
	svc, _ := setupLocalService(t)

	got, err := svc.URL(context.Background(), "a b.png", 0)
	if err != nil {
		t.Fatalf("url: %v", err)
	}
	if got != "/uploads/a%20b.png" {
		t.Errorf("want /uploads/a%%20b.png, got %s", got)
	}
}

func TestLocalService_ErrorsOmitDirectory(t *testing.T) {
	tests := []struct {
		name    string
		breakFS func(t *testing.T, dir string)
	}{
		{
			name: "uploads dir removed",
			breakFS: func(t *testing.T, dir string) {
				if err := os.RemoveAll(dir); err != nil {
					t.Fatalf("remove dir: %v", err)
				}
			},
		},
		{
			name: "key taken by a directory",
			breakFS: func(t *testing.T, dir string) {
				if err := os.Mkdir(filepath.Join(dir, "taken.png"), 0o755); err != nil {
					t.Fatalf("mkdir: %v", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, dir := setupLocalService(t)
			tt.breakFS(t, dir)

			err := svc.Put(context.Background(), storage.Object{Key: "taken.png", Body: []byte("x")})
			if err == nil {
				t.Fatal("expected put to fail")
			}
			if strings.Contains(err.Error(), dir) {
				t.Errorf("error exposes server path: %v", err)
			}
		})
	}
}
