package service

import (
	"bytes"
	"strings"
	"testing"
)

func TestSanitizeExtension(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: ".PNG", want: ".png"},
		{in: "jpeg", want: ".jpeg"},
		{in: "", want: ""},
		{in: ".", want: ""},
		{in: ".tar/gz", want: ""},
		{in: ".ph p", want: ""},
		{in: ".abcdefghijk", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := sanitizeExtension(tt.in); got != tt.want {
				t.Errorf("sanitizeExtension(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestReadUpload(t *testing.T) {
	obj, err := readUpload(pngUpload("photo", 64), MaxAvatarSize)
	if err != nil {
		t.Fatalf("read upload: %v", err)
	}
	if !strings.HasSuffix(obj.Key, ".png") {
		t.Errorf("want sniffed .png extension, got %q", obj.Key)
	}
	if obj.ContentType != "image/png" {
		t.Errorf("want image/png, got %q", obj.ContentType)
	}
	if len(obj.Body) != 64 {
		t.Errorf("want 64 bytes, got %d", len(obj.Body))
	}

	other, err := readUpload(pngUpload("photo.png", 64), MaxAvatarSize)
	if err != nil {
		t.Fatalf("read upload: %v", err)
	}
	if other.Key == obj.Key {
		t.Error("keys must be unique per upload")
	}

	_, err = readUpload(&Upload{Filename: "x.bin", Body: bytes.NewReader(make([]byte, 11))}, 10)
	if err != errTooLarge {
		t.Errorf("want errTooLarge, got %v", err)
	}
}
