package blob

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(t.TempDir(), "http://localhost:8080/")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	return s
}

func TestUploadDataURL(t *testing.T) {
	s := newTestStore(t)
	payload := []byte{0x89, 'P', 'N', 'G'}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload)

	url, err := s.Upload(context.Background(), dataURL)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !strings.HasPrefix(url, "http://localhost:8080/uploads/") {
		t.Fatalf("url = %q, want an /uploads/ URL", url)
	}
	if !strings.HasSuffix(url, ".png") {
		t.Errorf("url = %q, want a .png name", url)
	}

	name := url[strings.LastIndex(url, "/")+1:]
	got, err := os.ReadFile(filepath.Join(s.Dir, name))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("stored bytes = %v, want %v", got, payload)
	}
}

func TestUploadJpegExtension(t *testing.T) {
	s := newTestStore(t)
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("x"))

	url, err := s.Upload(context.Background(), dataURL)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !strings.HasSuffix(url, ".jpg") {
		t.Errorf("url = %q, want a .jpg name", url)
	}
}

func TestUploadPassesThroughHostedURLs(t *testing.T) {
	s := newTestStore(t)
	hosted := "https://cdn.example.com/pic.png"

	url, err := s.Upload(context.Background(), hosted)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != hosted {
		t.Errorf("url = %q, want the input unchanged", url)
	}
}

func TestUploadRejectsGarbage(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Upload(context.Background(), "not base64 at all!"); !errors.Is(err, ErrBadImage) {
		t.Fatalf("err = %v, want ErrBadImage", err)
	}
	if _, err := s.Upload(context.Background(), "data:image/png;base64"); !errors.Is(err, ErrBadImage) {
		t.Fatalf("data URL without comma: err = %v, want ErrBadImage", err)
	}
}
