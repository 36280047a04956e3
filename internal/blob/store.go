package blob

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Uploader turns inbound image payloads into publicly reachable URLs.
// The core treats it as an opaque URL-producing collaborator.
type Uploader interface {
	Upload(ctx context.Context, image string) (string, error)
}

var ErrBadImage = errors.New("image is not a data URL or http(s) URL")

// LocalStore writes decoded data URLs to a directory served under
// /uploads/ and hands already-hosted http(s) URLs straight back.
type LocalStore struct {
	Dir     string
	BaseURL string
}

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &LocalStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalStore) Upload(_ context.Context, image string) (string, error) {
	if strings.HasPrefix(image, "http://") || strings.HasPrefix(image, "https://") {
		return image, nil
	}

	payload, ext, err := decodeDataURL(image)
	if err != nil {
		return "", err
	}

	name := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(s.Dir, name), payload, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}

	return s.BaseURL + "/uploads/" + name, nil
}

// decodeDataURL accepts "data:image/png;base64,...." payloads and bare
// base64 strings (treated as png).
func decodeDataURL(image string) ([]byte, string, error) {
	ext := ".png"
	raw := image

	if strings.HasPrefix(image, "data:") {
		meta, rest, ok := strings.Cut(image, ",")
		if !ok {
			return nil, "", ErrBadImage
		}
		raw = rest
		switch {
		case strings.Contains(meta, "image/jpeg"):
			ext = ".jpg"
		case strings.Contains(meta, "image/gif"):
			ext = ".gif"
		case strings.Contains(meta, "image/webp"):
			ext = ".webp"
		}
	}

	payload, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, "", ErrBadImage
	}
	return payload, ext, nil
}
