package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MediaStore persists media objects on disk under opaque keys. Callers only
// ever see the key and the derived public URL; the layout below the base
// directory is an implementation detail.
type MediaStore struct {
	baseDir       string
	publicBaseURL string
}

// NewMediaStore ensures the base directory exists and returns a handle.
func NewMediaStore(baseDir, publicBaseURL string) (*MediaStore, error) {
	if baseDir == "" {
		baseDir = "./media"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create media directory: %w", err)
	}
	return &MediaStore{baseDir: baseDir, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

// NewKey produces an opaque storage key preserving the original extension.
func (s *MediaStore) NewKey(kind, originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return fmt.Sprintf("%s/%s/%s%s", kind, time.Now().UTC().Format("2006/01"), uuid.NewString(), ext)
}

// Save streams the reader into the object identified by key. The write goes
// through a scratch file that is removed on every failure path, including
// context cancellation, so an aborted upload never leaves a partial object.
func (s *MediaStore) Save(ctx context.Context, key string, r io.Reader) (string, error) {
	path, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare media directory: %w", err)
	}

	scratch := path + ".part"
	file, err := os.Create(scratch)
	if err != nil {
		return "", fmt.Errorf("create media scratch file: %w", err)
	}

	_, copyErr := io.Copy(file, &contextReader{ctx: ctx, r: r})
	closeErr := file.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(scratch)
		return "", fmt.Errorf("write media object: %w", copyErr)
	}

	if err := os.Rename(scratch, path); err != nil {
		_ = os.Remove(scratch)
		return "", fmt.Errorf("finalise media object: %w", err)
	}
	return key, nil
}

// Open returns a read-only handle for the stored object.
func (s *MediaStore) Open(key string) (*os.File, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open media object: %w", err)
	}
	return file, nil
}

// Destroy removes the object if present. Missing objects are not an error.
func (s *MediaStore) Destroy(key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("destroy media object: %w", err)
	}
	return nil
}

// URL returns the public URL for a stored key.
func (s *MediaStore) URL(key string) string {
	return s.publicBaseURL + "/" + key
}

func (s *MediaStore) resolve(key string) (string, error) {
	clean := filepath.Clean(key)
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid media key %q", key)
	}
	return filepath.Join(s.baseDir, clean), nil
}

// contextReader aborts an in-flight copy once the context is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
