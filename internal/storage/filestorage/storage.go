package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"boltvault/internal/storage"

	"github.com/google/uuid"
)

// FileStorage is the object store behind media uploads.
type FileStorage interface {
	Save(ctx context.Context, r io.Reader, filename, subPath string) (filePath string, fileSize int64, err error)
	SaveAt(ctx context.Context, r io.Reader, relPath string) (fileSize int64, err error)
	Delete(ctx context.Context, filePath string) error
	GetFullPath(relativePath string) string
	URL(relativePath string) string
	BaseURL() string
	GetBaseDir() string
	MaxSize() int64
}

// LocalFileStorage keeps objects on the local filesystem and serves them
// under baseURL.
type LocalFileStorage struct {
	baseDir string // e.g. "./uploads"
	baseURL string // e.g. "http://localhost:8080/uploads"
	maxSize int64  // 0 means unlimited
}

func NewLocalFileStorage(baseDir, baseURL string, maxSize int64) (*LocalFileStorage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	return &LocalFileStorage{
		baseDir: baseDir,
		baseURL: strings.TrimRight(baseURL, "/"),
		maxSize: maxSize,
	}, nil
}

// Save writes r under subPath with a collision free name derived from
// filename and returns the storage path relative to the base directory.
func (s *LocalFileStorage) Save(ctx context.Context, r io.Reader, filename, subPath string) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	if !validRelative(subPath) {
		return "", 0, storage.ErrInvalidPath
	}

	relPath := path.Join(filepath.ToSlash(subPath), uuid.NewString()+"_"+sanitizeName(filename))

	size, err := s.write(ctx, r, relPath)
	if err != nil {
		return "", 0, err
	}

	return relPath, size, nil
}

// SaveAt writes r to relPath, replacing what was stored there.
func (s *LocalFileStorage) SaveAt(ctx context.Context, r io.Reader, relPath string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if relPath == "" || !validRelative(relPath) {
		return 0, storage.ErrInvalidPath
	}

	return s.write(ctx, r, filepath.ToSlash(relPath))
}

func (s *LocalFileStorage) write(ctx context.Context, r io.Reader, relPath string) (int64, error) {
	filePath := s.GetFullPath(relPath)

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return 0, fmt.Errorf("failed to create directories: %w", err)
	}

	dst, err := os.Create(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	src := r
	if s.maxSize > 0 {
		src = io.LimitReader(r, s.maxSize+1)
	}

	done := make(chan struct{})
	var size int64
	var copyErr error

	go func() {
		size, copyErr = io.Copy(dst, src)
		close(done)
	}()

	select {
	case <-done:
		if copyErr != nil {
			_ = os.Remove(filePath)
			return 0, fmt.Errorf("failed to copy file: %w", copyErr)
		}
	case <-ctx.Done():
		<-done
		_ = os.Remove(filePath)
		return 0, ctx.Err()
	}

	if s.maxSize > 0 && size > s.maxSize {
		_ = os.Remove(filePath)
		return 0, storage.ErrFileTooLarge
	}

	return size, nil
}

// Delete removes an object from the store.
func (s *LocalFileStorage) Delete(ctx context.Context, filePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !validRelative(filePath) || filePath == "" {
		return storage.ErrInvalidPath
	}

	if err := os.Remove(s.GetFullPath(filePath)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return storage.ErrFileNotFound
		}
		return err
	}

	return nil
}

// GetFullPath returns the location of an object on disk.
func (s *LocalFileStorage) GetFullPath(relativePath string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(relativePath))
}

// URL returns the public address of an object.
func (s *LocalFileStorage) URL(relativePath string) string {
	parts := strings.Split(filepath.ToSlash(relativePath), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}

	return s.baseURL + "/" + path.Join(parts...)
}

func (s *LocalFileStorage) BaseURL() string {
	return s.baseURL
}

func (s *LocalFileStorage) GetBaseDir() string {
	return s.baseDir
}

// MaxSize is the largest object Save accepts; 0 means unlimited.
func (s *LocalFileStorage) MaxSize() int64 {
	return s.maxSize
}

func validRelative(p string) bool {
	if filepath.IsAbs(p) {
		return false
	}

	for _, part := range strings.Split(filepath.ToSlash(p), "/") {
		if part == ".." {
			return false
		}
	}

	return true
}

func sanitizeName(filename string) string {
	name := filepath.Base(filepath.FromSlash(strings.ReplaceAll(filename, "\\", "/")))
	if name == "." || name == "/" || name == "" {
		return "file"
	}

	return strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '_'
		case r < 32, r == '?', r == '#', r == '%':
			return -1
		}
		return r
	}, name)
}
