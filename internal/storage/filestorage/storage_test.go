package storage_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"boltvault/internal/storage"
	filestorage "boltvault/internal/storage/filestorage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupFileStorage(t *testing.T, maxSize int64) *filestorage.LocalFileStorage {
	t.Helper()

	fs, err := filestorage.NewLocalFileStorage(t.TempDir(), "http://test.local/uploads/", maxSize)
	require.NoError(t, err)

	return fs
}

func TestLocalFileStorage_Save(t *testing.T) {
	fs := setupFileStorage(t, 0)
	ctx := context.Background()

	t.Run("successful save", func(t *testing.T) {
		filePath, size, err := fs.Save(ctx, strings.NewReader("test content"), "test.txt", "user-1")
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(filePath, "user-1/"))
		assert.True(t, strings.HasSuffix(filePath, "_test.txt"))
		assert.Equal(t, int64(12), size)

		data, err := os.ReadFile(fs.GetFullPath(filePath))
		require.NoError(t, err)
		assert.Equal(t, "test content", string(data))
	})

	t.Run("same name does not collide", func(t *testing.T) {
		first, _, err := fs.Save(ctx, strings.NewReader("a"), "same.png", "")
		require.NoError(t, err)
		second, _, err := fs.Save(ctx, strings.NewReader("b"), "same.png", "")
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
	})

	t.Run("filename is reduced to its base", func(t *testing.T) {
		filePath, _, err := fs.Save(ctx, strings.NewReader("x"), "../../etc/passwd", "u")
		require.NoError(t, err)
		assert.Equal(t, "u", filepath.Dir(filePath))
	})

	t.Run("rejects parent directory in sub path", func(t *testing.T) {
		_, _, err := fs.Save(ctx, strings.NewReader("x"), "a.txt", "../outside")
		assert.ErrorIs(t, err, storage.ErrInvalidPath)
	})

	t.Run("save with context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(ctx)
		cancel()

		_, _, err := fs.Save(ctx, strings.NewReader("x"), "a.txt", "subdir")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLocalFileStorage_SaveTooLarge(t *testing.T) {
	fs := setupFileStorage(t, 4)

	_, _, err := fs.Save(context.Background(), bytes.NewReader([]byte("12345")), "big.bin", "u")
	require.ErrorIs(t, err, storage.ErrFileTooLarge)

	entries, err := os.ReadDir(filepath.Join(fs.GetBaseDir(), "u"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalFileStorage_SaveAt(t *testing.T) {
	fs := setupFileStorage(t, 4)
	ctx := context.Background()

	assert.Equal(t, int64(4), fs.MaxSize())

	size, err := fs.SaveAt(ctx, strings.NewReader("one"), "u/thumbs/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, int64(3), size)

	_, err = fs.SaveAt(ctx, strings.NewReader("two"), "u/thumbs/a.jpg")
	require.NoError(t, err)

	data, err := os.ReadFile(fs.GetFullPath("u/thumbs/a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	_, err = fs.SaveAt(ctx, strings.NewReader("12345"), "u/thumbs/b.jpg")
	assert.ErrorIs(t, err, storage.ErrFileTooLarge)

	_, err = fs.SaveAt(ctx, strings.NewReader("x"), "../b.jpg")
	assert.ErrorIs(t, err, storage.ErrInvalidPath)

	_, err = fs.SaveAt(ctx, strings.NewReader("x"), "")
	assert.ErrorIs(t, err, storage.ErrInvalidPath)
}

func TestLocalFileStorage_Delete(t *testing.T) {
	fs := setupFileStorage(t, 0)
	ctx := context.Background()

	t.Run("successful delete", func(t *testing.T) {
		filePath, _, err := fs.Save(ctx, strings.NewReader("content"), "to_delete.txt", "")
		require.NoError(t, err)

		require.NoError(t, fs.Delete(ctx, filePath))

		_, err = os.Stat(fs.GetFullPath(filePath))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("delete non-existent file", func(t *testing.T) {
		err := fs.Delete(ctx, "nonexistent.txt")
		assert.ErrorIs(t, err, storage.ErrFileNotFound)
	})

	t.Run("delete outside base dir", func(t *testing.T) {
		err := fs.Delete(ctx, "../x")
		assert.ErrorIs(t, err, storage.ErrInvalidPath)
	})
}

func TestLocalFileStorage_URL(t *testing.T) {
	fs := setupFileStorage(t, 0)

	assert.Equal(t, "http://test.local/uploads", fs.BaseURL())
	assert.Equal(t, "http://test.local/uploads/u/a%20b.png", fs.URL("u/a b.png"))
}

func TestNewLocalFileStorage(t *testing.T) {
	t.Run("successful creation", func(t *testing.T) {
		fs, err := filestorage.NewLocalFileStorage(t.TempDir(), "http://test.local", 0)
		require.NoError(t, err)
		assert.NotNil(t, fs)
	})

	t.Run("invalid directory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

		_, err := filestorage.NewLocalFileStorage(filepath.Join(file, "sub"), "http://test.local", 0)
		assert.Error(t, err)
	})
}

func TestConcurrentSaves(t *testing.T) {
	fs := setupFileStorage(t, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := fs.Save(ctx, strings.NewReader("data"), "concurrent.txt", "concurrent")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entries, err := os.ReadDir(filepath.Join(fs.GetBaseDir(), "concurrent"))
	require.NoError(t, err)
	assert.Len(t, entries, 10)
}
