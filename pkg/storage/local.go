package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrInvalidHandle is returned for handles that would resolve outside the base directory.
var ErrInvalidHandle = errors.New("storage: invalid handle")

// LocalStorage persists staged files on disk under a base directory. Handles are slash separated
// paths relative to the base.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./staging"
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve staging directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	return &LocalStorage{baseDir: abs}, nil
}

// Save writes data to handle, replacing any previous content.
func (s *LocalStorage) Save(handle string, data []byte) (string, error) {
	path, err := s.resolve(handle)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("prepare staging directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("write staged file: %w", err)
	}
	return handle, nil
}

// SaveStream copies r into handle through a temporary file so readers never see a partial write.
func (s *LocalStorage) SaveStream(handle string, r io.Reader) (int64, error) {
	path, err := s.resolve(handle)
	if err != nil {
		return 0, err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return 0, fmt.Errorf("prepare staging directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("create staged file: %w", err)
	}
	written, copyErr := io.Copy(tmp, r)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmp.Name())
		if copyErr != nil {
			return 0, fmt.Errorf("write staged stream: %w", copyErr)
		}
		return 0, fmt.Errorf("close staged file: %w", closeErr)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return 0, fmt.Errorf("commit staged file: %w", err)
	}
	return written, nil
}

// Open returns a read-only handle for the stored file.
func (s *LocalStorage) Open(handle string) (*os.File, error) {
	path, err := s.resolve(handle)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open staged file: %w", err)
	}
	return file, nil
}

// Read loads the whole stored file.
func (s *LocalStorage) Read(handle string) ([]byte, error) {
	path, err := s.resolve(handle)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read staged file: %w", err)
	}
	return data, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(handle string) error {
	path, err := s.resolve(handle)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete staged file: %w", err)
	}
	return nil
}

// DeleteTree removes a directory handle and everything below it.
func (s *LocalStorage) DeleteTree(handle string) error {
	path, err := s.resolve(handle)
	if err != nil {
		return err
	}
	if path == s.baseDir {
		return ErrInvalidHandle
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("delete staged tree: %w", err)
	}
	return nil
}

// CleanupOlderThan removes the direct children of prefix whose newest file is older than ttl and
// returns their handles. Children for which keep reports true are left alone; keep may be nil.
func (s *LocalStorage) CleanupOlderThan(prefix string, ttl time.Duration, keep func(name string) bool) ([]string, error) {
	root, err := s.resolve(prefix)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}

	cutoff := time.Now().Add(-ttl)
	deleted := make([]string, 0)
	for _, entry := range entries {
		if keep != nil && keep(entry.Name()) {
			continue
		}
		path := filepath.Join(root, entry.Name())
		newest, err := newestModTime(path)
		if err != nil {
			return deleted, fmt.Errorf("inspect %s: %w", entry.Name(), err)
		}
		if newest.After(cutoff) {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			return deleted, fmt.Errorf("cleanup %s: %w", entry.Name(), err)
		}
		deleted = append(deleted, filepath.ToSlash(filepath.Join(prefix, entry.Name())))
	}
	return deleted, nil
}

func (s *LocalStorage) resolve(handle string) (string, error) {
	if handle == "" || filepath.IsAbs(handle) {
		return "", ErrInvalidHandle
	}
	path := filepath.Join(s.baseDir, filepath.FromSlash(handle))
	if path != s.baseDir && !strings.HasPrefix(path, s.baseDir+string(filepath.Separator)) {
		return "", ErrInvalidHandle
	}
	return path, nil
}

func newestModTime(path string) (time.Time, error) {
	var newest time.Time
	err := filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		return nil
	})
	return newest, err
}
