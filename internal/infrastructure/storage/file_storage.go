package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/procurement-workflow/internal/application/port"
)

// LocalFileStorage keeps generated artifacts under a base directory
type LocalFileStorage struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalFileStorage creates a new LocalFileStorage
func NewLocalFileStorage(baseDir string, logger *zap.Logger) *LocalFileStorage {
	return &LocalFileStorage{
		baseDir: baseDir,
		logger:  logger,
	}
}

// Save writes content atomically: a temp file in the target directory is renamed into place
func (s *LocalFileStorage) Save(ctx context.Context, path string, content []byte) error {
	fullPath, err := s.resolve(path)
	if err != nil {
		return err
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.logger.Error("Failed to create parent directories", zap.String("path", dir), zap.Error(err))
		return fmt.Errorf("failed to create directories: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(fullPath)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		s.logger.Error("Failed to write file", zap.String("path", fullPath), zap.Error(err))
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}

	s.logger.Debug("File saved successfully", zap.String("path", fullPath), zap.Int("size", len(content)))
	return nil
}

// Read reads content from the specified relative path
func (s *LocalFileStorage) Read(ctx context.Context, path string) ([]byte, error) {
	fullPath, err := s.resolve(path)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return content, nil
}

// Exists checks if a file exists at the specified relative path
func (s *LocalFileStorage) Exists(ctx context.Context, path string) bool {
	fullPath, err := s.resolve(path)
	if err != nil {
		return false
	}
	info, err := os.Stat(fullPath)
	return err == nil && !info.IsDir()
}

// GetFullPath converts a relative path to full path
func (s *LocalFileStorage) GetFullPath(relativePath string) string {
	return filepath.Join(s.baseDir, relativePath)
}

// resolve rejects paths that escape baseDir
func (s *LocalFileStorage) resolve(relativePath string) (string, error) {
	absPath, err := filepath.Abs(s.GetFullPath(relativePath))
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}
	if absPath == absBase || !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes base directory: %s", relativePath)
	}
	return absPath, nil
}

// Verify interface compliance
var _ port.FileStorage = (*LocalFileStorage)(nil)
