// Package storage owns the uploaded signature images on disk. Database rows
// referencing these files are written by the services layer afterwards, so
// saving and persisting stay independently testable.
package storage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrFileTooLarge    = errors.New("file exceeds the upload size limit")
	ErrUnsupportedType = errors.New("only jpeg, jpg, png and gif images are allowed")
)

var allowedExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".gif":  true,
}

// SavedFile describes a stored upload. WebPath is what gets persisted and
// served; it maps back to disk through Resolve.
type SavedFile struct {
	Filename string
	WebPath  string
	Size     int64
}

type Store struct {
	dir      string
	maxBytes int64
	logger   *zap.Logger
}

func NewStore(dir string, maxBytes int64, logger *zap.Logger) *Store {
	return &Store{dir: dir, maxBytes: maxBytes, logger: logger}
}

// SaveUpload validates the uploaded image and writes it under a generated
// unique name. Validation failures leave no file behind.
func (s *Store) SaveUpload(header *multipart.FileHeader) (*SavedFile, error) {
	if header.Size > s.maxBytes {
		return nil, ErrFileTooLarge
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		return nil, ErrUnsupportedType
	}
	if mime := header.Header.Get("Content-Type"); mime != "" && !strings.HasPrefix(mime, "image/") {
		return nil, ErrUnsupportedType
	}

	src, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}

	filename := fmt.Sprintf("signature-%s%s", uuid.NewString(), ext)
	dstPath := filepath.Join(s.dir, filename)

	dst, err := os.Create(dstPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload file: %w", err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, src)
	if err != nil {
		os.Remove(dstPath)
		return nil, fmt.Errorf("failed to write upload: %w", err)
	}

	return &SavedFile{
		Filename: filename,
		WebPath:  "/" + path.Join(filepath.ToSlash(s.dir), filename),
		Size:     written,
	}, nil
}

// Resolve maps a stored web path back to its location on disk.
func (s *Store) Resolve(webPath string) string {
	return filepath.FromSlash(strings.TrimPrefix(webPath, "/"))
}

// Exists reports whether the referenced file is present on disk.
func (s *Store) Exists(webPath string) bool {
	_, err := os.Stat(s.Resolve(webPath))
	return err == nil
}

// ReadFile returns the bytes of a stored file.
func (s *Store) ReadFile(webPath string) ([]byte, error) {
	return os.ReadFile(s.Resolve(webPath))
}

// Remove deletes a stored file. A file already gone is not an error.
func (s *Store) Remove(webPath string) error {
	err := os.Remove(s.Resolve(webPath))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// CleanupOrphans deletes uploads older than maxAge that isReferenced reports
// as unused. A reference-check failure keeps the file.
func (s *Store) CleanupOrphans(maxAge time.Duration, isReferenced func(filename string) (bool, error)) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		referenced, err := isReferenced(entry.Name())
		if err != nil {
			s.logger.Warn("reference check failed, keeping file",
				zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		if referenced {
			continue
		}

		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			s.logger.Warn("failed to remove orphaned upload",
				zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		s.logger.Info("removed orphaned upload", zap.String("file", entry.Name()))
		removed++
	}

	return removed, nil
}

// DirSize returns the total size in bytes of the uploads directory.
func (s *Store) DirSize() (int64, error) {
	var size int64
	err := filepath.Walk(s.dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	return size, err
}
