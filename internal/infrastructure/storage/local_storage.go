package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"birdreel-server/internal/config"
	"birdreel-server/internal/domain/video"
)

var errLocalStorageDisabled = errors.New("local storage is not configured; set VIDEO_LOCAL_STORAGE_PATH to enable")

// LocalStorage stores video objects on the local filesystem. It exists for
// development and test environments and implements the same interface as
// the S3 backend, including ranged reads.
type LocalStorage struct {
	basePath string
	log      zerolog.Logger
	disabled bool
}

func NewLocalStorage(cfg *config.Config, log zerolog.Logger) (*LocalStorage, error) {
	logger := log.With().Str("component", "local-storage").Logger()

	basePath := strings.TrimSpace(cfg.LocalStoragePath)
	if basePath == "" {
		logger.Warn().Msg("VIDEO_LOCAL_STORAGE_PATH is not set; local storage will be disabled")
		return &LocalStorage{
			log:      logger,
			disabled: true,
		}, nil
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create local storage directory: %w", err)
	}

	storage := &LocalStorage{
		basePath: basePath,
		log:      logger,
	}

	logger.Info().Str("path", basePath).Msg("local storage initialized")
	return storage, nil
}

func (l *LocalStorage) ensureEnabled() error {
	if l.disabled {
		return errLocalStorageDisabled
	}
	return nil
}

// Upload writes body to a file under the storage root.
func (l *LocalStorage) Upload(ctx context.Context, key string, body io.Reader, contentType string, metadata map[string]string) error {
	if err := l.ensureEnabled(); err != nil {
		return err
	}

	fullPath := filepath.Join(l.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	written, err := io.Copy(file, body)
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	l.log.Debug().
		Str("key", key).
		Int64("bytes", written).
		Msg("file uploaded to local storage")
	return nil
}

// Fetch opens the file at key, optionally seeking to byteRange.
func (l *LocalStorage) Fetch(ctx context.Context, key string, byteRange *video.ByteRange) (*video.Object, error) {
	if err := l.ensureEnabled(); err != nil {
		return nil, err
	}

	fullPath := filepath.Join(l.basePath, filepath.FromSlash(key))
	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", key)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	total := info.Size()

	obj := &video.Object{
		Body:        file,
		Size:        total,
		TotalSize:   total,
		ContentType: "video/mp4",
	}
	if byteRange == nil {
		return obj, nil
	}

	start := byteRange.Start
	end := byteRange.End
	if end < 0 || end >= total {
		end = total - 1
	}
	if start < 0 || start >= total || start > end {
		file.Close()
		return nil, fmt.Errorf("range not satisfiable: start=%d total=%d", start, total)
	}
	if _, err := file.Seek(start, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to seek: %w", err)
	}

	length := end - start + 1
	obj.Body = &limitedFile{file: file, reader: io.LimitReader(file, length)}
	obj.Size = length
	obj.Partial = true
	return obj, nil
}

// Health checks that the storage directory is writable.
func (l *LocalStorage) Health(ctx context.Context) error {
	if l.disabled {
		return nil
	}

	testFile := filepath.Join(l.basePath, ".health_check")
	if err := os.WriteFile(testFile, []byte("ok"), 0644); err != nil {
		return fmt.Errorf("storage directory not writable: %w", err)
	}
	_ = os.Remove(testFile)
	return nil
}

// limitedFile wraps a seeked file with a byte limit while keeping Close
// on the underlying handle.
type limitedFile struct {
	file   *os.File
	reader io.Reader
}

func (f *limitedFile) Read(p []byte) (int, error) {
	return f.reader.Read(p)
}

func (f *limitedFile) Close() error {
	return f.file.Close()
}
