// Package storage saves submission files behind opaque URLs under a fixed prefix.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"freelancehub/pkg/config"
	"freelancehub/pkg/metrics"
)

var (
	ErrNotFound   = errors.New("file not found")
	ErrInvalidURL = errors.New("url is outside the uploads prefix")
	ErrTooLarge   = errors.New("file exceeds the upload size limit")
)

// Storage is the file collaborator used by contract submissions.
type Storage interface {
	Save(ctx context.Context, name, mimetype string, r io.Reader) (string, error)
	Open(ctx context.Context, url string) (io.ReadCloser, error)
	Delete(ctx context.Context, url string) error
}

type FileStore struct {
	fs       afero.Fs
	prefix   string
	maxBytes int64
	now      func() time.Time
	logger   *zap.Logger
}

var _ Storage = (*FileStore)(nil)

// New wraps fs; maxBytes <= 0 disables the size check.
func New(fs afero.Fs, prefix string, maxBytes int64, logger *zap.Logger) *FileStore {
	return &FileStore{
		fs:       fs,
		prefix:   "/" + strings.Trim(prefix, "/"),
		maxBytes: maxBytes,
		now:      time.Now,
		logger:   logger,
	}
}

// NewFromConfig builds a disk store rooted at cfg.Root, or an in-memory one.
func NewFromConfig(cfg config.StorageConfig, logger *zap.Logger) (*FileStore, error) {
	var fs afero.Fs
	switch cfg.Driver {
	case "memory":
		fs = afero.NewMemMapFs()
	case "disk", "":
		osFs := afero.NewOsFs()
		if err := osFs.MkdirAll(cfg.Root, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage root %s: %w", cfg.Root, err)
		}
		fs = afero.NewBasePathFs(osFs, cfg.Root)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	logger.Info("File storage ready",
		zap.String("driver", cfg.Driver),
		zap.String("root", cfg.Root),
		zap.String("url_prefix", cfg.URLPrefix),
	)
	return New(fs, cfg.URLPrefix, cfg.MaxUploadBytes, logger), nil
}

// Save stores r as <prefix>/<yyyy>/<mm>/<uuid><ext> and returns that url.
func (s *FileStore) Save(ctx context.Context, name, mimetype string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	now := s.now().UTC()
	dir := path.Join(now.Format("2006"), now.Format("01"))
	rel := path.Join(dir, uuid.NewString()+strings.ToLower(filepath.Ext(name)))

	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	f, err := s.fs.Create(rel)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", rel, err)
	}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		_ = s.fs.Remove(rel)
		return "", fmt.Errorf("failed to write %s: %w", name, copyErr)
	case closeErr != nil:
		_ = s.fs.Remove(rel)
		return "", fmt.Errorf("failed to close %s: %w", name, closeErr)
	case s.maxBytes > 0 && n > s.maxBytes:
		_ = s.fs.Remove(rel)
		return "", fmt.Errorf("%w: %s", ErrTooLarge, name)
	}

	metrics.AddUploadedBytes(n)
	s.logger.Debug("File saved",
		zap.String("name", name),
		zap.String("mimetype", mimetype),
		zap.String("path", rel),
		zap.Int64("size", n),
	)
	return s.prefix + "/" + rel, nil
}

func (s *FileStore) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rel, err := s.resolve(url)
	if err != nil {
		return nil, err
	}
	f, err := s.fs.Open(rel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
		}
		return nil, err
	}
	return f, nil
}

func (s *FileStore) Delete(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rel, err := s.resolve(url)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(rel); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, url)
		}
		return err
	}
	return nil
}

// resolve maps a url back to a path relative to the fs root.
func (s *FileStore) resolve(url string) (string, error) {
	if !strings.HasPrefix(url, s.prefix+"/") {
		return "", ErrInvalidURL
	}
	rel := strings.TrimPrefix(url, s.prefix+"/")
	if rel == "" || path.Clean(rel) != rel || strings.HasPrefix(rel, "..") {
		return "", ErrInvalidURL
	}
	return rel, nil
}
