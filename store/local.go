package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Yulian302/lfusys-services-recordings/apperror"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// LocalBlobStore stores blobs as files under basePath. Writes go to a
// temporary sibling first and are renamed into place.
type LocalBlobStore struct {
	fs       afero.Fs
	basePath string
}

func NewLocalBlobStore(fsys afero.Fs, basePath string) (*LocalBlobStore, error) {
	if basePath == "" {
		basePath = "./uploads"
	}
	if err := fsys.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base path: %w", err)
	}
	return &LocalBlobStore{fs: fsys, basePath: filepath.Clean(basePath)}, nil
}

func (s *LocalBlobStore) Name() string {
	return "BlobStore[local:" + s.basePath + "]"
}

func (s *LocalBlobStore) IsReady(context.Context) error {
	_, err := s.fs.Stat(s.basePath)
	return err
}

func (s *LocalBlobStore) path(key string) (string, error) {
	p := filepath.Join(s.basePath, filepath.FromSlash(key))
	if p != s.basePath && !strings.HasPrefix(p, s.basePath+string(filepath.Separator)) {
		return "", apperror.Newf(apperror.KindInvalidArgument, "blob key %q escapes base path", key)
	}
	return p, nil
}

func (s *LocalBlobStore) Put(ctx context.Context, key string, r io.Reader, _ int64) error {
	finalPath, err := s.path(key)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath := finalPath + ".tmp." + uuid.NewString()
	tmp, err := s.fs.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, ctxReader{ctx: ctx, r: r}); err != nil {
		tmp.Close()
		s.fs.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		s.fs.Remove(tmpPath)
		return fmt.Errorf("failed to sync %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmpPath)
		return fmt.Errorf("failed to close %s: %w", key, err)
	}

	if err := s.fs.Rename(tmpPath, finalPath); err != nil {
		s.fs.Remove(tmpPath)
		return fmt.Errorf("failed to move %s into place: %w", key, err)
	}
	return nil
}

func (s *LocalBlobStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := s.fs.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperror.WithCause(apperror.ErrBlobNotFound, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", key, err)
	}
	return f, nil
}

func (s *LocalBlobStore) Stat(_ context.Context, key string) (int64, error) {
	p, err := s.path(key)
	if err != nil {
		return 0, err
	}
	info, err := s.fs.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, apperror.WithCause(apperror.ErrBlobNotFound, err)
	}
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (s *LocalBlobStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *LocalBlobStore) DeletePrefix(ctx context.Context, prefix string) error {
	if prefix == "" {
		return fmt.Errorf("prefix cannot be empty")
	}

	if strings.HasSuffix(prefix, "/") {
		dir, err := s.path(prefix)
		if err != nil {
			return err
		}
		return s.fs.RemoveAll(dir)
	}

	var keys []string
	err := afero.Walk(s.fs, s.basePath, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.basePath, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", prefix, err)
	}

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// ctxReader stops a long copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
