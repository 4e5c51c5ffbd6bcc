package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/desertthunder/mdx/internal/shared"
)

// LocalStore keeps blobs as files in a single directory.
type LocalStore struct {
	dir string
}

// NewLocalStore creates the directory if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: storage dir is required", shared.ErrInvalidConfig)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Name() string { return "local" }

// Put writes to a temporary file and renames it over name.
func (s *LocalStore) Put(ctx context.Context, name string, r io.Reader, _ int64) error {
	name, err := CleanName(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return shared.StorageError("create temp file", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, ctxReader{ctx: ctx, r: r}); err != nil {
		tmp.Close()
		return shared.StorageError("write blob", err)
	}
	if err := tmp.Close(); err != nil {
		return shared.StorageError("close blob", err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return shared.StorageError("rename blob", err)
	}
	return nil
}

func (s *LocalStore) Open(_ context.Context, name string) (io.ReadCloser, Info, error) {
	name, err := CleanName(name)
	if err != nil {
		return nil, Info{}, err
	}

	f, err := os.Open(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, Info{}, fmt.Errorf("file %s: %w", name, shared.ErrNotFound)
	}
	if err != nil {
		return nil, Info{}, shared.StorageError("open blob", err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, Info{}, shared.StorageError("stat blob", err)
	}
	if stat.IsDir() {
		f.Close()
		return nil, Info{}, fmt.Errorf("file %s: %w", name, shared.ErrNotFound)
	}

	return f, Info{Name: name, Size: stat.Size(), ContentType: ContentType(name), ModTime: stat.ModTime()}, nil
}

func (s *LocalStore) Remove(_ context.Context, name string) error {
	name, err := CleanName(name)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return shared.StorageError("remove blob", err)
	}
	return nil
}

// ctxReader stops a copy once ctx is done.
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
