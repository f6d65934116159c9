// Package photo keeps uploaded photos on local disk, makes thumbnails of
// them and indexes them in SQLite.
package photo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/yuzeguitarist/qrcard/internal/app"
)

var (
	ErrTooLarge = errors.New("upload too large")
	ErrNotFound = errors.New("photo not found")
	ErrExists   = errors.New("photo already exists")
)

// DiskStore is public object storage rooted at a directory. Objects are
// served back under /uploads/<key>.
type DiskStore struct {
	root    string
	maxSize int64
}

func NewDiskStore(root string, maxSize int64) (*DiskStore, error) {
	if err := os.MkdirAll(filepath.Join(root, app.ThumbsDir), 0o755); err != nil {
		return nil, err
	}
	return &DiskStore{root: root, maxSize: maxSize}, nil
}

func (s *DiskStore) Root() string { return s.root }

func (s *DiskStore) Path(key string) (string, error) { return safeJoin(s.root, key) }

func (s *DiskStore) ThumbPath(key string) (string, error) {
	return safeJoin(filepath.Join(s.root, app.ThumbsDir), thumbKey(key))
}

// Put streams r into key. Bodies over the size limit are discarded and
// reported as ErrTooLarge. An existing key is never overwritten; Put reports
// ErrExists instead.
func (s *DiskStore) Put(ctx context.Context, key string, r io.Reader) (int64, error) {
	dst, err := s.Path(key)
	if err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return 0, err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	limit := s.maxSize
	if limit <= 0 {
		limit = 1<<63 - 2
	}
	n, err := io.Copy(tmp, io.LimitReader(ctxReader{ctx, r}, limit+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", key, err)
	}
	if n > limit {
		return 0, ErrTooLarge
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return 0, err
	}
	if err := os.Link(tmpName, dst); err != nil {
		if errors.Is(err, os.ErrExist) {
			return 0, fmt.Errorf("%w: %s", ErrExists, key)
		}
		return 0, err
	}
	return n, nil
}

func (s *DiskStore) Open(key string) (*os.File, error) {
	p, err := s.Path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

// Delete removes the object and its thumbnail. Missing files are not an error.
func (s *DiskStore) Delete(key string) error {
	p, err := s.Path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	tp, err := s.ThumbPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(tp); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

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
