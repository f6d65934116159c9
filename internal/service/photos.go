// Package service holds the operations shared by the web handlers and the
// CLI.
package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yuzeguitarist/qrcard/internal/audit"
	"github.com/yuzeguitarist/qrcard/internal/photo"
)

var (
	ErrFileAndIDRequired = errors.New("file and id are required")
	ErrNotImage          = errors.New("file is not an image")
)

// UploadsPrefix is the URL path under which stored photos are served.
const UploadsPrefix = "/uploads/"

type Store interface {
	Put(ctx context.Context, key string, r io.Reader) (int64, error)
	MakeThumb(key string) error
	Delete(key string) error
}

type Index interface {
	Create(ctx context.Context, u *photo.Upload) error
	List(ctx context.Context, owner string, limit int) ([]photo.Upload, error)
	Get(ctx context.Context, id string) (*photo.Upload, error)
	Delete(ctx context.Context, id string) error
}

type Photos struct {
	store  Store
	index  Index
	audit  *audit.Log
	logger *zap.Logger
	now    func() time.Time
}

func NewPhotos(store Store, index Index, auditLog *audit.Log, logger *zap.Logger) *Photos {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Photos{store: store, index: index, audit: auditLog, logger: logger, now: time.Now}
}

type UploadInput struct {
	OwnerID  string
	Filename string
	IP       string
	Body     io.Reader
}

type UploadResult struct {
	ID      string `json:"id"`
	Key     string `json:"key"`
	URLPath string `json:"path"`
	Size    int64  `json:"size"`
}

// URLPath is the public path of a stored object.
func URLPath(key string) string { return UploadsPrefix + url.PathEscape(key) }

// ThumbPath is the public path of an object's thumbnail.
func ThumbPath(key string) string { return UploadsPrefix + "thumbs/" + url.PathEscape(key) }

// Upload stores a photo under <owner>-<millis>-<name>, thumbnails it and
// indexes it. The content type is sniffed from the body.
func (p *Photos) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	owner := strings.TrimSpace(in.OwnerID)
	if owner == "" || in.Body == nil || strings.TrimSpace(in.Filename) == "" {
		return nil, ErrFileAndIDRequired
	}
	br := bufio.NewReaderSize(in.Body, 512)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(head) == 0 {
		return nil, ErrFileAndIDRequired
	}
	ctype := http.DetectContentType(head)
	if !strings.HasPrefix(ctype, "image/") {
		return nil, fmt.Errorf("%w: %s", ErrNotImage, ctype)
	}

	now := p.now()
	key, err := photo.ObjectKey(owner, in.Filename, now)
	if err != nil {
		return nil, ErrFileAndIDRequired
	}
	size, err := p.store.Put(ctx, key, br)
	if err != nil {
		return nil, err
	}
	// From here on the file at key belongs to this request.
	if err := p.store.MakeThumb(key); err != nil {
		if errors.Is(err, photo.ErrTooManyPixels) {
			_ = p.store.Delete(key)
			return nil, err
		}
		// Browsers may send formats we cannot decode; the photo itself is still served.
		p.logger.Warn("thumbnail failed", zap.String("key", key), zap.Error(err))
	}
	u := &photo.Upload{
		Key:          key,
		OwnerID:      owner,
		OriginalName: in.Filename,
		ContentType:  ctype,
		Size:         size,
		CreatedAt:    now,
	}
	if err := p.index.Create(ctx, u); err != nil {
		_ = p.store.Delete(key)
		return nil, err
	}
	p.audit.Write(audit.Entry{IP: in.IP, Action: "photo.upload", Object: key, Detail: fmt.Sprintf("owner=%s size=%d", owner, size)})
	p.logger.Info("photo uploaded", zap.String("key", key), zap.String("owner", owner), zap.Int64("size", size))
	return &UploadResult{ID: u.ID, Key: key, URLPath: URLPath(key), Size: size}, nil
}

func (p *Photos) List(ctx context.Context, owner string, limit int) ([]photo.Upload, error) {
	return p.index.List(ctx, owner, limit)
}

// Remove deletes the index row and the stored files.
func (p *Photos) Remove(ctx context.Context, id, actor, ip string) error {
	u, err := p.index.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := p.index.Delete(ctx, id); err != nil {
		return err
	}
	if err := p.store.Delete(u.Key); err != nil {
		p.logger.Warn("failed to remove photo files", zap.String("key", u.Key), zap.Error(err))
	}
	p.audit.Write(audit.Entry{IP: ip, User: actor, Action: "photo.delete", Object: u.Key})
	return nil
}
