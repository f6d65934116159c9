package photo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Upload struct {
	ID           string    `json:"id"`
	Key          string    `json:"key"`
	OwnerID      string    `json:"ownerId"`
	OriginalName string    `json:"originalName"`
	ContentType  string    `json:"contentType"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Repository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewRepository(db *sql.DB, logger *zap.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Create stores u, assigning an id when it has none.
func (r *Repository) Create(ctx context.Context, u *Upload) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO uploads (id, object_key, owner_id, original_name, content_type, size, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Key, u.OwnerID, u.OriginalName, u.ContentType, u.Size, u.CreatedAt.UnixMilli(),
	)
	if err != nil {
		r.logger.Error("failed to index upload", zap.Error(err), zap.String("key", u.Key))
		return fmt.Errorf("create upload: %w", err)
	}
	return nil
}

const selectUpload = `SELECT id, object_key, owner_id, original_name, content_type, size, created_at FROM uploads`

// List returns uploads newest first. An empty owner lists everything; limit
// <= 0 means no limit.
func (r *Repository) List(ctx context.Context, owner string, limit int) ([]Upload, error) {
	q := selectUpload
	var args []any
	if owner != "" {
		q += ` WHERE owner_id = ?`
		args = append(args, owner)
	}
	q += ` ORDER BY created_at DESC, id`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()

	out := []Upload{}
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id string) (*Upload, error) {
	u, err := scanUpload(r.db.QueryRowContext(ctx, selectUpload+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM uploads WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete upload: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUpload(s scanner) (*Upload, error) {
	var u Upload
	var created int64
	if err := s.Scan(&u.ID, &u.Key, &u.OwnerID, &u.OriginalName, &u.ContentType, &u.Size, &created); err != nil {
		return nil, err
	}
	u.CreatedAt = time.UnixMilli(created)
	return &u, nil
}
