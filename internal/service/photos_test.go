package service

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/yuzeguitarist/qrcard/internal/audit"
	"github.com/yuzeguitarist/qrcard/internal/photo"
)

func newPhotos(t *testing.T, maxSize int64) (*Photos, *photo.DiskStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := photo.NewDiskStore(filepath.Join(dir, "uploads"), maxSize)
	if err != nil {
		t.Fatal(err)
	}
	db, err := photo.OpenDB(filepath.Join(dir, "photos.db"), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	auditPath := filepath.Join(dir, "audit.log")
	p := NewPhotos(store, photo.NewRepository(db, zap.NewNop()), audit.New(auditPath), zap.NewNop())
	p.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return p, store, auditPath
}

func samplePNG(t *testing.T) []byte {
	t.Helper()
	var b bytes.Buffer
	if err := png.Encode(&b, image.NewGray(image.Rect(0, 0, 32, 32))); err != nil {
		t.Fatal(err)
	}
	return b.Bytes()
}

func TestUploadStoresIndexesAndAudits(t *testing.T) {
	p, store, auditPath := newPhotos(t, 1<<20)
	ctx := context.Background()

	res, err := p.Upload(ctx, UploadInput{OwnerID: "EMP-7", Filename: "me.png", IP: "10.0.0.1", Body: bytes.NewReader(samplePNG(t))})
	if err != nil {
		t.Fatal(err)
	}
	if res.Key != "EMP-7-1700000000000-me.png" || res.URLPath != "/uploads/EMP-7-1700000000000-me.png" {
		t.Fatalf("unexpected result %+v", res)
	}
	if _, err := os.Stat(filepath.Join(store.Root(), res.Key)); err != nil {
		t.Fatal(err)
	}
	tp, _ := store.ThumbPath(res.Key)
	if _, err := os.Stat(tp); err != nil {
		t.Fatalf("thumbnail missing: %v", err)
	}

	list, err := p.List(ctx, "", 0)
	if err != nil || len(list) != 1 || list[0].ContentType != "image/png" {
		t.Fatalf("list = %+v, %v", list, err)
	}

	b, err := os.ReadFile(auditPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"action":"photo.upload"`) {
		t.Fatalf("audit log: %s", b)
	}

	if err := p.Remove(ctx, res.ID, "admin", "10.0.0.2"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(store.Root(), res.Key)); !os.IsNotExist(err) {
		t.Fatal("file not removed")
	}
	if err := p.Remove(ctx, res.ID, "admin", ""); !errors.Is(err, photo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUploadKeyCollisionKeepsEarlierPhoto(t *testing.T) {
	p, store, _ := newPhotos(t, 1<<20)
	ctx := context.Background()
	img := samplePNG(t)

	first, err := p.Upload(ctx, UploadInput{OwnerID: "EMP 7", Filename: "me.png", Body: bytes.NewReader(img)})
	if err != nil {
		t.Fatal(err)
	}
	// Same millisecond, and "EMP_7" sanitizes to the same owner part.
	_, err = p.Upload(ctx, UploadInput{OwnerID: "EMP_7", Filename: "me.png", Body: bytes.NewReader(img)})
	if !errors.Is(err, photo.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	if _, err := os.Stat(filepath.Join(store.Root(), first.Key)); err != nil {
		t.Fatalf("first upload's file is gone: %v", err)
	}
	tp, _ := store.ThumbPath(first.Key)
	if _, err := os.Stat(tp); err != nil {
		t.Fatalf("first upload's thumbnail is gone: %v", err)
	}
	list, err := p.List(ctx, "", 0)
	if err != nil || len(list) != 1 || list[0].ID != first.ID {
		t.Fatalf("list = %+v, %v", list, err)
	}
}

func TestUploadRejectsHugeImage(t *testing.T) {
	p, store, _ := newPhotos(t, 1<<20)
	ctx := context.Background()

	var b bytes.Buffer
	b.WriteString("\x89PNG\r\n\x1a\n")
	chunk := []byte("IHDR")
	chunk = binary.BigEndian.AppendUint32(chunk, 12000)
	chunk = binary.BigEndian.AppendUint32(chunk, 12000)
	chunk = append(chunk, 8, 0, 0, 0, 0)
	b.Write(binary.BigEndian.AppendUint32(nil, 13))
	b.Write(chunk)
	b.Write(binary.BigEndian.AppendUint32(nil, crc32.ChecksumIEEE(chunk)))

	_, err := p.Upload(ctx, UploadInput{OwnerID: "1", Filename: "big.png", Body: &b})
	if !errors.Is(err, photo.ErrTooManyPixels) {
		t.Fatalf("expected ErrTooManyPixels, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(store.Root(), "1-1700000000000-big.png")); !os.IsNotExist(err) {
		t.Fatalf("rejected upload left on disk: %v", err)
	}
	list, _ := p.List(ctx, "", 0)
	if len(list) != 0 {
		t.Fatalf("rejected upload was indexed: %+v", list)
	}
}

func TestUploadValidation(t *testing.T) {
	p, _, _ := newPhotos(t, 1<<20)
	ctx := context.Background()
	img := samplePNG(t)

	cases := []struct {
		name string
		in   UploadInput
		want error
	}{
		{"no id", UploadInput{Filename: "a.png", Body: bytes.NewReader(img)}, ErrFileAndIDRequired},
		{"blank id", UploadInput{OwnerID: "  ", Filename: "a.png", Body: bytes.NewReader(img)}, ErrFileAndIDRequired},
		{"no file", UploadInput{OwnerID: "1"}, ErrFileAndIDRequired},
		{"empty file", UploadInput{OwnerID: "1", Filename: "a.png", Body: bytes.NewReader(nil)}, ErrFileAndIDRequired},
		{"text file", UploadInput{OwnerID: "1", Filename: "a.txt", Body: strings.NewReader("hello there")}, ErrNotImage},
	}
	for _, c := range cases {
		if _, err := p.Upload(ctx, c.in); !errors.Is(err, c.want) {
			t.Errorf("%s: got %v, want %v", c.name, err, c.want)
		}
	}
}

func TestUploadTooLarge(t *testing.T) {
	p, _, _ := newPhotos(t, 16)
	_, err := p.Upload(context.Background(), UploadInput{OwnerID: "1", Filename: "a.png", Body: bytes.NewReader(samplePNG(t))})
	if !errors.Is(err, photo.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	list, _ := p.List(context.Background(), "", 0)
	if len(list) != 0 {
		t.Fatalf("oversized upload was indexed: %+v", list)
	}
}
