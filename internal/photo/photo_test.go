package photo

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"photo.png":             "photo.png",
		"../../etc/passwd":      "passwd",
		`C:\Users\ann\foto.JPG`: "foto.JPG",
		"my photo (1).png":      "my_photo__1_.png",
		".hidden.png":           "hidden.png",
	}
	for in, want := range cases {
		got, err := SanitizeFilename(in)
		if err != nil || got != want {
			t.Errorf("SanitizeFilename(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	for _, bad := range []string{"", "  ", "..", "a\x00b"} {
		if _, err := SanitizeFilename(bad); err == nil {
			t.Errorf("SanitizeFilename(%q) should fail", bad)
		}
	}
}

func TestObjectKey(t *testing.T) {
	key, err := ObjectKey("EMP 7", "face.png", time.UnixMilli(1700000000000))
	if err != nil {
		t.Fatal(err)
	}
	if key != "EMP_7-1700000000000-face.png" {
		t.Fatalf("key = %q", key)
	}
	if _, err := ObjectKey("  ", "face.png", time.Now()); !errors.Is(err, ErrEmptyOwner) {
		t.Fatalf("expected ErrEmptyOwner, got %v", err)
	}
}

func TestSafeJoinRejectsTraversal(t *testing.T) {
	for _, key := range []string{"../x", "a/b", ".thumbs", "", `a\b`} {
		if _, err := safeJoin("/srv", key); err == nil {
			t.Errorf("safeJoin accepted %q", key)
		}
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0x80, A: 0xff})
		}
	}
	var b bytes.Buffer
	if err := png.Encode(&b, img); err != nil {
		t.Fatal(err)
	}
	return b.Bytes()
}

func TestDiskStorePutOpenDelete(t *testing.T) {
	s, err := NewDiskStore(t.TempDir(), 1<<20)
	if err != nil {
		t.Fatal(err)
	}
	body := pngBytes(t, 400, 300)
	n, err := s.Put(context.Background(), "a-1-x.png", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if n != int64(len(body)) {
		t.Fatalf("wrote %d of %d bytes", n, len(body))
	}
	if err := s.MakeThumb("a-1-x.png"); err != nil {
		t.Fatal(err)
	}
	tp, _ := s.ThumbPath("a-1-x.png")
	f, err := os.Open(tp)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := jpeg.DecodeConfig(f)
	f.Close()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != ThumbSize || cfg.Height != 150 {
		t.Fatalf("thumb is %dx%d", cfg.Width, cfg.Height)
	}

	rc, err := s.Open("a-1-x.png")
	if err != nil {
		t.Fatal(err)
	}
	rc.Close()

	if err := s.Delete("a-1-x.png"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Open("a-1-x.png"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := os.Stat(tp); !os.IsNotExist(err) {
		t.Fatalf("thumbnail still present: %v", err)
	}
}

func TestDiskStoreTooLarge(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDiskStore(dir, 10)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Put(context.Background(), "big.bin", strings.NewReader(strings.Repeat("x", 11))); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "big.bin")); !os.IsNotExist(err) {
		t.Fatal("oversized upload left on disk")
	}
	if _, err := s.Put(context.Background(), "ok.bin", strings.NewReader(strings.Repeat("x", 10))); err != nil {
		t.Fatalf("upload at the limit failed: %v", err)
	}
}

func TestDiskStorePutKeepsExistingKey(t *testing.T) {
	s, err := NewDiskStore(t.TempDir(), 1<<20)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err := s.Put(ctx, "a-1-x.png", strings.NewReader("first")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Put(ctx, "a-1-x.png", strings.NewReader("second")); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	p, _ := s.Path("a-1-x.png")
	b, err := os.ReadFile(p)
	if err != nil || string(b) != "first" {
		t.Fatalf("stored object = %q, %v", b, err)
	}
	entries, _ := os.ReadDir(s.Root())
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".upload-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestThumbPathPerObject(t *testing.T) {
	s, err := NewDiskStore(t.TempDir(), 1<<20)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := s.ThumbPath("a-1-x.png")
	b, _ := s.ThumbPath("a-1-x.jpg")
	if a == b {
		t.Fatalf("x.png and x.jpg share thumbnail %s", a)
	}
}

// pngHeader is a PNG signature and IHDR chunk, enough for DecodeConfig.
func pngHeader(w, h int) []byte {
	var b bytes.Buffer
	b.WriteString("\x89PNG\r\n\x1a\n")
	chunk := []byte("IHDR")
	chunk = binary.BigEndian.AppendUint32(chunk, uint32(w))
	chunk = binary.BigEndian.AppendUint32(chunk, uint32(h))
	chunk = append(chunk, 8, 0, 0, 0, 0)
	b.Write(binary.BigEndian.AppendUint32(nil, 13))
	b.Write(chunk)
	b.Write(binary.BigEndian.AppendUint32(nil, crc32.ChecksumIEEE(chunk)))
	return b.Bytes()
}

func TestMakeThumbRejectsHugeImage(t *testing.T) {
	s, err := NewDiskStore(t.TempDir(), 1<<20)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Put(context.Background(), "big.png", bytes.NewReader(pngHeader(12000, 12000))); err != nil {
		t.Fatal(err)
	}
	if err := s.MakeThumb("big.png"); !errors.Is(err, ErrTooManyPixels) {
		t.Fatalf("expected ErrTooManyPixels, got %v", err)
	}
	tp, _ := s.ThumbPath("big.png")
	if _, err := os.Stat(tp); !os.IsNotExist(err) {
		t.Fatalf("thumbnail written: %v", err)
	}
}

func TestRepository(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "photos.db"), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	repo := NewRepository(db, zap.NewNop())
	ctx := context.Background()

	first := &Upload{Key: "a-1-x.png", OwnerID: "a", OriginalName: "x.png", ContentType: "image/png", Size: 10, CreatedAt: time.UnixMilli(1000)}
	second := &Upload{Key: "b-2-y.png", OwnerID: "b", OriginalName: "y.png", ContentType: "image/png", Size: 20, CreatedAt: time.UnixMilli(2000)}
	for _, u := range []*Upload{first, second} {
		if err := repo.Create(ctx, u); err != nil {
			t.Fatal(err)
		}
	}
	if first.ID == "" {
		t.Fatal("id not assigned")
	}

	all, err := repo.List(ctx, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].Key != "b-2-y.png" {
		t.Fatalf("list order: %+v", all)
	}
	mine, err := repo.List(ctx, "a", 10)
	if err != nil || len(mine) != 1 || mine[0].Key != "a-1-x.png" {
		t.Fatalf("owner filter: %+v %v", mine, err)
	}

	got, err := repo.Get(ctx, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Size != 10 || !got.CreatedAt.Equal(time.UnixMilli(1000)) {
		t.Fatalf("got %+v", got)
	}

	if err := repo.Delete(ctx, first.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Get(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
}
