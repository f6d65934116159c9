package photo

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ThumbSize is the longest edge of a thumbnail in pixels.
const ThumbSize = 200

// MaxThumbPixels bounds width*height of an image before it is decoded.
const MaxThumbPixels = 40_000_000

var ErrTooManyPixels = errors.New("image dimensions too large")

// thumbKey keeps the full object key so a.png and a.jpg get distinct thumbnails.
func thumbKey(key string) string { return key + ".jpg" }

// Thumbnail scales img so its longest edge is at most limit pixels, flattened
// onto white.
func Thumbnail(img image.Image, limit int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > limit || h > limit {
		if w >= h {
			h = h * limit / w
			w = limit
		} else {
			w = w * limit / h
			h = limit
		}
	}
	w, h = max(w, 1), max(h, 1)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// MakeThumb decodes the stored object and writes its JPEG thumbnail.
func (s *DiskStore) MakeThumb(key string) error {
	src, err := s.Open(key)
	if err != nil {
		return err
	}
	defer src.Close()
	cfg, _, err := image.DecodeConfig(src)
	if err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxThumbPixels {
		return fmt.Errorf("%w: %dx%d", ErrTooManyPixels, cfg.Width, cfg.Height)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return err
	}
	img, _, err := image.Decode(src)
	if err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	dst, err := s.ThumbPath(key)
	if err != nil {
		return err
	}
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(f, Thumbnail(img, ThumbSize), &jpeg.Options{Quality: 80}); err != nil {
		f.Close()
		os.Remove(dst)
		return err
	}
	return f.Close()
}
