package qr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"time"

	svg "github.com/ajstarks/svgo"
	"github.com/signintech/gopdf"
)

// unit is the side of one module in SVG user space.
const unit = 10

// Image renders o into an image of o.Size pixels.
func Image(o Options) (image.Image, error) {
	if err := o.Normalize(); err != nil {
		return nil, err
	}
	q, err := o.encoder()
	if err != nil {
		return nil, err
	}
	return q.Image(o.Size), nil
}

// PNG renders o as PNG bytes. Styles only apply to SVG output and its
// rasterized download.
func PNG(o Options) ([]byte, error) {
	if err := o.Normalize(); err != nil {
		return nil, err
	}
	q, err := o.encoder()
	if err != nil {
		return nil, err
	}
	return q.PNG(o.Size)
}

// SVG renders o as a standalone SVG document, including the quiet zone.
func SVG(o Options) ([]byte, error) {
	if err := o.Normalize(); err != nil {
		return nil, err
	}
	q, err := o.encoder()
	if err != nil {
		return nil, err
	}
	bitmap := q.Bitmap()
	n := len(bitmap)
	if n == 0 {
		return nil, fmt.Errorf("empty qr bitmap")
	}
	view := n * unit

	var b bytes.Buffer
	canvas := svg.New(&b)
	canvas.Startview(o.Size, o.Size, 0, 0, view, view)

	bg := HexColor(o.Background)
	switch {
	case o.Style == StyleGradient:
		canvas.Def()
		canvas.LinearGradient("bg", 0, 0, 100, 0, []svg.Offcolor{
			{Offset: 0, Color: "#FCE7F3", Opacity: 1},
			{Offset: 100, Color: "#F3E8FF", Opacity: 1},
		})
		canvas.DefEnd()
		canvas.Rect(0, 0, view, view, `fill="url(#bg)"`)
	case o.Background.A == 0:
	case o.Style == StyleRounded:
		canvas.Roundrect(0, 0, view, view, 4*unit, 4*unit, fmt.Sprintf(`fill="%s"`, bg))
	default:
		canvas.Rect(0, 0, view, view, fmt.Sprintf(`fill="%s"`, bg))
	}

	fg := HexColor(o.Foreground)
	group := fmt.Sprintf(`fill="%s"`, fg)
	if o.Foreground.A < 0xff {
		group += fmt.Sprintf(` fill-opacity="%.2f"`, float64(o.Foreground.A)/255)
	}
	if o.Style == StyleElegant {
		group += fmt.Sprintf(` stroke="%s" stroke-width="1"`, fg)
	}
	canvas.Group(group)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			if !bitmap[y][x] {
				continue
			}
			px, py := x*unit, y*unit
			switch o.Style {
			case StyleDots:
				canvas.Circle(px+unit/2, py+unit/2, unit/2-1)
			case StyleRounded:
				canvas.Roundrect(px, py, unit, unit, 3, 3)
			case StyleElegant:
				canvas.Roundrect(px+1, py+1, unit-2, unit-2, 5, 5)
			default:
				canvas.Rect(px, py, unit, unit)
			}
		}
	}
	canvas.Gend()
	canvas.End()
	return b.Bytes(), nil
}

// PDF renders o onto a single square page of o.Size points.
func PDF(o Options) ([]byte, error) {
	img, err := Image(o)
	if err != nil {
		return nil, err
	}
	size := float64(img.Bounds().Dx())

	pdf := gopdf.GoPdf{}
	rect := gopdf.Rect{W: size, H: size}
	pdf.Start(gopdf.Config{Unit: gopdf.UnitPT, PageSize: rect})
	pdf.AddPage()
	if err := pdf.ImageFrom(img, 0, 0, &rect); err != nil {
		return nil, err
	}
	var b bytes.Buffer
	if err := pdf.Write(&b); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// Download renders the styled SVG and rasterizes it onto a canvas filled
// with the background color, returning PNG bytes.
func Download(o Options) ([]byte, error) {
	doc, err := SVG(o)
	if err != nil {
		return nil, err
	}
	img, err := Rasterize(doc, o.Size, o.Background)
	if err != nil {
		return nil, err
	}
	var b bytes.Buffer
	if err := png.Encode(&b, img); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// DownloadName is the attachment name for a download made at t.
func DownloadName(t time.Time) string {
	return fmt.Sprintf("qrcode-%d.png", t.UnixMilli())
}
