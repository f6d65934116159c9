package qr

import (
	"bytes"
	"image/color"

	"github.com/fogleman/gg"
)

const (
	cardPadding = 24
	cardCaption = 56
)

// Card renders a printable badge: the QR code framed by a border with a
// title and subtitle underneath.
func Card(o Options, title, subtitle string) ([]byte, error) {
	img, err := Image(o)
	if err != nil {
		return nil, err
	}
	qrSize := img.Bounds().Dx()
	w := qrSize + 2*cardPadding
	h := qrSize + 2*cardPadding + cardCaption

	bg := o.Background
	if bg.A == 0 {
		bg = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	}
	dc := gg.NewContext(w, h)
	dc.SetColor(bg)
	dc.Clear()
	dc.DrawImage(img, cardPadding, cardPadding)

	dc.SetColor(o.Foreground)
	dc.SetLineWidth(2)
	dc.DrawRoundedRectangle(1, 1, float64(w-2), float64(h-2), 12)
	dc.Stroke()

	cx := float64(w) / 2
	base := float64(cardPadding + qrSize + cardPadding/2)
	if title != "" {
		dc.DrawStringAnchored(title, cx, base+12, 0.5, 0.5)
	}
	if subtitle != "" {
		dc.DrawStringAnchored(subtitle, cx, base+32, 0.5, 0.5)
	}

	var b bytes.Buffer
	if err := dc.EncodePNG(&b); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
