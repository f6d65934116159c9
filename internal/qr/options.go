// Package qr renders QR codes in the formats served by qrcard and decodes
// them back from images.
package qr

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	DefaultSize = 256
	MinSize     = 64
	MaxSize     = 2048
)

var (
	ErrEmptyContent = errors.New("qr content is empty")
	ErrTooLong      = errors.New("qr content too long to encode")
	ErrBadColor     = errors.New("invalid color")
	ErrBadLevel     = errors.New("invalid error correction level")
	ErrBadStyle     = errors.New("invalid style")
)

// Level is the error correction level as the user picks it.
type Level string

const (
	LevelL Level = "L"
	LevelM Level = "M"
	LevelQ Level = "Q"
	LevelH Level = "H"
)

// ParseLevel accepts L, M, Q or H in any case. Empty input yields M.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return LevelM, nil
	case "L":
		return LevelL, nil
	case "M":
		return LevelM, nil
	case "Q":
		return LevelQ, nil
	case "H":
		return LevelH, nil
	}
	return "", fmt.Errorf("%w: %q", ErrBadLevel, s)
}

// skip2 only knows four recovery levels named by strength, so Q and H shift
// up one name.
func (l Level) recovery() qrcode.RecoveryLevel {
	switch l {
	case LevelL:
		return qrcode.Low
	case LevelQ:
		return qrcode.High
	case LevelH:
		return qrcode.Highest
	default:
		return qrcode.Medium
	}
}

type Style string

const (
	StyleDefault  Style = "default"
	StyleRounded  Style = "rounded"
	StyleDots     Style = "dots"
	StyleElegant  Style = "elegant"
	StyleGradient Style = "gradient"
)

type StyleInfo struct {
	ID          Style  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func Styles() []StyleInfo {
	return []StyleInfo{
		{StyleDefault, "Standard", "Plain square modules"},
		{StyleRounded, "Rounded", "Rounded frame and module corners"},
		{StyleDots, "Dots", "Circular modules"},
		{StyleElegant, "Elegant", "Soft corners with a thin stroke"},
		{StyleGradient, "Gradient", "Pink to purple background gradient"},
	}
}

func ParseStyle(s string) (Style, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return StyleDefault, nil
	}
	for _, info := range Styles() {
		if string(info.ID) == s {
			return info.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrBadStyle, s)
}

type Preset struct {
	Name       string `json:"name"`
	Background string `json:"bg"`
	Foreground string `json:"fg"`
}

func Presets() []Preset {
	return []Preset{
		{"Classic", "#FFFFFF", "#000000"},
		{"Red", "#FFFFFF", "#FF0000"},
		{"Blue", "#FFFFFF", "#0000FF"},
		{"Indigo", "#FFFFFF", "#4F46E5"},
		{"Purple", "#FFFFFF", "#7C3AED"},
		{"Inverse", "#000000", "#FFFFFF"},
		{"Pink", "#FDF2F8", "#DB2777"},
		{"Emerald", "#ECFDF5", "#059669"},
	}
}

// ParseHexColor parses #RGB, #RRGGBB or the keyword "transparent".
func ParseHexColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "transparent") {
		return color.RGBA{}, nil
	}
	h := strings.TrimPrefix(s, "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrBadColor, s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrBadColor, s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// ParseForeground is ParseHexColor for module colors, which cannot be
// transparent.
func ParseForeground(s string) (color.RGBA, error) {
	c, err := ParseHexColor(s)
	if err != nil {
		return c, err
	}
	if c.A == 0 {
		return c, fmt.Errorf("%w: foreground cannot be transparent", ErrBadColor)
	}
	return c, nil
}

// HexColor formats c as #RRGGBB, or "transparent" when fully transparent.
func HexColor(c color.RGBA) string {
	if c.A == 0 {
		return "transparent"
	}
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

type Options struct {
	Content    string
	Size       int
	Level      Level
	Foreground color.RGBA
	Background color.RGBA
	Style      Style
}

// DefaultOptions is black on white, 256px, level M.
func DefaultOptions(content string) Options {
	return Options{
		Content:    content,
		Size:       DefaultSize,
		Level:      LevelM,
		Foreground: color.RGBA{A: 0xff},
		Background: color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
		Style:      StyleDefault,
	}
}

// Normalize fills zero values and clamps the size. It fails only on empty
// content.
func (o *Options) Normalize() error {
	if strings.TrimSpace(o.Content) == "" {
		return ErrEmptyContent
	}
	switch {
	case o.Size == 0:
		o.Size = DefaultSize
	case o.Size < MinSize:
		o.Size = MinSize
	case o.Size > MaxSize:
		o.Size = MaxSize
	}
	if o.Level == "" {
		o.Level = LevelM
	}
	if o.Style == "" {
		o.Style = StyleDefault
	}
	if o.Foreground.A == 0 {
		o.Foreground = color.RGBA{A: 0xff}
	}
	return nil
}

func (o Options) encoder() (*qrcode.QRCode, error) {
	q, err := qrcode.New(o.Content, o.Level.recovery())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTooLong, err)
	}
	q.ForegroundColor = o.Foreground
	q.BackgroundColor = o.Background
	return q, nil
}
