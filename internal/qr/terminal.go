package qr

import (
	"io"

	"github.com/mdp/qrterminal/v3"
)

// Terminal writes content as a half-block QR code suitable for a terminal.
func Terminal(w io.Writer, content string, level Level) error {
	if content == "" {
		return ErrEmptyContent
	}
	// qrterminal exposes L, M and H only.
	l := qrterminal.M
	switch level {
	case LevelL:
		l = qrterminal.L
	case LevelQ, LevelH:
		l = qrterminal.H
	}
	qrterminal.GenerateHalfBlock(content, l, w)
	return nil
}
