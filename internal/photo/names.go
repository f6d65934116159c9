package photo

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrUnsafeName = errors.New("unsafe file name")
	ErrEmptyOwner = errors.New("owner id is empty")
)

// maxNameLen bounds the sanitized file name part of a key.
const maxNameLen = 100

// SanitizeFilename reduces a client supplied name to a single path element
// made of letters, digits, dots, dashes and underscores.
func SanitizeFilename(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsRune(name, '\x00') {
		return "", ErrUnsafeName
	}
	name = strings.ReplaceAll(name, "\\", "/")
	base := path.Base(name)
	if base == "." || base == ".." || base == "/" || base == "" {
		return "", ErrUnsafeName
	}
	out := []rune(clean(base))
	if len(out) > maxNameLen {
		out = out[len(out)-maxNameLen:]
	}
	s := strings.TrimLeft(string(out), ".")
	if s == "" {
		return "", ErrUnsafeName
	}
	return s, nil
}

func clean(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// ObjectKey names an upload as <owner>-<unix millis>-<file name>.
func ObjectKey(ownerID, filename string, t time.Time) (string, error) {
	owner := strings.Trim(clean(strings.TrimSpace(ownerID)), ".")
	if owner == "" {
		return "", ErrEmptyOwner
	}
	name, err := SanitizeFilename(filename)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d-%s", owner, t.UnixMilli(), name), nil
}

// safeJoin resolves key under root and refuses anything that is not a plain
// file name.
func safeJoin(root, key string) (string, error) {
	if key == "" || strings.HasPrefix(key, ".") || strings.ContainsAny(key, "/\\\x00") {
		return "", ErrUnsafeName
	}
	root = filepath.Clean(root)
	joined := filepath.Join(root, key)
	if filepath.Dir(joined) != root {
		return "", ErrUnsafeName
	}
	return joined, nil
}
