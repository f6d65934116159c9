package web

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/yuzeguitarist/qrcard/internal/qr"
	"github.com/yuzeguitarist/qrcard/internal/record"
)

var recordFields = []string{"name", "id", "info", "photoUrl"}

// hasRecord reports whether the query describes a record rather than text.
func hasRecord(q url.Values) bool {
	for _, k := range recordFields {
		if _, ok := q[k]; ok {
			return true
		}
	}
	return false
}

func recordFromValues(q url.Values) record.Record {
	return record.Record{
		Name:     q.Get("name"),
		ID:       q.Get("id"),
		Info:     q.Get("info"),
		PhotoURL: q.Get("photoUrl"),
	}
}

// qrRequest is a parsed render request.
type qrRequest struct {
	Options qr.Options
	Record  *record.Record
}

// parseQR reads render options from the query string. A record is validated
// and turned into its detail link; otherwise "text" is encoded as is.
func (s *Server) parseQR(r *http.Request) (*qrRequest, error) {
	q := r.URL.Query()
	def := s.Config.QR
	out := &qrRequest{}

	if hasRecord(q) {
		rec := recordFromValues(q)
		if err := rec.Validate(); err != nil {
			return nil, err
		}
		link, err := rec.Link(s.baseURL(r))
		if err != nil {
			return nil, err
		}
		out.Record = &rec
		out.Options.Content = link
	} else {
		out.Options.Content = q.Get("text")
		if strings.TrimSpace(out.Options.Content) == "" {
			return nil, qr.ErrEmptyContent
		}
	}

	size := def.Size
	if v := q.Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.New("invalid size")
		}
		size = n
	}
	out.Options.Size = size

	level, err := qr.ParseLevel(firstNonEmpty(q.Get("level"), def.Level))
	if err != nil {
		return nil, err
	}
	out.Options.Level = level

	style, err := qr.ParseStyle(firstNonEmpty(q.Get("style"), def.Style))
	if err != nil {
		return nil, err
	}
	out.Options.Style = style

	if out.Options.Foreground, err = qr.ParseForeground(firstNonEmpty(q.Get("fg"), def.Foreground, "#000000")); err != nil {
		return nil, err
	}
	if out.Options.Background, err = qr.ParseHexColor(firstNonEmpty(q.Get("bg"), def.Background, "#FFFFFF")); err != nil {
		return nil, err
	}
	if err := out.Options.Normalize(); err != nil {
		return nil, err
	}
	return out, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
