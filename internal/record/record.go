// Package record carries a user record through a URL query string so that a
// QR code can point at a detail page without any server-side storage.
package record

import (
	"encoding/json"
	"errors"
	"net/url"
	"strings"
)

// QueryKey is the query parameter holding the JSON payload.
const QueryKey = "data"

// DetailPath is the path of the page that renders a record.
const DetailPath = "/r"

var (
	ErrNameRequired = errors.New("name is required")
	ErrIDRequired   = errors.New("id is required")
	ErrNoData       = errors.New("data not found")
	ErrMalformed    = errors.New("failed to process data")
)

type Record struct {
	Name     string `json:"name"`
	ID       string `json:"id"`
	Info     string `json:"info,omitempty"`
	PhotoURL string `json:"photoUrl,omitempty"`
}

// Normalize trims surrounding whitespace from every field.
func (r *Record) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.ID = strings.TrimSpace(r.ID)
	r.Info = strings.TrimSpace(r.Info)
	r.PhotoURL = strings.TrimSpace(r.PhotoURL)
}

// Validate normalizes r and reports the first missing required field.
func (r *Record) Validate() error {
	r.Normalize()
	if r.Name == "" {
		return ErrNameRequired
	}
	if r.ID == "" {
		return ErrIDRequired
	}
	return nil
}

// Encode returns the JSON payload carried in the query string.
func (r Record) Encode() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r Record) Query() (url.Values, error) {
	payload, err := r.Encode()
	if err != nil {
		return nil, err
	}
	return url.Values{QueryKey: []string{payload}}, nil
}

// Link returns the absolute detail URL for r under base, e.g.
// https://qr.example.com/r?data=%7B%22name%22...
func (r Record) Link(base string) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	q, err := r.Query()
	if err != nil {
		return "", err
	}
	return strings.TrimRight(base, "/") + DetailPath + "?" + q.Encode(), nil
}

// FromQuery parses the record carried in values.
func FromQuery(values url.Values) (*Record, error) {
	raw := strings.TrimSpace(values.Get(QueryKey))
	if raw == "" {
		return nil, ErrNoData
	}
	return Decode(raw)
}

// Decode parses a payload. Payloads that were percent-encoded twice (some
// clients escape the JSON before building the query) are unescaped once more.
func Decode(raw string) (*Record, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "%7B") || strings.HasPrefix(raw, "%7b") {
		unescaped, err := url.QueryUnescape(raw)
		if err != nil {
			return nil, ErrMalformed
		}
		raw = unescaped
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, ErrMalformed
	}
	rec.Normalize()
	return &rec, nil
}

// FromURL extracts the record from a full detail link.
func FromURL(link string) (*Record, error) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return nil, ErrMalformed
	}
	return FromQuery(u.Query())
}
