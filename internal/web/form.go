package web

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/yuzeguitarist/qrcard/internal/app"
	"github.com/yuzeguitarist/qrcard/internal/qr"
	"github.com/yuzeguitarist/qrcard/internal/record"
)

const (
	modeText   = "text"
	modeRecord = "record"
	formKey    = "form"
)

// FormState is the generator form. It lives in the session cookie so the
// page survives a reload; records are never stored server side.
type FormState struct {
	Mode     string `json:"mode"`
	Text     string `json:"text,omitempty"`
	Name     string `json:"name,omitempty"`
	ID       string `json:"id,omitempty"`
	Info     string `json:"info,omitempty"`
	PhotoURL string `json:"photoUrl,omitempty"`
	Size     int    `json:"size"`
	Level    string `json:"level"`
	FG       string `json:"fg"`
	BG       string `json:"bg"`
	Style    string `json:"style"`
}

func (s *Server) defaultForm() FormState {
	d := s.Config.QR
	return FormState{
		Mode:  modeRecord,
		Size:  d.Size,
		Level: d.Level,
		FG:    d.Foreground,
		BG:    d.Background,
		Style: d.Style,
	}
}

func (f FormState) Record() record.Record {
	return record.Record{Name: f.Name, ID: f.ID, Info: f.Info, PhotoURL: f.PhotoURL}
}

// Ready reports whether a QR can be generated from the form.
func (f FormState) Ready() bool {
	if f.Mode == modeText {
		return strings.TrimSpace(f.Text) != ""
	}
	rec := f.Record()
	return rec.Validate() == nil
}

// Query is the render query string for the form.
func (f FormState) Query() url.Values {
	q := url.Values{}
	if f.Mode == modeText {
		q.Set("text", f.Text)
	} else {
		rec := f.Record()
		rec.Normalize()
		q.Set("name", rec.Name)
		q.Set("id", rec.ID)
		if rec.Info != "" {
			q.Set("info", rec.Info)
		}
		if rec.PhotoURL != "" {
			q.Set("photoUrl", rec.PhotoURL)
		}
	}
	q.Set("size", strconv.Itoa(f.Size))
	q.Set("level", f.Level)
	q.Set("fg", f.FG)
	q.Set("bg", f.BG)
	q.Set("style", f.Style)
	return q
}

func (s *Server) loadForm(r *http.Request) FormState {
	f := s.defaultForm()
	sess, _ := s.sessions.Get(r, app.SessionName)
	if raw, ok := sess.Values[formKey].(string); ok && raw != "" {
		_ = json.Unmarshal([]byte(raw), &f)
	}
	return f
}

func (s *Server) formFromRequest(r *http.Request) FormState {
	f := s.defaultForm()
	f.Mode = modeRecord
	if r.FormValue("mode") == modeText {
		f.Mode = modeText
	}
	f.Text = r.FormValue("text")
	f.Name = strings.TrimSpace(r.FormValue("name"))
	f.ID = strings.TrimSpace(r.FormValue("id"))
	f.Info = strings.TrimSpace(r.FormValue("info"))
	f.PhotoURL = strings.TrimSpace(r.FormValue("photoUrl"))
	if n, err := strconv.Atoi(r.FormValue("size")); err == nil {
		f.Size = n
	}
	if l, err := qr.ParseLevel(r.FormValue("level")); err == nil && r.FormValue("level") != "" {
		f.Level = string(l)
	}
	if st, err := qr.ParseStyle(r.FormValue("style")); err == nil && r.FormValue("style") != "" {
		f.Style = string(st)
	}
	if c, err := qr.ParseHexColor(r.FormValue("fg")); err == nil && c.A != 0 {
		f.FG = qr.HexColor(c)
	}
	if c, err := qr.ParseHexColor(r.FormValue("bg")); err == nil {
		f.BG = qr.HexColor(c)
	}
	if p := r.FormValue("preset"); p != "" {
		for _, preset := range qr.Presets() {
			if preset.Name == p {
				f.FG, f.BG = preset.Foreground, preset.Background
			}
		}
	}
	return f
}

func (s *Server) indexPage(w http.ResponseWriter, r *http.Request) {
	f := s.loadForm(r)
	data := map[string]any{
		"Form":    f,
		"Ready":   f.Ready(),
		"Styles":  qr.Styles(),
		"Presets": qr.Presets(),
		"Levels":  []qr.Level{qr.LevelL, qr.LevelM, qr.LevelQ, qr.LevelH},
		"Sizes":   []int{128, 192, 256, 320, 384, 512},
	}
	if f.Ready() {
		q := f.Query().Encode()
		data["PreviewURL"] = "/qr.svg?" + q
		data["DownloadURL"] = "/qr/download?" + q
		data["PDFURL"] = "/qr.pdf?" + q
		if f.Mode == modeRecord {
			data["CardURL"] = "/qr/card.png?" + q
			link, _ := f.Record().Link(s.baseURL(r))
			data["Link"] = link
		}
	}
	s.render(w, r, http.StatusOK, "index.html", data)
}

// indexSave stores the posted form in the session and redirects back.
func (s *Server) indexSave(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	f := s.formFromRequest(r)
	if r.FormValue("action") == "reset" {
		f = s.defaultForm()
	}
	b, _ := json.Marshal(f)
	sess, _ := s.sessions.Get(r, app.SessionName)
	sess.Values[formKey] = string(b)
	if err := sess.Save(r, w); err != nil {
		s.Logger.Warn("failed to save session", zap.Error(err))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
