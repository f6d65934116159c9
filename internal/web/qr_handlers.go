package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/yuzeguitarist/qrcard/internal/qr"
	"github.com/yuzeguitarist/qrcard/internal/record"
)

type renderFunc func(qr.Options) ([]byte, error)

func (s *Server) serveQR(w http.ResponseWriter, r *http.Request, contentType string, render renderFunc) {
	req, err := s.parseQR(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	b, err := render(req.Options)
	if err != nil {
		s.qrFailed(w, err)
		return
	}
	w.Header().Set("content-type", contentType)
	w.Header().Set("cache-control", "no-store")
	_, _ = w.Write(b)
}

func (s *Server) qrFailed(w http.ResponseWriter, err error) {
	if errors.Is(err, qr.ErrTooLong) || errors.Is(err, qr.ErrEmptyContent) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.Logger.Error("qr render failed", zap.Error(err))
	http.Error(w, "render failed", http.StatusInternalServerError)
}

func (s *Server) qrPNG(w http.ResponseWriter, r *http.Request) { s.serveQR(w, r, "image/png", qr.PNG) }
func (s *Server) qrSVG(w http.ResponseWriter, r *http.Request) {
	s.serveQR(w, r, "image/svg+xml", qr.SVG)
}
func (s *Server) qrPDF(w http.ResponseWriter, r *http.Request) {
	s.serveQR(w, r, "application/pdf", qr.PDF)
}

// qrDownload rasterizes the styled SVG and sends it as an attachment.
func (s *Server) qrDownload(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseQR(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	b, err := qr.Download(req.Options)
	if err != nil {
		s.qrFailed(w, err)
		return
	}
	name := qr.DownloadName(s.now())
	w.Header().Set("content-type", "image/png")
	w.Header().Set("content-disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.Header().Set("content-length", strconv.Itoa(len(b)))
	_, _ = w.Write(b)
}

func (s *Server) qrCard(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseQR(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Record == nil {
		http.Error(w, "card requires name and id", http.StatusBadRequest)
		return
	}
	b, err := qr.Card(req.Options, req.Record.Name, "ID: "+req.Record.ID)
	if err != nil {
		s.qrFailed(w, err)
		return
	}
	w.Header().Set("content-type", "image/png")
	_, _ = w.Write(b)
}

func (s *Server) apiLink(w http.ResponseWriter, r *http.Request) {
	var rec record.Record
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	link, err := rec.Link(s.baseURL(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	payload, _ := rec.Encode()
	writeJSON(w, http.StatusOK, map[string]any{"link": link, "data": payload, "record": rec})
}

func (s *Server) apiDecode(w http.ResponseWriter, r *http.Request) {
	rec, err := record.FromQuery(r.URL.Query())
	if err != nil {
		writeError(w, decodeStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func decodeStatus(err error) int {
	if errors.Is(err, record.ErrNoData) {
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}

func (s *Server) apiPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"styles":  qr.Styles(),
		"presets": qr.Presets(),
		"levels":  []qr.Level{qr.LevelL, qr.LevelM, qr.LevelQ, qr.LevelH},
		"defaults": map[string]any{
			"size":  s.Config.QR.Size,
			"level": s.Config.QR.Level,
			"fg":    s.Config.QR.Foreground,
			"bg":    s.Config.QR.Background,
			"style": s.Config.QR.Style,
		},
	})
}

// recordPage renders the detail view of a record carried in ?data=.
func (s *Server) recordPage(w http.ResponseWriter, r *http.Request) {
	rec, err := record.FromQuery(r.URL.Query())
	if err != nil {
		s.renderError(w, r, decodeStatus(err), err.Error())
		return
	}
	s.render(w, r, http.StatusOK, "record.html", map[string]any{"Record": rec, "Title": rec.Name})
}
