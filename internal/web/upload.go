package web

import (
	"errors"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/yuzeguitarist/qrcard/internal/photo"
	"github.com/yuzeguitarist/qrcard/internal/qr"
	"github.com/yuzeguitarist/qrcard/internal/record"
	"github.com/yuzeguitarist/qrcard/internal/service"
)

// multipartOverhead is allowed on top of the file limit for headers and the
// other form fields.
const multipartOverhead = 1 << 20

func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) (int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.Config.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return http.StatusRequestEntityTooLarge, photo.ErrTooLarge
		}
		return http.StatusBadRequest, service.ErrFileAndIDRequired
	}
	return 0, nil
}

// apiUpload accepts a multipart "file" and "id" and answers with the public
// URL of the stored photo.
func (s *Server) apiUpload(w http.ResponseWriter, r *http.Request) {
	if status, err := s.parseUpload(w, r); err != nil {
		writeError(w, status, err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, service.ErrFileAndIDRequired.Error())
		return
	}
	defer file.Close()

	res, err := s.Photos.Upload(r.Context(), service.UploadInput{
		OwnerID:  r.FormValue("id"),
		Filename: header.Filename,
		IP:       clientIP(r),
		Body:     file,
	})
	switch {
	case err == nil:
	case errors.Is(err, service.ErrFileAndIDRequired):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, service.ErrNotImage):
		writeError(w, http.StatusUnsupportedMediaType, "file must be an image")
		return
	case errors.Is(err, photo.ErrTooLarge), errors.Is(err, photo.ErrTooManyPixels):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	case errors.Is(err, photo.ErrExists):
		writeError(w, http.StatusConflict, "upload already exists, try again")
		return
	default:
		s.Logger.Error("error uploading file", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "error uploading file")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"fileName": s.baseURL(r) + res.URLPath,
		"id":       res.ID,
		"size":     res.Size,
	})
}

// apiScan decodes a QR code from an uploaded image. When the code holds a
// record link the record is returned too.
func (s *Server) apiScan(w http.ResponseWriter, r *http.Request) {
	if status, err := s.parseUpload(w, r); err != nil {
		writeError(w, status, err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	text, err := qr.ScanReader(file)
	switch {
	case errors.Is(err, qr.ErrImageTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	out := map[string]any{"text": text}
	if strings.Contains(text, record.QueryKey+"=") {
		if rec, err := record.FromURL(text); err == nil {
			out["record"] = rec
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) servePhoto(w http.ResponseWriter, r *http.Request) {
	p, err := s.Store.Path(mux.Vars(r)["key"])
	s.serveFile(w, r, p, err)
}

func (s *Server) serveThumb(w http.ResponseWriter, r *http.Request) {
	p, err := s.Store.ThumbPath(mux.Vars(r)["key"])
	s.serveFile(w, r, p, err)
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, path string, err error) {
	if err != nil {
		http.NotFound(w, r)
		return
	}
	f, err := os.Open(path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil || st.IsDir() {
		http.NotFound(w, r)
		return
	}
	head := make([]byte, 512)
	n, _ := io.ReadFull(f, head)
	ctype := http.DetectContentType(head[:n])
	if !strings.HasPrefix(ctype, "image/") {
		http.NotFound(w, r)
		return
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		http.Error(w, "read failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("content-type", ctype)
	w.Header().Set("x-content-type-options", "nosniff")
	w.Header().Set("cache-control", "public, max-age=31536000, immutable")
	http.ServeContent(w, r, st.Name(), st.ModTime(), f)
}
