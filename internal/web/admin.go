package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/yuzeguitarist/qrcard/internal/photo"
	"github.com/yuzeguitarist/qrcard/internal/service"
)

type photoView struct {
	photo.Upload
	URL   string `json:"url"`
	Thumb string `json:"thumb"`
}

func (s *Server) photoViews(r *http.Request) ([]photoView, error) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	uploads, err := s.Photos.List(r.Context(), r.URL.Query().Get("owner"), limit)
	if err != nil {
		return nil, err
	}
	out := make([]photoView, 0, len(uploads))
	for _, u := range uploads {
		out = append(out, photoView{Upload: u, URL: service.URLPath(u.Key), Thumb: service.ThumbPath(u.Key)})
	}
	return out, nil
}

func (s *Server) adminPage(w http.ResponseWriter, r *http.Request) {
	photos, err := s.photoViews(r)
	if err != nil {
		s.Logger.Error("list photos", zap.Error(err))
		s.renderError(w, r, http.StatusInternalServerError, "failed to list photos")
		return
	}
	s.render(w, r, http.StatusOK, "admin.html", map[string]any{
		"Photos": photos,
		"User":   s.sessionUser(r),
	})
}

func (s *Server) apiAdminPhotos(w http.ResponseWriter, r *http.Request) {
	photos, err := s.photoViews(r)
	if err != nil {
		s.Logger.Error("list photos", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list photos")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"photos": photos})
}

func (s *Server) apiAdminPhotoDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	err := s.Photos.Remove(r.Context(), id, s.sessionUser(r), clientIP(r))
	switch {
	case errors.Is(err, photo.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		s.Logger.Error("delete photo", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete photo")
	default:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}
