// Package web serves the QR generator UI, the record detail page, the photo
// upload API and a small admin area.
package web

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"github.com/yuzeguitarist/qrcard/internal/app"
	"github.com/yuzeguitarist/qrcard/internal/audit"
	"github.com/yuzeguitarist/qrcard/internal/config"
	"github.com/yuzeguitarist/qrcard/internal/photo"
	"github.com/yuzeguitarist/qrcard/internal/service"
	"github.com/yuzeguitarist/qrcard/internal/state"
)

//go:embed templates/*.html static/*
var FS embed.FS

type Deps struct {
	Config *config.Config
	State  *state.State
	Photos *service.Photos
	Store  *photo.DiskStore
	Audit  *audit.Log
	Logger *zap.Logger
}

type Server struct {
	Deps
	sessions *sessions.CookieStore
	pages    *template.Template
	now      func() time.Time
}

func NewServer(d Deps) (*Server, error) {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	pages, err := template.New("").Funcs(template.FuncMap{
		"hex": func(s string) string { return strings.TrimPrefix(s, "#") },
	}).ParseFS(FS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	cs := sessions.NewCookieStore(d.State.SessionKey())
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   3600 * 8,
		HttpOnly: true,
		Secure:   d.Config.TLS.Enabled,
		SameSite: http.SameSiteLaxMode,
	}
	return &Server{Deps: d, sessions: cs, pages: pages, now: time.Now}, nil
}

// Router returns the full handler with CSRF protection on every
// state-changing request.
func (s *Server) Router() http.Handler {
	protect := csrf.Protect(s.State.CSRFKey(),
		csrf.Secure(s.Config.TLS.Enabled),
		csrf.Path("/"),
		csrf.ErrorHandler(http.HandlerFunc(s.csrfFailed)),
	)
	return protect(s.routes())
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.recoverer, s.requestLogger)

	static, _ := fs.Sub(FS, "static")
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServerFS(static)))
	r.HandleFunc("/healthz", s.healthz).Methods("GET")

	r.HandleFunc("/", s.indexPage).Methods("GET")
	r.HandleFunc("/", s.indexSave).Methods("POST")
	r.HandleFunc("/r", s.recordPage).Methods("GET")

	r.HandleFunc("/qr.png", s.qrPNG).Methods("GET")
	r.HandleFunc("/qr.svg", s.qrSVG).Methods("GET")
	r.HandleFunc("/qr.pdf", s.qrPDF).Methods("GET")
	r.HandleFunc("/qr/download", s.qrDownload).Methods("GET")
	r.HandleFunc("/qr/card.png", s.qrCard).Methods("GET")

	r.HandleFunc("/api/link", s.apiLink).Methods("POST")
	r.HandleFunc("/api/decode", s.apiDecode).Methods("GET")
	r.HandleFunc("/api/presets", s.apiPresets).Methods("GET")
	r.HandleFunc("/api/upload", s.apiUpload).Methods("POST")
	r.HandleFunc("/api/scan", s.apiScan).Methods("POST")

	r.HandleFunc("/uploads/thumbs/{key}", s.serveThumb).Methods("GET", "HEAD")
	r.HandleFunc("/uploads/{key}", s.servePhoto).Methods("GET", "HEAD")

	r.HandleFunc("/login", s.loginPage).Methods("GET")
	r.HandleFunc("/login", s.loginPost).Methods("POST")
	r.HandleFunc("/logout", s.logout).Methods("GET")

	admin := r.NewRoute().Subrouter()
	admin.Use(s.requireLogin)
	admin.HandleFunc("/admin", s.adminPage).Methods("GET")
	admin.HandleFunc("/api/admin/photos", s.apiAdminPhotos).Methods("GET")
	admin.HandleFunc("/api/admin/photos/{id}", s.apiAdminPhotoDelete).Methods("DELETE")

	r.NotFoundHandler = http.HandlerFunc(s.notFound)
	return r
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	s.renderError(w, r, http.StatusNotFound, "Page not found")
}

func (s *Server) csrfFailed(w http.ResponseWriter, r *http.Request) {
	s.Logger.Warn("csrf check failed", zap.String("path", r.URL.Path), zap.Error(csrf.FailureReason(r)))
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeError(w, http.StatusForbidden, "invalid csrf token")
		return
	}
	http.Error(w, "Forbidden - invalid CSRF token", http.StatusForbidden)
}

// render executes a page template. Every page gets the CSRF field and token.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["CSRFField"] = csrf.TemplateField(r)
	data["CSRFToken"] = csrf.Token(r)
	data["LoggedIn"] = s.loggedIn(r)
	w.Header().Set("content-type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.pages.ExecuteTemplate(w, name, data); err != nil {
		s.Logger.Error("render failed", zap.String("template", name), zap.Error(err))
	}
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.render(w, r, status, "error.html", map[string]any{"Status": status, "Message": msg})
}

// baseURL is the public origin for links embedded in QR codes.
func (s *Server) baseURL(r *http.Request) string {
	if s.Config.BaseURL != "" {
		return strings.TrimRight(s.Config.BaseURL, "/")
	}
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func (s *Server) audit(r *http.Request, user, action, object string) {
	s.Audit.Write(audit.Entry{Time: app.NowRFC3339(), IP: clientIP(r), User: user, Action: action, Object: object})
}

// ---- helpers ----

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func clientIP(r *http.Request) string {
	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	if host == "" {
		return r.RemoteAddr
	}
	return host
}
