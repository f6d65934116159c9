package web

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"

	"github.com/yuzeguitarist/qrcard/internal/app"
	"github.com/yuzeguitarist/qrcard/internal/state"
)

// verifyTOTP accepts the current code and one step either side.
func verifyTOTP(secret, code string, now time.Time) bool {
	code = strings.TrimSpace(code)
	if code == "" || secret == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, now.UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

func (s *Server) loggedIn(r *http.Request) bool {
	sess, err := s.sessions.Get(r, app.SessionName)
	if err != nil {
		return false
	}
	v, ok := sess.Values["auth"].(bool)
	return ok && v
}

func (s *Server) requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.loggedIn(r) {
			if strings.HasPrefix(r.URL.Path, "/api/") {
				writeError(w, http.StatusUnauthorized, "login required")
				return
			}
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	s.renderLogin(w, r, http.StatusOK, "")
}

func (s *Server) renderLogin(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.render(w, r, status, "login.html", map[string]any{
		"TOTPEnabled": s.State.Admin.TOTPEnabled,
		"Error":       msg,
	})
}

func (s *Server) loginPost(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	u := strings.TrimSpace(r.FormValue("username"))

	if err := s.State.CheckLogin(u, r.FormValue("password")); err != nil {
		msg := "invalid credentials"
		if errors.Is(err, state.ErrAdminNotConfigured) {
			msg = err.Error()
		}
		s.audit(r, u, "login.fail", "")
		s.renderLogin(w, r, http.StatusUnauthorized, msg)
		return
	}
	if s.State.Admin.TOTPEnabled && !verifyTOTP(s.State.Admin.TOTPSecret, r.FormValue("totp"), s.now()) {
		s.audit(r, u, "login.fail", "totp")
		s.renderLogin(w, r, http.StatusUnauthorized, "invalid totp")
		return
	}

	sess, _ := s.sessions.Get(r, app.SessionName)
	sess.Values["auth"] = true
	sess.Values["user"] = u
	sess.Values["ts"] = s.now().Unix()
	if err := sess.Save(r, w); err != nil {
		s.Logger.Error("failed to save session", zap.Error(err))
		http.Error(w, "session error", http.StatusInternalServerError)
		return
	}
	s.audit(r, u, "login", "")
	http.Redirect(w, r, "/admin", http.StatusFound)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	sess, _ := s.sessions.Get(r, app.SessionName)
	delete(sess.Values, "auth")
	delete(sess.Values, "user")
	_ = sess.Save(r, w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *Server) sessionUser(r *http.Request) string {
	sess, _ := s.sessions.Get(r, app.SessionName)
	u, _ := sess.Values["user"].(string)
	return u
}
