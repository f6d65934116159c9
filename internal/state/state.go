package state

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/yuzeguitarist/qrcard/internal/app"
)

var ErrAdminNotConfigured = errors.New("admin password not set (run: qrcard admin passwd)")

type Admin struct {
	Username       string `json:"username"`
	PasswordBcrypt string `json:"passwordBcrypt"` // bcrypt hash
	TOTPEnabled    bool   `json:"totpEnabled"`
	TOTPSecret     string `json:"totpSecret"` // base32
}

// Keys are generated once and reused across restarts so sessions survive.
type Keys struct {
	Session string `json:"session"` // hex
	CSRF    string `json:"csrf"`    // hex
}

type State struct {
	Version int   `json:"version"`
	Admin   Admin `json:"admin"`
	Keys    Keys  `json:"keys"`

	paths app.Paths
	mu    sync.Mutex
}

func Default() *State {
	return &State{
		Version: 1,
		Admin:   Admin{Username: "admin"},
	}
}

// LoadOrInit reads <dataDir>/state.json, creating it with fresh keys when missing.
func LoadOrInit(paths app.Paths) (*State, error) {
	if err := app.EnsureDir(paths.DataDir, 0700); err != nil {
		return nil, err
	}
	_ = app.EnsureDir(paths.Backups(), 0700)

	if _, err := os.Stat(paths.State()); errors.Is(err, os.ErrNotExist) {
		st := Default()
		st.paths = paths
		if err := st.ensureKeys(); err != nil {
			return nil, err
		}
		return st, st.SaveAtomic()
	}
	b, err := os.ReadFile(paths.State())
	if err != nil {
		return nil, err
	}
	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, err
	}
	st.paths = paths
	if st.Version == 0 {
		st.Version = 1
	}
	if st.Admin.Username == "" {
		st.Admin.Username = "admin"
	}
	if st.Keys.Session == "" || st.Keys.CSRF == "" {
		if err := st.ensureKeys(); err != nil {
			return nil, err
		}
		if err := st.SaveAtomic(); err != nil {
			return nil, err
		}
	}
	return &st, nil
}

func (s *State) ensureKeys() error {
	if s.Keys.Session == "" {
		k, err := app.RandToken(32)
		if err != nil {
			return err
		}
		s.Keys.Session = k
	}
	if s.Keys.CSRF == "" {
		k, err := app.RandToken(32)
		if err != nil {
			return err
		}
		s.Keys.CSRF = k
	}
	return nil
}

func (s *State) SaveAtomic() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	// backup
	if _, err := os.Stat(s.paths.State()); err == nil {
		backup := filepath.Join(s.paths.Backups(), app.StateFile+"."+app.NowRFC3339()+".bak")
		_ = os.WriteFile(backup, b, 0600)
	}
	return app.AtomicWriteFile(s.paths.State(), 0600, b)
}

func (s *State) SessionKey() []byte { return decodeKey(s.Keys.Session) }
func (s *State) CSRFKey() []byte    { return decodeKey(s.Keys.CSRF) }

func decodeKey(h string) []byte {
	b, err := hex.DecodeString(h)
	if err != nil || len(b) < 32 {
		return []byte(h)
	}
	return b[:32]
}

func (s *State) SetPassword(password string) error {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.Admin.PasswordBcrypt = string(h)
	s.mu.Unlock()
	return nil
}

// CheckLogin verifies username and password; it does not check TOTP.
func (s *State) CheckLogin(username, password string) error {
	s.mu.Lock()
	admin := s.Admin
	s.mu.Unlock()
	if admin.PasswordBcrypt == "" {
		return ErrAdminNotConfigured
	}
	if username != admin.Username {
		return errors.New("invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordBcrypt), []byte(password)) != nil {
		return errors.New("invalid credentials")
	}
	return nil
}
