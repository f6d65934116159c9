package app

import "path/filepath"

const (
	DefaultDataDir = "/var/lib/qrcard"

	// Files under the data directory
	ConfigFile   = "config.yaml"
	StateFile    = "state.json"
	BackupsDir   = "backups"
	UploadsDir   = "uploads"
	ThumbsDir    = ".thumbs"
	DatabaseFile = "photos.db"
	AuditFile    = "audit.log"
	CertFile     = "tls.crt"
	KeyFile      = "tls.key"

	SessionName = "qrcard"
)

// Paths resolves the well-known files of a data directory.
type Paths struct {
	DataDir string
}

func (p Paths) Config() string   { return filepath.Join(p.DataDir, ConfigFile) }
func (p Paths) State() string    { return filepath.Join(p.DataDir, StateFile) }
func (p Paths) Backups() string  { return filepath.Join(p.DataDir, BackupsDir) }
func (p Paths) Uploads() string  { return filepath.Join(p.DataDir, UploadsDir) }
func (p Paths) Database() string { return filepath.Join(p.DataDir, DatabaseFile) }
func (p Paths) Audit() string    { return filepath.Join(p.DataDir, AuditFile) }
func (p Paths) Cert() string     { return filepath.Join(p.DataDir, CertFile) }
func (p Paths) Key() string      { return filepath.Join(p.DataDir, KeyFile) }
