package service

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/yuzeguitarist/qrcard/internal/config"
	"github.com/yuzeguitarist/qrcard/internal/crypto"
	"github.com/yuzeguitarist/qrcard/internal/netutil"
)

// CertValidDays is the lifetime of generated self-signed certificates.
const CertValidDays = 825

type PermSpec struct {
	Path string
	Mode os.FileMode
}

// DesiredPerms lists the modes the data directory should carry. Secrets are
// owner-only; uploads stay world-readable for the file server.
func DesiredPerms(cfg *config.Config) []PermSpec {
	p := cfg.Paths()
	cert, key := cfg.CertPaths()
	return []PermSpec{
		{Path: p.DataDir, Mode: 0o750},
		{Path: p.State(), Mode: 0o600},
		{Path: p.Backups(), Mode: 0o700},
		{Path: key, Mode: 0o600},
		{Path: cert, Mode: 0o644},
		{Path: p.Audit(), Mode: 0o640},
		{Path: cfg.UploadPath(), Mode: 0o755},
	}
}

// FixPermissions applies DesiredPerms to the paths that exist.
func FixPermissions(cfg *config.Config) error {
	var errs []error
	for _, p := range DesiredPerms(cfg) {
		if _, err := os.Stat(p.Path); err != nil {
			continue
		}
		if err := os.Chmod(p.Path, p.Mode); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RotateCert writes a new self-signed pair covering the listen host, the
// detected public IP and localhost. It returns the SHA-256 fingerprint.
func RotateCert(cfg *config.Config) (string, error) {
	hosts := []string{"localhost", "127.0.0.1"}
	if host, _, err := net.SplitHostPort(cfg.Listen); err == nil && host != "" && host != "0.0.0.0" && host != "::" {
		hosts = append(hosts, host)
	} else {
		hosts = append(hosts, netutil.PublicIP())
	}
	certPEM, keyPEM, fp, err := crypto.GenerateSelfSigned(dedupe(hosts), CertValidDays)
	if err != nil {
		return "", err
	}
	cert, key := cfg.CertPaths()
	if err := crypto.WriteCertFiles(cert, key, certPEM, keyPEM); err != nil {
		return "", fmt.Errorf("write %s: %w", filepath.Dir(cert), err)
	}
	return fp, nil
}

// EnsureCert generates the pair only when either file is missing.
func EnsureCert(cfg *config.Config) (created bool, err error) {
	cert, key := cfg.CertPaths()
	_, cerr := os.Stat(cert)
	_, kerr := os.Stat(key)
	if cerr == nil && kerr == nil {
		return false, nil
	}
	if _, err := RotateCert(cfg); err != nil {
		return false, err
	}
	return true, nil
}

func dedupe(in []string) []string {
	seen := map[string]bool{}
	out := in[:0]
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
