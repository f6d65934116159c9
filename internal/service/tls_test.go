package service

import (
	"os"
	"testing"

	"github.com/yuzeguitarist/qrcard/internal/config"
	"github.com/yuzeguitarist/qrcard/internal/crypto"
)

func TestEnsureCertCreatesOnce(t *testing.T) {
	cfg := config.Default(t.TempDir())
	created, err := EnsureCert(cfg)
	if err != nil || !created {
		t.Fatalf("first EnsureCert = %v, %v", created, err)
	}
	cert, key := cfg.CertPaths()
	fp, err := crypto.Fingerprint(cert)
	if err != nil {
		t.Fatal(err)
	}
	created, err = EnsureCert(cfg)
	if err != nil || created {
		t.Fatalf("second EnsureCert = %v, %v", created, err)
	}
	again, _ := crypto.Fingerprint(cert)
	if again != fp {
		t.Fatal("certificate was regenerated")
	}
	st, err := os.Stat(key)
	if err != nil {
		t.Fatal(err)
	}
	if st.Mode().Perm() != 0o600 {
		t.Fatalf("key mode = %o", st.Mode().Perm())
	}
}

func TestFixPermissions(t *testing.T) {
	cfg := config.Default(t.TempDir())
	state := cfg.Paths().State()
	if err := os.WriteFile(state, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := FixPermissions(cfg); err != nil {
		t.Fatal(err)
	}
	st, err := os.Stat(state)
	if err != nil {
		t.Fatal(err)
	}
	if st.Mode().Perm() != 0o600 {
		t.Fatalf("state mode = %o", st.Mode().Perm())
	}
}
