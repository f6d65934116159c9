package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "config.yaml"), dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != DefaultListen || cfg.MaxUploadBytes != DefaultMaxUploadBytes {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.DataDir != dir {
		t.Fatalf("dataDir = %q", cfg.DataDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	cfg := Default(dir)
	cfg.BaseURL = "https://qr.example.com"
	cfg.QR.Style = "dots"
	cfg.ShutdownTimeout = 3 * time.Second
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path, dir)
	if err != nil {
		t.Fatal(err)
	}
	if got.BaseURL != cfg.BaseURL || got.QR.Style != "dots" || got.ShutdownTimeout != 3*time.Second {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("listen: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path, dir); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default(t.TempDir())
	env := map[string]string{
		"QRCARD_LISTEN":           "0.0.0.0:8080",
		"QRCARD_MAX_UPLOAD_BYTES": "1024",
		"QRCARD_ENV":              "development",
	}
	cfg.ApplyEnv(func(k string) string { return env[k] })
	if cfg.Listen != "0.0.0.0:8080" || cfg.MaxUploadBytes != 1024 || cfg.Log.Environment != "development" {
		t.Fatalf("env not applied: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"bad listen":   func(c *Config) { c.Listen = "nope" },
		"bad port":     func(c *Config) { c.Listen = "127.0.0.1:99999" },
		"bad base url": func(c *Config) { c.BaseURL = "ftp://x" },
		"bad level":    func(c *Config) { c.QR.Level = "X" },
		"no upload":    func(c *Config) { c.MaxUploadBytes = 0 },
		"half tls":     func(c *Config) { c.TLS = TLSConfig{Enabled: true, Cert: "a.crt"} },
	}
	for name, mutate := range cases {
		cfg := Default(t.TempDir())
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestUploadPath(t *testing.T) {
	cfg := Default("/data")
	if got := cfg.UploadPath(); got != filepath.Join("/data", "uploads") {
		t.Fatalf("got %q", got)
	}
	cfg.UploadDir = "/srv/photos/"
	if got := cfg.UploadPath(); got != "/srv/photos" {
		t.Fatalf("got %q", got)
	}
}
