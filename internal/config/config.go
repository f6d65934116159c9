package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yuzeguitarist/qrcard/internal/app"
)

const (
	DefaultListen         = "127.0.0.1:3333"
	DefaultMaxUploadBytes = int64(10 << 20)
	DefaultQRSize         = 256
)

type Config struct {
	Listen          string        `yaml:"listen"`
	BaseURL         string        `yaml:"baseUrl,omitempty"` // public origin used in record links; empty -> request host
	DataDir         string        `yaml:"dataDir"`
	UploadDir       string        `yaml:"uploadDir,omitempty"` // empty -> <dataDir>/uploads
	MaxUploadBytes  int64         `yaml:"maxUploadBytes"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	TLS             TLSConfig     `yaml:"tls"`
	QR              QRDefaults    `yaml:"qr"`
	Log             LogConfig     `yaml:"log"`
}

type TLSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cert    string `yaml:"cert,omitempty"`
	Key     string `yaml:"key,omitempty"`
}

type QRDefaults struct {
	Size       int    `yaml:"size"`
	Level      string `yaml:"level"`
	Foreground string `yaml:"foreground"`
	Background string `yaml:"background"`
	Style      string `yaml:"style"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Environment string `yaml:"environment"` // development | production
}

func Default(dataDir string) *Config {
	if dataDir == "" {
		dataDir = app.DefaultDataDir
	}
	return &Config{
		Listen:          DefaultListen,
		DataDir:         dataDir,
		MaxUploadBytes:  DefaultMaxUploadBytes,
		ShutdownTimeout: 10 * time.Second,
		QR: QRDefaults{
			Size:       DefaultQRSize,
			Level:      "M",
			Foreground: "#000000",
			Background: "#FFFFFF",
			Style:      "default",
		},
		Log: LogConfig{
			Level:       "info",
			Environment: "production",
		},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path, dataDir string) (*Config, error) {
	cfg := Default(dataDir)
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.DataDir == "" {
		cfg.DataDir = Default(dataDir).DataDir
	}
	return cfg, nil
}

// ApplyEnv overrides fields from QRCARD_* variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv("QRCARD_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := getenv("QRCARD_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := getenv("QRCARD_UPLOAD_DIR"); v != "" {
		c.UploadDir = v
	}
	if v := getenv("QRCARD_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.MaxUploadBytes = n
		}
	}
	if v := getenv("QRCARD_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.ShutdownTimeout = d
		}
	}
	if v := getenv("QRCARD_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("QRCARD_ENV"); v != "" {
		c.Log.Environment = v
	}
}

func (c *Config) Validate() error {
	_, port, err := net.SplitHostPort(c.Listen)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	p, err := strconv.Atoi(port)
	if err != nil || p < 0 || p > 65535 {
		return fmt.Errorf("listen: invalid port %q", port)
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("dataDir required")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("maxUploadBytes must be positive")
	}
	if c.BaseURL != "" && !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("baseUrl must start with http:// or https://")
	}
	switch strings.ToUpper(c.QR.Level) {
	case "", "L", "M", "Q", "H":
	default:
		return fmt.Errorf("qr.level must be one of L, M, Q, H")
	}
	if c.QR.Size < 0 {
		return fmt.Errorf("qr.size must not be negative")
	}
	if c.TLS.Enabled && (c.TLS.Cert == "") != (c.TLS.Key == "") {
		return fmt.Errorf("tls.cert and tls.key must be set together")
	}
	return nil
}

func (c *Config) Paths() app.Paths { return app.Paths{DataDir: c.DataDir} }

func (c *Config) UploadPath() string {
	if c.UploadDir != "" {
		return filepath.Clean(c.UploadDir)
	}
	return c.Paths().Uploads()
}

// CertPaths returns the TLS pair, defaulting to the self-signed files in the data dir.
func (c *Config) CertPaths() (cert, key string) {
	cert, key = c.TLS.Cert, c.TLS.Key
	if cert == "" {
		cert = c.Paths().Cert()
	}
	if key == "" {
		key = c.Paths().Key()
	}
	return cert, key
}

func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func (c *Config) Save(path string) error {
	b, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}
	return app.AtomicWriteFile(path, 0640, b)
}
