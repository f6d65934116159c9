package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yuzeguitarist/qrcard/internal/config"
	"github.com/yuzeguitarist/qrcard/internal/netutil"
	"github.com/yuzeguitarist/qrcard/internal/qr"
	"github.com/yuzeguitarist/qrcard/internal/record"
)

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Encode a record link or free text as a QR code (PNG, SVG or PDF by --out extension, terminal otherwise)",
	Example: `  qrcard encode --name "Siti Rahma" --id EMP-7 --out card.png
  qrcard encode --text https://example.com --style dots --out code.svg`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		f := cmd.Flags()
		text, _ := f.GetString("text")
		out, _ := f.GetString("out")
		card, _ := f.GetBool("card")

		var rec *record.Record
		content := text
		if f.Changed("name") || f.Changed("id") || f.Changed("info") || f.Changed("photo-url") {
			r := record.Record{}
			r.Name, _ = f.GetString("name")
			r.ID, _ = f.GetString("id")
			r.Info, _ = f.GetString("info")
			r.PhotoURL, _ = f.GetString("photo-url")
			base, _ := f.GetString("base-url")
			if base == "" {
				base = publicBase(cfg)
			}
			if err := r.Validate(); err != nil {
				return err
			}
			link, err := r.Link(base)
			if err != nil {
				return err
			}
			rec, content = &r, link
			fmt.Fprintln(cmd.OutOrStdout(), link)
		}
		if strings.TrimSpace(content) == "" {
			return fmt.Errorf("--text or --name/--id required")
		}

		o, err := optionsFromFlags(cmd, cfg, content)
		if err != nil {
			return err
		}
		if out == "" {
			return qr.Terminal(cmd.OutOrStdout(), content, o.Level)
		}

		var b []byte
		switch ext := strings.ToLower(filepath.Ext(out)); {
		case card:
			if rec == nil {
				return fmt.Errorf("--card needs --name and --id")
			}
			b, err = qr.Card(o, rec.Name, "ID: "+rec.ID)
		case ext == ".svg":
			b, err = qr.SVG(o)
		case ext == ".pdf":
			b, err = qr.PDF(o)
		case ext == ".png" && o.Style != qr.StyleDefault:
			b, err = qr.Download(o)
		case ext == ".png":
			b, err = qr.PNG(o)
		default:
			return fmt.Errorf("unsupported output %q (use .png, .svg or .pdf)", ext)
		}
		if err != nil {
			return err
		}
		if err := os.WriteFile(out, b, 0o644); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Wrote:", filepath.Clean(out))
		return nil
	},
}

func publicBase(cfg *config.Config) string {
	if cfg.BaseURL != "" {
		return cfg.BaseURL
	}
	return netutil.BaseURLFromListen(cfg.Listen, cfg.TLS.Enabled)
}

func optionsFromFlags(cmd *cobra.Command, cfg *config.Config, content string) (qr.Options, error) {
	f := cmd.Flags()
	o := qr.Options{Content: content, Size: cfg.QR.Size}
	if f.Changed("size") {
		o.Size, _ = f.GetInt("size")
	}
	var err error
	pick := func(flag, def string) string {
		if v, _ := f.GetString(flag); v != "" {
			return v
		}
		return def
	}
	if o.Level, err = qr.ParseLevel(pick("level", cfg.QR.Level)); err != nil {
		return o, err
	}
	if o.Style, err = qr.ParseStyle(pick("style", cfg.QR.Style)); err != nil {
		return o, err
	}
	if o.Foreground, err = qr.ParseForeground(pick("fg", cfg.QR.Foreground)); err != nil {
		return o, err
	}
	if o.Background, err = qr.ParseHexColor(pick("bg", cfg.QR.Background)); err != nil {
		return o, err
	}
	if preset, _ := f.GetString("preset"); preset != "" {
		found := false
		for _, p := range qr.Presets() {
			if strings.EqualFold(p.Name, preset) {
				o.Foreground, _ = qr.ParseHexColor(p.Foreground)
				o.Background, _ = qr.ParseHexColor(p.Background)
				found = true
			}
		}
		if !found {
			return o, fmt.Errorf("unknown preset %q", preset)
		}
	}
	return o, o.Normalize()
}

func init() {
	f := encodeCmd.Flags()
	f.String("text", "", "free text or URL to encode")
	f.String("name", "", "record name")
	f.String("id", "", "record id")
	f.String("info", "", "record info (optional)")
	f.String("photo-url", "", "record photo URL (optional)")
	f.String("base-url", "", "origin for the record link (default from config)")
	f.String("out", "", "output file (.png, .svg, .pdf); terminal when empty")
	f.Bool("card", false, "write a badge card PNG with name and id")
	f.Int("size", 0, "image size in pixels")
	f.String("level", "", "error correction level L, M, Q or H")
	f.String("style", "", "default, rounded, dots, elegant or gradient")
	f.String("fg", "", "foreground color (#RRGGBB)")
	f.String("bg", "", "background color (#RRGGBB or transparent)")
	f.String("preset", "", "color preset name (Classic, Red, Blue, Indigo, Purple, Inverse, Pink, Emerald)")
}
