package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yuzeguitarist/qrcard/internal/app"
	"github.com/yuzeguitarist/qrcard/internal/audit"
	"github.com/yuzeguitarist/qrcard/internal/config"
	"github.com/yuzeguitarist/qrcard/internal/logger"
	"github.com/yuzeguitarist/qrcard/internal/netutil"
	"github.com/yuzeguitarist/qrcard/internal/photo"
	"github.com/yuzeguitarist/qrcard/internal/qr"
	"github.com/yuzeguitarist/qrcard/internal/service"
	"github.com/yuzeguitarist/qrcard/internal/state"
	"github.com/yuzeguitarist/qrcard/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web UI and API server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if v, _ := cmd.Flags().GetString("listen"); v != "" {
			cfg.Listen = v
		}
		if v, _ := cmd.Flags().GetString("base-url"); v != "" {
			cfg.BaseURL = v
		}
		if cmd.Flags().Changed("tls") {
			cfg.TLS.Enabled, _ = cmd.Flags().GetBool("tls")
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}

		log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Environment)
		if err != nil {
			return err
		}
		defer log.Sync()

		if auto, _ := cmd.Flags().GetBool("auto-port"); auto {
			if err := pickPort(cfg, log); err != nil {
				return err
			}
		}

		st, err := loadState(cfg)
		if err != nil {
			return err
		}
		if err := bootstrapAdmin(cmd, st); err != nil {
			return err
		}

		auditLog := audit.New(cfg.Paths().Audit())
		store, err := photo.NewDiskStore(cfg.UploadPath(), cfg.MaxUploadBytes)
		if err != nil {
			return err
		}
		db, err := photo.OpenDB(cfg.Paths().Database(), log)
		if err != nil {
			return err
		}
		defer db.Close()
		photos := service.NewPhotos(store, photo.NewRepository(db, log), auditLog, log)

		if cfg.TLS.Enabled {
			created, err := service.EnsureCert(cfg)
			if err != nil {
				return err
			}
			if created {
				log.Info("generated self-signed certificate", zap.String("dir", cfg.DataDir))
			}
		}
		if err := service.FixPermissions(cfg); err != nil {
			log.Warn("could not fix data dir permissions", zap.Error(err))
		}

		srv, err := web.NewServer(web.Deps{Config: cfg, State: st, Photos: photos, Store: store, Audit: auditLog, Logger: log})
		if err != nil {
			return err
		}
		httpSrv := &http.Server{
			Addr:              cfg.Listen,
			Handler:           srv.Router(),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       2 * time.Minute,
			WriteTimeout:      2 * time.Minute,
			IdleTimeout:       2 * time.Minute,
			ErrorLog:          zap.NewStdLog(log),
		}

		public := cfg.BaseURL
		if public == "" {
			public = netutil.BaseURLFromListen(cfg.Listen, cfg.TLS.Enabled)
		}
		fmt.Fprintln(cmd.OutOrStdout(), app.Color("==> Listening:", "1;34"), cfg.Listen)
		fmt.Fprintln(cmd.OutOrStdout(), app.Color("==> Open:", "1;34"), public)
		if showQR, _ := cmd.Flags().GetBool("qr"); showQR && public != "" {
			_ = qr.Terminal(cmd.OutOrStdout(), public, qr.LevelL)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			var err error
			if cfg.TLS.Enabled {
				cert, key := cfg.CertPaths()
				err = httpSrv.ListenAndServeTLS(cert, key)
			} else {
				err = httpSrv.ListenAndServe()
			}
			if !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()
		log.Info("server started", zap.String("listen", cfg.Listen), zap.Bool("tls", cfg.TLS.Enabled), zap.String("uploads", cfg.UploadPath()))

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	},
}

// pickPort moves the listen address to the next free port when the
// configured one is taken.
func pickPort(cfg *config.Config, log *zap.Logger) error {
	host, port, err := net.SplitHostPort(cfg.Listen)
	if err != nil {
		return err
	}
	preferred, _ := strconv.Atoi(port)
	p, err := netutil.ChoosePort(host, preferred)
	if err != nil {
		return err
	}
	if p != preferred {
		log.Warn("port busy, using another", zap.Int("preferred", preferred), zap.Int("port", p))
		cfg.Listen = net.JoinHostPort(host, strconv.Itoa(p))
	}
	return nil
}

// bootstrapAdmin sets a random admin password on first start and prints it once.
func bootstrapAdmin(cmd *cobra.Command, st *state.State) error {
	if st.Admin.PasswordBcrypt != "" {
		return nil
	}
	pw, err := app.RandToken(12)
	if err != nil {
		return err
	}
	if err := st.SetPassword(pw); err != nil {
		return err
	}
	if err := st.SaveAtomic(); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, app.Color("==> Admin credentials (shown once):", "1;36"))
	fmt.Fprintln(out, "    username:", st.Admin.Username)
	fmt.Fprintln(out, "    password:", pw)
	fmt.Fprintln(out, "    change with: qrcard admin passwd")
	return nil
}

func init() {
	serveCmd.Flags().String("listen", "", "listen address (default from config: "+config.DefaultListen+")")
	serveCmd.Flags().String("base-url", "", "public origin used in record links")
	serveCmd.Flags().Bool("tls", false, "serve HTTPS (self-signed cert generated when missing)")
	serveCmd.Flags().Bool("auto-port", false, "pick the next free port when the configured one is busy")
	serveCmd.Flags().Bool("qr", true, "print a terminal QR code of the public URL")
}
