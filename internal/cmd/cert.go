package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yuzeguitarist/qrcard/internal/crypto"
	"github.com/yuzeguitarist/qrcard/internal/service"
)

var certCmd = &cobra.Command{
	Use:   "cert",
	Short: "Manage the self-signed TLS certificate",
}

var certGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate (or rotate) the self-signed certificate",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fp, err := service.RotateCert(cfg)
		if err != nil {
			return err
		}
		cert, key := cfg.CertPaths()
		fmt.Fprintln(cmd.OutOrStdout(), "Wrote:", cert, key)
		fmt.Fprintln(cmd.OutOrStdout(), "SHA-256:", fp)
		fmt.Fprintln(cmd.OutOrStdout(), "Restart qrcard serve to use it.")
		return nil
	},
}

var certFPCmd = &cobra.Command{
	Use:   "fingerprint",
	Short: "Print the SHA-256 fingerprint of the current certificate",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cert, _ := cfg.CertPaths()
		fp, err := crypto.Fingerprint(cert)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), fp)
		return nil
	},
}

func init() {
	certCmd.AddCommand(certGenerateCmd, certFPCmd)
}
