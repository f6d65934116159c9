package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pquerna/otp/totp"
	"github.com/spf13/cobra"

	"github.com/yuzeguitarist/qrcard/internal/app"
	"github.com/yuzeguitarist/qrcard/internal/qr"
)

const minPasswordLen = 8

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage the admin account of the web UI",
}

var adminPasswdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Set the admin password",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := loadState(cfg)
		if err != nil {
			return err
		}
		in := cmd.InOrStdin()
		if _, ok := in.(*os.File); !ok {
			// one buffer across both prompts
			in = bufio.NewReader(in)
		}
		pw, err := app.ReadSecret("New password: ", in)
		if err != nil {
			return err
		}
		if len(pw) < minPasswordLen {
			return fmt.Errorf("password must be at least %d characters", minPasswordLen)
		}
		if noConfirm, _ := cmd.Flags().GetBool("no-confirm"); !noConfirm {
			again, err := app.ReadSecret("Repeat password: ", in)
			if err != nil {
				return err
			}
			if again != pw {
				return fmt.Errorf("passwords do not match")
			}
		}
		if u, _ := cmd.Flags().GetString("username"); strings.TrimSpace(u) != "" {
			st.Admin.Username = strings.TrimSpace(u)
		}
		if err := st.SetPassword(pw); err != nil {
			return err
		}
		if err := st.SaveAtomic(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Password updated for", st.Admin.Username)
		return nil
	},
}

var adminTOTPCmd = &cobra.Command{
	Use:   "totp <enable|disable>",
	Short: "Enable or disable TOTP for the admin login",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := loadState(cfg)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		switch args[0] {
		case "disable":
			st.Admin.TOTPEnabled = false
			st.Admin.TOTPSecret = ""
			if err := st.SaveAtomic(); err != nil {
				return err
			}
			fmt.Fprintln(out, "TOTP disabled.")
			return nil
		case "enable":
		default:
			return fmt.Errorf("expected enable or disable, got %q", args[0])
		}

		key, err := totp.Generate(totp.GenerateOpts{Issuer: "qrcard", AccountName: st.Admin.Username})
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "Scan with an authenticator app:")
		_ = qr.Terminal(out, key.URL(), qr.LevelM)
		fmt.Fprintln(out, "Secret:", key.Secret())

		code, err := app.ReadSecret("Code from the app: ", cmd.InOrStdin())
		if err != nil {
			return err
		}
		if !totp.Validate(strings.TrimSpace(code), key.Secret()) {
			return fmt.Errorf("invalid code, TOTP not enabled")
		}
		st.Admin.TOTPEnabled = true
		st.Admin.TOTPSecret = key.Secret()
		if err := st.SaveAtomic(); err != nil {
			return err
		}
		fmt.Fprintln(out, "TOTP enabled.")
		return nil
	},
}

func init() {
	adminCmd.AddCommand(adminPasswdCmd, adminTOTPCmd)
	adminPasswdCmd.Flags().String("username", "", "change the admin username as well")
	adminPasswdCmd.Flags().Bool("no-confirm", false, "do not ask for the password twice (for piped input)")
}
