package cmd

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yuzeguitarist/qrcard/internal/qr"
	"github.com/yuzeguitarist/qrcard/internal/record"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <link|data>",
	Short: "Decode a record from a detail link or a raw data payload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := parseRecordArg(args[0])
		if err != nil {
			return err
		}
		return printRecord(cmd, rec)
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan <image>",
	Short: "Read a QR code from an image file and decode any record it links to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		text, err := qr.ScanReader(f)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		if rec, err := record.FromURL(text); err == nil {
			return printRecord(cmd, rec)
		}
		return nil
	},
}

func parseRecordArg(s string) (*record.Record, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "://") || strings.HasPrefix(s, "/") {
		return record.FromURL(s)
	}
	if strings.HasPrefix(s, record.QueryKey+"=") {
		v, err := url.ParseQuery(s)
		if err != nil {
			return nil, record.ErrMalformed
		}
		return record.FromQuery(v)
	}
	if s == "" {
		return nil, record.ErrNoData
	}
	return record.Decode(s)
}

func printRecord(cmd *cobra.Command, rec *record.Record) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}
