package cmd

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yuzeguitarist/qrcard/internal/audit"
	"github.com/yuzeguitarist/qrcard/internal/config"
	"github.com/yuzeguitarist/qrcard/internal/photo"
	"github.com/yuzeguitarist/qrcard/internal/service"
)

var photosCmd = &cobra.Command{
	Use:   "photos",
	Short: "Manage uploaded photos",
}

func openPhotos(cfg *config.Config) (*service.Photos, *sql.DB, error) {
	store, err := photo.NewDiskStore(cfg.UploadPath(), cfg.MaxUploadBytes)
	if err != nil {
		return nil, nil, err
	}
	db, err := photo.OpenDB(cfg.Paths().Database(), zap.NewNop())
	if err != nil {
		return nil, nil, err
	}
	p := service.NewPhotos(store, photo.NewRepository(db, zap.NewNop()), audit.New(cfg.Paths().Audit()), zap.NewNop())
	return p, db, nil
}

var photosLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List uploaded photos, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		p, db, err := openPhotos(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		owner, _ := cmd.Flags().GetString("owner")
		limit, _ := cmd.Flags().GetInt("limit")
		list, err := p.List(cmd.Context(), owner, limit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-36s  %-12s  %-10s  %-16s  %s\n", "ID", "OWNER", "SIZE", "UPLOADED", "URL")
		for _, u := range list {
			fmt.Fprintf(out, "%-36s  %-12s  %-10d  %-16s  %s\n", u.ID, u.OwnerID, u.Size, u.CreatedAt.Format("2006-01-02 15:04"), publicBase(cfg)+service.URLPath(u.Key))
		}
		return nil
	},
}

var photosRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete an uploaded photo and its thumbnail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		p, db, err := openPhotos(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := p.Remove(cmd.Context(), args[0], "cli", ""); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Deleted:", args[0])
		return nil
	},
}

func init() {
	photosCmd.AddCommand(photosLsCmd, photosRmCmd)
	photosLsCmd.Flags().String("owner", "", "only photos uploaded for this id")
	photosLsCmd.Flags().Int("limit", 50, "maximum rows (0 for all)")
}
