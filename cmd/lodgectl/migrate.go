package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parisxmas/lodgeforms/internal/config"
	"github.com/parisxmas/lodgeforms/internal/repository"
)

func migrateCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "migrate [bookings|contacts]...",
		Short: "Copy file-backed collections into OxiDB",
		Long: `Copy the JSON collection files in LODGE_DATA_DIR into the OxiDB server
named by OXIDB_HOST and OXIDB_PORT. Records whose id already exists in OxiDB
are skipped, so the command can be re-run safely.

Examples:
  lodgectl migrate
  lodgectl migrate contacts --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			colls, err := collectionArgs(args)
			if err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			src, err := repository.NewFileStore(cfg.DataDir)
			if err != nil {
				return err
			}
			dst, pool, err := openOxi(cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			if !dryRun {
				if err := dst.EnsureIndexes(cmd.Context(), colls...); err != nil {
					return err
				}
			}
			for _, coll := range colls {
				res, err := repository.Migrate(cmd.Context(), src, dst, coll, dryRun)
				if err != nil {
					return fmt.Errorf("migrate %s: %w", coll, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s copied %d, skipped %d\n", coll+":", res.Copied, res.Skipped)
			}
			if dryRun {
				fmt.Fprintln(cmd.OutOrStdout(), "Dry run - no changes made")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be copied without writing")
	return cmd
}
