// ABOUTME: CLI command for copying data between storage backends.
// ABOUTME: Moves everything from the configured backend into the other one.
package main

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/harperreed/fatigue/internal/storage"
	"github.com/spf13/cobra"
)

var (
	migrateTo     string
	migrateDest   string
	migrateDryRun bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy data to another storage backend",
	Long: `Copy all subjects, samples, observations, and activity from the configured
backend into the other one.

The destination must be empty. After migrating, set "backend" in the config
file to switch over.

EXAMPLES:

  fatigue migrate --to badger --dry-run
  fatigue migrate --to badger
  fatigue migrate --to sqlite --dest /srv/fatigue`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if migrateTo != "sqlite" && migrateTo != "badger" {
			return fmt.Errorf("unknown backend: %q (use sqlite or badger)", migrateTo)
		}
		if migrateTo == cfg.GetBackend() {
			return fmt.Errorf("already using the %s backend", migrateTo)
		}
		dest := migrateDest
		if dest == "" {
			dest = cfg.GetDataDir()
		}

		out := cmd.OutOrStdout()
		if migrateDryRun {
			data, err := repo.GetAllData()
			if err != nil {
				return fmt.Errorf("read source: %w", err)
			}
			color.New(color.FgYellow).Fprintln(out, "Dry run - no changes made")
			fmt.Fprintf(out, "  would copy %d subjects, %d samples, %d observations, %d activities to %s\n",
				len(data.Subjects), len(data.HeartRates), len(data.Observations), len(data.Activities), migrateTo)
			return nil
		}

		var dst storage.Repository
		switch migrateTo {
		case "badger":
			dir := filepath.Join(dest, "badger")
			nonEmpty, err := storage.IsDirNonEmpty(dir)
			if err != nil {
				return err
			}
			if nonEmpty {
				return fmt.Errorf("destination %s is not empty", dir)
			}
			kv, err := storage.OpenKV(dir)
			if err != nil {
				return err
			}
			dst = kv
		case "sqlite":
			db, err := storage.Open(filepath.Join(dest, "fatigue.db"))
			if err != nil {
				return err
			}
			existing, err := db.ListSubjects(nil)
			if err != nil {
				db.Close()
				return err
			}
			if len(existing) > 0 {
				db.Close()
				return fmt.Errorf("destination %s already has %d subjects", db.Path(), len(existing))
			}
			dst = db
		}
		defer dst.Close()

		summary, err := storage.MigrateData(repo, dst)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		color.New(color.FgGreen).Fprintf(out, "✓ Migrated to %s\n", migrateTo)
		fmt.Fprintf(out, "  %d subjects, %d samples, %d observations, %d activities\n",
			summary.Subjects, summary.HeartRates, summary.Observations, summary.Activities)
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrateTo, "to", "badger", "destination backend: sqlite or badger")
	migrateCmd.Flags().StringVar(&migrateDest, "dest", "", "destination data directory (default: configured data_dir)")
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "preview migration without making changes")
	rootCmd.AddCommand(migrateCmd)
}
