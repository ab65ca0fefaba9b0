package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/moria-tools/moria-manager/internal/logging"
	"github.com/moria-tools/moria-manager/internal/versions"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up and restore save files",
	Long:  "Backups are timestamped copies of a world's or character's main save file. A backup only becomes visible once every file in it has been copied and verified.",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create <worldId>",
	Short: "Back up one world or character",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newVersionManager()
		if err != nil {
			return err
		}
		b, err := mgr.BackupOne(args[0])
		if err != nil {
			return err
		}
		logging.Infof("Backed up %s (%s) as %s\n", b.WorldID, b.Description, b.Stamp)
		return nil
	},
}

var backupConcurrency int

var backupAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Back up every world and character",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newVersionManager()
		if err != nil {
			return err
		}

		var bar *progressbar.ProgressBar
		results, err := mgr.BackupAll(context.Background(), backupConcurrency, func(p versions.Progress) {
			if bar == nil {
				bar = progressbar.Default(p.Total, "backing up")
			}
			_ = bar.Set64(p.Completed)
		})
		if err != nil {
			return err
		}
		if len(results) == 0 {
			logging.Infoln("Nothing to back up.")
			return nil
		}

		var failed []string
		for _, r := range results {
			if r.Err != nil {
				logging.Warnf("%s (%s): %v\n", r.WorldID, r.DisplayName, r.Err)
				failed = append(failed, r.WorldID)
				continue
			}
			logging.Infof("  %s (%s) → %s\n", r.WorldID, r.DisplayName, r.Backup.Stamp)
		}
		if len(failed) > 0 {
			return fmt.Errorf("backup failures: %s", strings.Join(failed, ", "))
		}
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list [worldId]",
	Short: "List backups, newest first",
	Args:  usageArgs(cobra.MaximumNArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}

		var worlds []string
		if len(args) == 1 {
			worlds = args
		} else if worlds, err = store.ListWorlds(); err != nil {
			return err
		}
		if len(worlds) == 0 {
			logging.Infoln("No backups.")
			return nil
		}

		for _, w := range worlds {
			backups, err := store.ListBackups(w)
			if err != nil {
				return err
			}
			logging.Infof("%s (%d):\n", w, len(backups))
			for _, b := range backups {
				desc := ""
				if b.Description != "" {
					desc = "  " + b.Description
				}
				logging.Infof("  %s  %d file(s)%s\n", b.Stamp, len(b.Files), desc)
			}
		}
		return nil
	},
}

var restoreKeepCurrent bool

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <worldId> <timestamp>",
	Short: "Restore a backup over the live save",
	Args:  usageArgs(cobra.ExactArgs(2)),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newVersionManager()
		if err != nil {
			return err
		}
		if err := mgr.Restore(args[0], args[1], restoreKeepCurrent); err != nil {
			return err
		}
		return nil
	},
}

var backupDeleteCmd = &cobra.Command{
	Use:   "delete <worldId> <timestamp>",
	Short: "Delete one backup",
	Args:  usageArgs(cobra.ExactArgs(2)),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !deletionEnabled() {
			return fmt.Errorf("deletion is disabled; set enable-deletion = true in the config file")
		}
		mgr, err := newVersionManager()
		if err != nil {
			return err
		}
		if err := mgr.DeleteBackup(args[0], args[1]); err != nil {
			return err
		}
		logging.Infof("Deleted backup %s of %s\n", args[1], args[0])
		return nil
	},
}

var purgeLive bool

var backupDeleteWorldCmd = &cobra.Command{
	Use:   "delete-world <worldId>",
	Short: "Delete every backup of a world",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !deletionEnabled() {
			return fmt.Errorf("deletion is disabled; set enable-deletion = true in the config file")
		}
		mgr, err := newVersionManager()
		if err != nil {
			return err
		}
		if err := mgr.DeleteWorld(args[0], purgeLive); err != nil {
			return err
		}
		if purgeLive {
			logging.Infof("Deleted all backups and live save files of %s\n", args[0])
		} else {
			logging.Infof("Deleted all backups of %s\n", args[0])
		}
		return nil
	},
}

func init() {
	backupAllCmd.Flags().IntVarP(&backupConcurrency, "concurrency", "c", 4, "Number of concurrent backups")
	backupRestoreCmd.Flags().BoolVar(&restoreKeepCurrent, "keep-current", false, "Back up the live save before overwriting it")
	backupDeleteWorldCmd.Flags().BoolVar(&purgeLive, "purge-live", false, "Also delete the world's live save files")

	backupCmd.AddCommand(backupCreateCmd, backupAllCmd, backupListCmd, backupRestoreCmd, backupDeleteCmd, backupDeleteWorldCmd)
	rootCmd.AddCommand(backupCmd)
}
