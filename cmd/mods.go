package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moria-tools/moria-manager/internal/logging"
	"github.com/moria-tools/moria-manager/internal/modfile"
	"github.com/moria-tools/moria-manager/internal/modsync"
)

var modsCmd = &cobra.Command{
	Use:   "mods",
	Short: "Move mods between the available pool and the game",
	Long:  "A mod is a .pak/.ucas/.utoc file triple sharing one base name. Mods live either in the available pool or in the game's Paks directory, never both.",
}

var (
	listAvailable bool
	listInstalled bool
)

var modsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available and installed mods",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		sync, err := newSynchronizer()
		if err != nil {
			return err
		}

		both := !listAvailable && !listInstalled
		if listAvailable || both {
			mods, err := sync.ListAvailable()
			if err != nil {
				return err
			}
			printModList("Available", mods)
		}
		if listInstalled || both {
			mods, err := sync.ListInstalled()
			if err != nil {
				return err
			}
			printModList("Installed", mods)
		}
		return nil
	},
}

func printModList(header string, mods []modfile.Mod) {
	logging.Infof("%s (%d):\n", header, len(mods))
	if len(mods) == 0 {
		logging.Infoln("  (none)")
		return
	}
	for _, m := range mods {
		name := m.Name
		if m.Folder != "" {
			name = m.Folder + "/" + m.Name
		}
		if missing := m.Missing(); len(missing) > 0 {
			logging.Infof("  %s — incomplete, missing %s\n", name, strings.Join(missing, ", "))
		} else {
			logging.Infof("  %s\n", name)
		}
	}
}

var modsInstallCmd = &cobra.Command{
	Use:   "install <name>...",
	Short: "Move mods from the available pool into the game",
	Args:  usageArgs(cobra.MinimumNArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		sync, err := newSynchronizer()
		if err != nil {
			return err
		}

		var failed []string
		for _, name := range args {
			if err := sync.Install(context.Background(), name); err != nil {
				logging.Warnf("install %s: %v\n", name, err)
				failed = append(failed, name)
				continue
			}
			logging.Infof("  + %s installed\n", name)
		}
		if len(failed) > 0 {
			return fmt.Errorf("failed to install: %s", strings.Join(failed, ", "))
		}
		return nil
	},
}

var uninstallDelete bool

var modsUninstallCmd = &cobra.Command{
	Use:   "uninstall <name>...",
	Short: "Move mods from the game back to the available pool",
	Args:  usageArgs(cobra.MinimumNArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		dest := modsync.ToAvailable
		if uninstallDelete {
			if !deletionEnabled() {
				return fmt.Errorf("deletion is disabled; set enable-deletion = true in the config file")
			}
			dest = modsync.ToDelete
		}

		sync, err := newSynchronizer()
		if err != nil {
			return err
		}

		var failed []string
		for _, name := range args {
			if err := sync.Uninstall(context.Background(), name, dest); err != nil {
				logging.Warnf("uninstall %s: %v\n", name, err)
				failed = append(failed, name)
				continue
			}
			if dest == modsync.ToDelete {
				logging.Infof("  - %s deleted\n", name)
			} else {
				logging.Infof("  - %s returned to the pool\n", name)
			}
		}
		if len(failed) > 0 {
			return fmt.Errorf("failed to uninstall: %s", strings.Join(failed, ", "))
		}
		return nil
	},
}

var deleteInstalled bool

var modsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a mod's files from the available pool",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !deletionEnabled() {
			return fmt.Errorf("deletion is disabled; set enable-deletion = true in the config file")
		}

		sync, err := newSynchronizer()
		if err != nil {
			return err
		}
		loc := modsync.Available
		if deleteInstalled {
			loc = modsync.Installed
		}
		if err := sync.Delete(context.Background(), args[0], loc); err != nil {
			return err
		}
		logging.Infof("Deleted %s\n", args[0])
		return nil
	},
}

var (
	folderDelete   bool
	folderContents bool
)

var modsFolderCmd = &cobra.Command{
	Use:   "folder <name>",
	Short: "Create or delete a folder in the available pool",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		sync, err := newSynchronizer()
		if err != nil {
			return err
		}

		if folderDelete {
			if folderContents && !deletionEnabled() {
				return fmt.Errorf("deleting folder contents is disabled; set enable-deletion = true in the config file")
			}
			if err := sync.DeleteFolder(args[0], folderContents); err != nil {
				return err
			}
			logging.Infof("Deleted folder %s\n", args[0])
			return nil
		}

		path, err := sync.CreateFolder(args[0])
		if err != nil {
			return err
		}
		logging.Infof("Created %s\n", path)
		return nil
	},
}

var modsOrganizeCmd = &cobra.Command{
	Use:   "organize <name>",
	Short: "Gather a mod's loose files into its own pool folder",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		sync, err := newSynchronizer()
		if err != nil {
			return err
		}
		if err := sync.Organize(context.Background(), args[0]); err != nil {
			return err
		}
		logging.Infof("Organized %s\n", args[0])
		return nil
	},
}

func init() {
	modsListCmd.Flags().BoolVar(&listAvailable, "available", false, "Only list mods in the available pool")
	modsListCmd.Flags().BoolVar(&listInstalled, "installed", false, "Only list installed mods")
	modsUninstallCmd.Flags().BoolVar(&uninstallDelete, "delete", false, "Delete the mod instead of returning it to the pool")
	modsDeleteCmd.Flags().BoolVar(&deleteInstalled, "installed", false, "Delete from the game instead of the pool")
	modsFolderCmd.Flags().BoolVar(&folderDelete, "delete", false, "Delete the folder instead of creating it")
	modsFolderCmd.Flags().BoolVar(&folderContents, "contents", false, "With --delete, remove the folder even if it is not empty")

	modsCmd.AddCommand(modsListCmd, modsInstallCmd, modsUninstallCmd, modsDeleteCmd, modsFolderCmd, modsOrganizeCmd)
	rootCmd.AddCommand(modsCmd)
}
