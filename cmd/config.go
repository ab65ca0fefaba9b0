package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/moria-tools/moria-manager/internal/config"
	"github.com/moria-tools/moria-manager/internal/logging"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit the configuration file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		logging.Infof("Config file: %s\n\n", config.File(configDir))

		printEntry := func(key string, value any, set bool) {
			if set {
				logging.Infof("  %-27s = %v\n", key, value)
			} else {
				logging.Infof("  %-27s   (not set)\n", key)
			}
		}
		printEntry("installation", deref(cfg.Installation), cfg.Installation != nil)
		printEntry("install-root", deref(cfg.InstallRoot), cfg.InstallRoot != nil)
		printEntry("save-root", deref(cfg.SaveRoot), cfg.SaveRoot != nil)
		printEntry("backup-root", deref(cfg.BackupRoot), cfg.BackupRoot != nil)
		printEntry("enable-deletion", derefBool(cfg.EnableDeletion), cfg.EnableDeletion != nil)
		printEntry("auto-backup-before-restore", derefBool(cfg.AutoBackupBeforeRestore), cfg.AutoBackupBeforeRestore != nil)
		printEntry("verbose", derefBool(cfg.Verbose), cfg.Verbose != nil)
		printEntry("log-file", deref(cfg.LogFile), cfg.LogFile != nil)
		return nil
	},
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefBool(b *bool) bool {
	return b != nil && *b
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one configuration key",
	Args:  usageArgs(cobra.ExactArgs(2)),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := applyConfigKey(cfg, key, value); err != nil {
			return err
		}
		if err := config.Save(configDir, cfg); err != nil {
			return err
		}
		logging.Infof("Set %s = %s\n", key, value)
		return nil
	},
}

func applyConfigKey(c *config.Config, key, value string) error {
	setBool := func(dst **bool) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return wrapUsageError(fmt.Errorf("%s wants true or false, got %q", key, value))
		}
		*dst = &b
		return nil
	}

	switch key {
	case "installation":
		switch value {
		case "steam", "epic", "custom":
			c.Installation = &value
			return nil
		default:
			return wrapUsageError(fmt.Errorf("installation wants steam, epic or custom, got %q", value))
		}
	case "install-root":
		c.InstallRoot = &value
	case "save-root":
		c.SaveRoot = &value
	case "backup-root":
		c.BackupRoot = &value
	case "log-file":
		c.LogFile = &value
	case "enable-deletion":
		return setBool(&c.EnableDeletion)
	case "auto-backup-before-restore":
		return setBool(&c.AutoBackupBeforeRestore)
	case "verbose":
		return setBool(&c.Verbose)
	default:
		return wrapUsageError(fmt.Errorf("unknown config key %q", key))
	}
	return nil
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}
