package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moria-tools/moria-manager/internal/backupstore"
	"github.com/moria-tools/moria-manager/internal/config"
	"github.com/moria-tools/moria-manager/internal/detect"
	"github.com/moria-tools/moria-manager/internal/logging"
	"github.com/moria-tools/moria-manager/internal/modsync"
	"github.com/moria-tools/moria-manager/internal/operr"
	"github.com/moria-tools/moria-manager/internal/versions"
)

var (
	configDir    string
	installation string
	installRoot  string
	saveRoot     string
	backupRoot   string
	verbose      bool
	logFile      string

	// cfg is the file configuration loaded before every command. Flags the
	// user set explicitly win over it.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "moria-manager",
	Short:         "Manage Return to Moria saves, mods and trade orders",
	Long:          "Back up and restore Return to Moria save files, move mods between an available pool and the game's Paks directory, and track merchant trade orders.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configDir == "" {
			configDir = config.Dir()
		}
		var err error
		cfg, err = config.Load(configDir)
		if err != nil {
			return err
		}

		// Apply config defaults for flags not explicitly set by the user.
		if cfg.Installation != nil && !cmd.Flags().Changed("install") {
			installation = *cfg.Installation
		}
		if cfg.InstallRoot != nil && !cmd.Flags().Changed("install-root") {
			installRoot = *cfg.InstallRoot
		}
		if cfg.SaveRoot != nil && !cmd.Flags().Changed("save-root") {
			saveRoot = *cfg.SaveRoot
		}
		if cfg.BackupRoot != nil && !cmd.Flags().Changed("backup-root") {
			backupRoot = *cfg.BackupRoot
		}
		if cfg.Verbose != nil && !cmd.Flags().Changed("verbose") {
			verbose = *cfg.Verbose
		}
		if cfg.LogFile != nil && !cmd.Flags().Changed("log-file") {
			logFile = *cfg.LogFile
		}

		logging.SetVerbose(verbose)
		if err := logging.SetOutputFile(logFile); err != nil {
			return fmt.Errorf("opening log file %q: %w", logFile, err)
		}
		return nil
	},
}

func Execute() {
	err := rootCmd.Execute()
	closeErr := logging.Close()
	if closeErr != nil {
		fmt.Fprintf(os.Stderr, "Error closing log file: %v\n", closeErr)
		if err == nil {
			os.Exit(1)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if isUsageError(err) {
			if cmd, _, findErr := rootCmd.Find(os.Args[1:]); findErr == nil && cmd != nil {
				_ = cmd.Usage()
			} else {
				_ = rootCmd.Usage()
			}
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return wrapUsageError(err)
	})

	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Directory holding config.toml and the trade checklist")
	rootCmd.PersistentFlags().StringVar(&installation, "install", "", "Installation to use: steam, epic or custom")
	rootCmd.PersistentFlags().StringVar(&installRoot, "install-root", "", "Game install directory for a custom installation")
	rootCmd.PersistentFlags().StringVar(&saveRoot, "save-root", "", "Save directory for a custom installation")
	rootCmd.PersistentFlags().StringVar(&backupRoot, "backup-root", "", "Directory holding the mod pool and save backups")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write command output to a log file")
}

// deletionEnabled reports whether delete commands may run. The engine does
// not gate deletion itself; this is caller policy from the config file.
func deletionEnabled() bool {
	return cfg != nil && cfg.EnableDeletion != nil && *cfg.EnableDeletion
}

func autoBackupBeforeRestore() bool {
	return cfg != nil && cfg.AutoBackupBeforeRestore != nil && *cfg.AutoBackupBeforeRestore
}

func resolvedBackupRoot() string {
	if backupRoot != "" {
		return backupRoot
	}
	return config.DefaultBackupRoot()
}

// pickInstallation resolves the active installation from the discovery
// snapshot. An explicit selection must name a known kind; without one the
// first usable candidate wins.
func pickInstallation() (detect.Candidate, error) {
	candidates := detect.Discover(detect.CustomPaths{InstallRoot: installRoot, SaveRoot: saveRoot})

	if installation != "" {
		want := detect.Kind(strings.ToLower(installation))
		for _, c := range candidates {
			if c.Kind == want {
				return c, nil
			}
		}
		return detect.Candidate{}, wrapUsageError(fmt.Errorf("unknown installation %q (want steam, epic or custom)", installation))
	}
	for _, c := range candidates {
		if c.Valid() {
			return c, nil
		}
	}
	return detect.Candidate{}, operr.New("resolve installation", "", "", operr.ErrConfigInvalid,
		fmt.Errorf("no usable installation found; run \"moria-manager detect\" or set paths with --install-root/--save-root"))
}

func openStore() (*backupstore.Store, error) {
	return backupstore.New(resolvedBackupRoot())
}

func newSynchronizer() (*modsync.Synchronizer, error) {
	inst, err := pickInstallation()
	if err != nil {
		return nil, err
	}
	if !inst.InstallValid {
		return nil, operr.New("resolve installation", inst.DisplayName, inst.InstallRoot, operr.ErrConfigInvalid,
			fmt.Errorf("no valid game directory"))
	}
	store, err := openStore()
	if err != nil {
		return nil, err
	}
	return modsync.New(store, detect.PaksDir(inst.InstallRoot)), nil
}

func newVersionManager() (*versions.Manager, error) {
	inst, err := pickInstallation()
	if err != nil {
		return nil, err
	}
	if !inst.SaveValid {
		return nil, operr.New("resolve installation", inst.DisplayName, inst.SaveRoot, operr.ErrConfigInvalid,
			fmt.Errorf("no readable save directory"))
	}
	store, err := openStore()
	if err != nil {
		return nil, err
	}
	m := versions.New(inst.SaveRoot, store)
	m.AutoBackupBeforeRestore = autoBackupBeforeRestore()
	return m, nil
}

type usageError struct {
	err error
}

func (e *usageError) Error() string {
	return e.err.Error()
}

func (e *usageError) Unwrap() error {
	return e.err
}

func wrapUsageError(err error) error {
	if err == nil {
		return nil
	}
	return &usageError{err: err}
}

func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if validate == nil {
			return nil
		}
		if err := validate(cmd, args); err != nil {
			return wrapUsageError(err)
		}
		return nil
	}
}

func isUsageError(err error) bool {
	var ue *usageError
	if errors.As(err, &ue) {
		return true
	}

	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command ")
}
