package cmd

import (
	"github.com/spf13/cobra"

	"github.com/moria-tools/moria-manager/internal/detect"
	"github.com/moria-tools/moria-manager/internal/logging"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Probe the known installation locations",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		candidates := detect.Discover(detect.CustomPaths{InstallRoot: installRoot, SaveRoot: saveRoot})

		for _, c := range candidates {
			logging.Infof("%s:\n", c.DisplayName)
			logging.Infof("  game:  %s %s\n", mark(c.InstallValid), orUnset(c.InstallRoot))
			logging.Infof("  saves: %s %s\n", mark(c.SaveValid), orUnset(c.SaveRoot))
		}
		return nil
	},
}

func mark(ok bool) string {
	if ok {
		return "[ok]"
	}
	return "[--]"
}

func orUnset(path string) string {
	if path == "" {
		return "(not set)"
	}
	return path
}

func init() {
	rootCmd.AddCommand(detectCmd)
}
