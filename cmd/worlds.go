package cmd

import (
	"github.com/spf13/cobra"

	"github.com/moria-tools/moria-manager/internal/logging"
	"github.com/moria-tools/moria-manager/internal/saves"
)

var worldsCmd = &cobra.Command{
	Use:   "worlds",
	Short: "List worlds and characters in the save directory",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newVersionManager()
		if err != nil {
			return err
		}
		groups, err := mgr.Worlds()
		if err != nil {
			return err
		}
		if len(groups) == 0 {
			logging.Infoln("No save files found.")
			return nil
		}

		for _, g := range groups {
			kind := "world"
			if g.Kind == saves.Character {
				kind = "character"
			}
			logging.Infof("%s (%s, %s)\n", g.DisplayName, g.BaseName, kind)
			for _, v := range g.Versions {
				logging.Infof("  %-7s %s\n", v.Type, v.Path)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(worldsCmd)
}
