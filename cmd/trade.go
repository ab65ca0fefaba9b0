package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/moria-tools/moria-manager/internal/logging"
	"github.com/moria-tools/moria-manager/internal/trade"
)

var tradeCatalogPath string

var tradeCmd = &cobra.Command{
	Use:   "trade",
	Short: "Track merchant trade orders",
	Long:  "A checklist of what each merchant buys. Checked state and quantities persist across runs; entries for items no longer in the catalog are kept and marked orphaned.",
}

func openLedger() (*trade.Ledger, error) {
	catalog := trade.DefaultCatalog()
	if tradeCatalogPath != "" {
		var err error
		if catalog, err = trade.LoadCatalogFile(tradeCatalogPath); err != nil {
			return nil, err
		}
	}
	return trade.Load(configDir, catalog)
}

var tradePending bool

var tradeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List merchants and their orders",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		ledger, err := openLedger()
		if err != nil {
			return err
		}

		state := make(map[string]trade.Entry)
		for _, e := range ledger.Entries() {
			state[e.ItemID] = e
		}

		for _, m := range ledger.Merchants() {
			logging.Infof("%s:\n", m.DisplayName)
			for _, o := range m.Orders {
				e := state[o.ItemID]
				if tradePending && e.Completed {
					continue
				}
				logging.Infof("  %s %s (x%d)  [%s]\n", checkMark(e.Completed), e.DisplayName, e.Quantity, e.ItemID)
			}
		}

		var orphans []trade.Entry
		for _, e := range ledger.Entries() {
			if e.Orphaned && !(tradePending && e.Completed) {
				orphans = append(orphans, e)
			}
		}
		if len(orphans) > 0 {
			logging.Infoln("No longer in the catalog:")
			for _, e := range orphans {
				logging.Infof("  %s %s (x%d)  [%s]\n", checkMark(e.Completed), e.DisplayName, e.Quantity, e.ItemID)
			}
		}
		return nil
	},
}

func checkMark(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

var tradeCheckCmd = &cobra.Command{
	Use:   "check <itemId>",
	Short: "Mark an order fulfilled",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE:  func(cmd *cobra.Command, args []string) error { return setCompleted(args[0], true) },
}

var tradeUncheckCmd = &cobra.Command{
	Use:   "uncheck <itemId>",
	Short: "Mark an order unfulfilled",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE:  func(cmd *cobra.Command, args []string) error { return setCompleted(args[0], false) },
}

func setCompleted(itemID string, done bool) error {
	ledger, err := openLedger()
	if err != nil {
		return err
	}
	if err := ledger.SetCompleted(itemID, done); err != nil {
		return err
	}
	return ledger.Persist()
}

var tradeQtyCmd = &cobra.Command{
	Use:   "qty <itemId> <n>",
	Short: "Record how many of an item are on hand",
	Args:  usageArgs(cobra.ExactArgs(2)),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return wrapUsageError(err)
		}
		ledger, err := openLedger()
		if err != nil {
			return err
		}
		if err := ledger.SetQuantity(args[0], n); err != nil {
			return err
		}
		return ledger.Persist()
	},
}

var tradeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Reset every catalog order to unchecked",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		ledger, err := openLedger()
		if err != nil {
			return err
		}
		ledger.ClearAll()
		return ledger.Persist()
	},
}

func init() {
	tradeCmd.PersistentFlags().StringVar(&tradeCatalogPath, "catalog", "", "Load merchant orders from a game-exported order-deck JSON file")
	tradeListCmd.Flags().BoolVar(&tradePending, "pending", false, "Only show unfulfilled orders")

	tradeCmd.AddCommand(tradeListCmd, tradeCheckCmd, tradeUncheckCmd, tradeQtyCmd, tradeClearCmd)
	rootCmd.AddCommand(tradeCmd)
}
