package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var loadSkipView bool

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Clean every CSV in the data folder and (re)load it as a table",
	Long: `Normalizes every *.csv in the data folder in place (file names, column names,
status/amount/quantity/date values), replaces one table per file and then
rebuilds the unified sales view. Files that cannot be read are skipped, as are
files named after the unified view or the master table (unified_sales.csv and
master_sales.csv by default).`,
	Example: `  retail-insights load
  retail-insights load --data-dir ./exports --db ./exports/retail.db`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		s, err := openStore()
		if err != nil {
			return err
		}
		tables, err := s.LoadAll(cmd.Context(), cfg.DataDir)
		if err != nil {
			return err
		}
		if len(tables) == 0 {
			fmt.Fprintf(out, "⚠ No CSV files loaded from %s\n", cfg.DataDir)
			return nil
		}
		fmt.Fprintf(out, "✓ Loaded %d table(s) into %s: %s\n", len(tables), s.Path(), strings.Join(tables, ", "))
		if loadSkipView {
			return nil
		}
		return buildView(cmd)
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
	loadCmd.Flags().BoolVar(&loadSkipView, "no-view", false, "do not rebuild the unified view after loading")
}
