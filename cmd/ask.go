package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/retail-insights-cli/internal/agent"
	"github.com/KaramelBytes/retail-insights-cli/internal/ai"
	"github.com/KaramelBytes/retail-insights-cli/internal/sqlguard"
	"github.com/KaramelBytes/retail-insights-cli/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	askTable      string
	askStructured bool
	askJSON       bool
	askLimit      int
	sqlJSON       bool
	sqlLimit      int
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Turn a question into SQL, validate it and run it",
	Example: `  retail-insights ask "total sales amount per sku"
  retail-insights ask --table amazon_sale_report "how many orders were cancelled?"
  retail-insights ask --structured "shipped orders with expedited shipping"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		ctx := cmd.Context()
		question := strings.Join(args, " ")

		s, err := openStore()
		if err != nil {
			return err
		}
		if _, err := s.RequireTables(ctx); err != nil {
			return fmt.Errorf("%w; run 'retail-insights load' first", err)
		}
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		ag := agent.NewSQLAgent(rt, s, logger, agent.Options{
			Model:                 cfg.Model,
			Temperature:           cfg.SQLTemperature,
			StructuredTemperature: cfg.StructuredTemperature,
		})

		var sqlText string
		if askStructured {
			var tables []string
			if askTable != "" {
				tables = []string{askTable}
			}
			res, err := ag.GenerateStructured(ctx, question, tables)
			if err != nil {
				return ai.Explain(err, cfg.Provider, cfg.Model)
			}
			if res.SQL == "" {
				return fmt.Errorf("the model did not return usable SQL")
			}
			sqlText = res.SQL
			if !askJSON && len(res.TablesUsed) > 0 {
				fmt.Fprintf(out, "Tables used: %s\n", strings.Join(res.TablesUsed, ", "))
			}
		} else {
			sqlText, err = ag.Generate(ctx, question, askTable)
			if err != nil {
				return ai.Explain(err, cfg.Provider, cfg.Model)
			}
		}
		logger.Info("question answered", zap.String("question", question), zap.String("sql", sqlText))
		if !askJSON {
			fmt.Fprintf(out, "Generated SQL:\n%s\n\n", sqlText)
		}
		return runChecked(cmd, s, sqlText, askJSON, askLimit)
	},
}

var sqlCmd = &cobra.Command{
	Use:   "sql <statement>",
	Short: "Validate and run a hand-written SELECT statement",
	Example: `  retail-insights sql "SELECT sku, SUM(qty) FROM unified_sales GROUP BY sku"`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		return runChecked(cmd, s, strings.Join(args, " "), sqlJSON, sqlLimit)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <statement>",
	Short: "Check a statement against the read-only SQL rules without running it",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ok, reason := sqlguard.Validate(strings.Join(args, " "))
		if !ok {
			return fmt.Errorf("validation failed: %s", reason)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s\n", reason)
		return nil
	},
}

// runChecked validates sqlText and, when accepted, executes it and prints the
// result either as a table followed by the first records, or as JSON only.
func runChecked(cmd *cobra.Command, s *store.Store, sqlText string, asJSON bool, limit int) error {
	out := cmd.OutOrStdout()
	if ok, reason := sqlguard.Validate(sqlText); !ok {
		logger.Warn("sql rejected", zap.String("sql", sqlText), zap.String("reason", reason))
		return fmt.Errorf("validation failed: %s", reason)
	}
	outcome := s.Run(cmd.Context(), sqlguard.Executable(sqlText))
	if !outcome.OK {
		return fmt.Errorf("SQL execution error: %s", outcome.Error)
	}
	if asJSON {
		return writeRecords(out, outcome.Result, limit)
	}
	renderResult(out, outcome.Result, 0)
	if limit > 0 && len(outcome.Result.Rows) > 0 {
		fmt.Fprintf(out, "\nFirst %d record(s):\n", min(limit, len(outcome.Result.Rows)))
		return writeRecords(out, outcome.Result, limit)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(sqlCmd)
	rootCmd.AddCommand(validateCmd)

	askCmd.Flags().StringVarP(&askTable, "table", "t", "", "restrict the schema sent to the model to one table")
	askCmd.Flags().BoolVar(&askStructured, "structured", false, "use the fuzzy-matching agent that answers with JSON")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print only the records as JSON")
	askCmd.Flags().IntVar(&askLimit, "limit", 10, "raw records to print after the table (with --json: records to print, 0 for all)")
	sqlCmd.Flags().BoolVar(&sqlJSON, "json", false, "print only the records as JSON")
	sqlCmd.Flags().IntVar(&sqlLimit, "limit", 10, "raw records to print after the table (with --json: records to print, 0 for all)")
}
