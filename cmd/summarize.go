package cmd

import (
	"fmt"
	"slices"

	"github.com/KaramelBytes/retail-insights-cli/internal/agent"
	"github.com/KaramelBytes/retail-insights-cli/internal/ai"
	"github.com/KaramelBytes/retail-insights-cli/internal/analysis"
	"github.com/KaramelBytes/retail-insights-cli/internal/store"
	"github.com/spf13/cobra"
)

var (
	summarizeStream      bool
	summarizeProfileOnly bool
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <table>",
	Short: "Profile a table and ask the model for an analyst-style summary",
	Example: `  retail-insights summarize amazon_sale_report
  retail-insights summarize unified_sales --stream
  retail-insights summarize stock --profile-only`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		ctx := cmd.Context()
		table := args[0]

		s, err := openStore()
		if err != nil {
			return err
		}
		tables, err := s.RequireTables(ctx)
		if err != nil {
			return fmt.Errorf("%w; run 'retail-insights load' first", err)
		}
		if !slices.Contains(tables, table) {
			return fmt.Errorf("table not found: %s (available: %v)", table, tables)
		}

		sample, err := s.Sample(ctx, table, cfg.SampleRows)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Sample of %s:\n", table)
		renderResult(out, sample, 0)

		all, err := s.Query(ctx, "SELECT * FROM "+store.QuoteIdent(table))
		if err != nil {
			return err
		}
		declared := map[string]string{}
		for _, c := range s.SchemaOf(ctx, table) {
			declared[c.Name] = c.Type
		}
		profile := analysis.ProfileResult(table, all.Columns, all.Rows, declared)
		fmt.Fprintln(out)
		fmt.Fprint(out, profile.Markdown())
		if summarizeProfileOnly {
			return nil
		}

		rt, err := newRuntime()
		if err != nil {
			return err
		}
		sa := agent.NewSummaryAgent(rt, logger, cfg.Model, cfg.SummaryTemperature)
		fmt.Fprintln(out, "\nSummary:")
		if summarizeStream {
			if _, ok := rt.(ai.StreamRuntime); !ok {
				fmt.Fprintln(out, "⚠ Streaming not supported for this provider; falling back to non-streaming.")
			}
			if _, err := sa.SummarizeStream(ctx, profile, func(d string) { fmt.Fprint(out, d) }); err != nil {
				return ai.Explain(err, cfg.Provider, cfg.Model)
			}
			fmt.Fprintln(out)
			return nil
		}
		text, err := sa.Summarize(ctx, profile)
		if err != nil {
			return ai.Explain(err, cfg.Provider, cfg.Model)
		}
		fmt.Fprintln(out, text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
	summarizeCmd.Flags().BoolVar(&summarizeStream, "stream", false, "stream the summary if supported by the provider")
	summarizeCmd.Flags().BoolVar(&summarizeProfileOnly, "profile-only", false, "print the sample and profile without calling the model")
}
