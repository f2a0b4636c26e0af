package cmd

import (
	"fmt"
	"sort"

	"github.com/KaramelBytes/retail-insights-cli/internal/store"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List loaded tables and views",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		s, err := openStore()
		if err != nil {
			return err
		}
		tables := s.ListTables(cmd.Context())
		if len(tables) == 0 {
			fmt.Fprintln(out, "⚠ No tables loaded. Run 'retail-insights load' first.")
			return nil
		}
		fmt.Fprintf(out, "Tables (%d):\n", len(tables))
		for _, t := range tables {
			fmt.Fprintf(out, "  - %s\n", t)
		}
		return nil
	},
}

var tablesSchemaCmd = &cobra.Command{
	Use:   "schema <table>",
	Short: "Show the columns and declared types of a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		s, err := openStore()
		if err != nil {
			return err
		}
		cols := s.SchemaOf(cmd.Context(), args[0])
		if len(cols) == 0 {
			return fmt.Errorf("table not found: %s", args[0])
		}
		table := tablewriter.NewWriter(out)
		table.SetHeader([]string{"Column", "Type"})
		for _, c := range cols {
			table.Append([]string{c.Name, c.Type})
		}
		table.Render()
		return nil
	},
}

var tablesRelationsCmd = &cobra.Command{
	Use:   "relations",
	Short: "Show columns shared between tables (candidate join keys)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		s, err := openStore()
		if err != nil {
			return err
		}
		rows := relationRows(s.RelationshipGraph(cmd.Context()))
		if len(rows) == 0 {
			fmt.Fprintln(out, "No shared columns between tables.")
			return nil
		}
		table := tablewriter.NewWriter(out)
		table.SetHeader([]string{"Table", "Column", "Related"})
		for _, row := range rows {
			table.Append(row)
		}
		table.Render()
		return nil
	},
}

// relationRows flattens the graph into sorted (table, column, table.column) rows.
func relationRows(g store.Graph) [][]string {
	var rows [][]string
	tables := make([]string, 0, len(g))
	for t := range g {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	for _, t := range tables {
		cols := make([]string, 0, len(g[t]))
		for c := range g[t] {
			cols = append(cols, c)
		}
		sort.Strings(cols)
		for _, c := range cols {
			for _, e := range g[t][c] {
				rows = append(rows, []string{t, c, e.Table + "." + e.Column})
			}
		}
	}
	return rows
}

func init() {
	rootCmd.AddCommand(tablesCmd)
	tablesCmd.AddCommand(tablesSchemaCmd)
	tablesCmd.AddCommand(tablesRelationsCmd)
}
