package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/KaramelBytes/retail-insights-cli/internal/store"
	"github.com/olekukonko/tablewriter"
)

// renderResult prints res as a bordered table, showing at most maxRows rows
// (all when maxRows <= 0).
func renderResult(w io.Writer, res *store.Result, maxRows int) {
	if res == nil {
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader(res.Columns)
	rows := res.Rows
	if maxRows > 0 && len(rows) > maxRows {
		rows = rows[:maxRows]
	}
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatValue(v)
		}
		table.Append(cells)
	}
	table.Render()
	if len(rows) < len(res.Rows) {
		fmt.Fprintf(w, "(%d of %d rows shown)\n", len(rows), len(res.Rows))
	} else {
		fmt.Fprintf(w, "(%d rows)\n", len(res.Rows))
	}
}

// writeRecords prints up to n rows as a JSON array of column→value objects.
func writeRecords(w io.Writer, res *store.Result, n int) error {
	recs := res.Records(n)
	if recs == nil {
		recs = []map[string]any{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(recs)
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return x
	case []byte:
		return string(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(v)
	}
}
