// Package rollup synthesizes cross-table sales relations: the unified_sales
// view and the materialized master_sales table. Which tables take part and
// how their columns map onto the canonical fields is declared in lookup
// tables below, not in control flow.
package rollup

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/retail-insights-cli/internal/store"
)

// FieldSpec declares a canonical output field. The source column is the first
// of Aliases present in the table; failing that, the first column (in table
// order) whose name contains every entry of Contains. With no match the field
// is projected as Default.
type FieldSpec struct {
	Name     string
	Aliases  []string
	Contains []string
	Default  string
}

// Rule qualifies a table when every group has at least one member among the
// table's lowercased column names.
type Rule struct {
	Groups [][]string
}

var (
	skuAliases    = []string{"sku", "sku_code", "style_id"}
	dateAliases   = []string{"date", "order_date", "months"}
	qtyAliases    = []string{"qty", "pcs", "stock"}
	amountAliases = []string{"amount", "gross_amt", "rate"}
)

// ViewRule selects the tables of the unified view.
var ViewRule = Rule{Groups: [][]string{skuAliases, dateAliases}}

// MasterRule selects the tables of the master table.
var MasterRule = Rule{Groups: [][]string{skuAliases, {"amount", "qty", "gross_amt"}}}

var (
	dateField   = FieldSpec{Name: "date", Aliases: dateAliases, Default: "CAST(NULL AS TIMESTAMP)"}
	skuField    = FieldSpec{Name: "sku", Aliases: skuAliases, Default: "NULL"}
	qtyField    = FieldSpec{Name: "qty", Aliases: qtyAliases, Default: "0"}
	amountField = FieldSpec{Name: "amount", Aliases: amountAliases, Default: "0"}
	orderField  = FieldSpec{Name: "order_id", Contains: []string{"order", "id"}, Default: "NULL"}
)

// ViewFields are the columns of the unified view, before source.
var ViewFields = []FieldSpec{dateField, skuField, qtyField, amountField}

// MasterFields are the columns of the master table, before source.
var MasterFields = []FieldSpec{orderField, dateField, skuField, qtyField, amountField}

// SourceColumn tags every projected row with its table of origin.
const SourceColumn = "source"

// columnIndex maps lowercased column names to their declared spelling.
func columnIndex(cols []store.Column) map[string]string {
	idx := make(map[string]string, len(cols))
	for _, c := range cols {
		lc := strings.ToLower(c.Name)
		if _, dup := idx[lc]; !dup {
			idx[lc] = c.Name
		}
	}
	return idx
}

// Matches reports whether a table with cols satisfies r.
func (r Rule) Matches(cols []store.Column) bool {
	idx := columnIndex(cols)
	for _, group := range r.Groups {
		found := false
		for _, name := range group {
			if _, ok := idx[name]; ok {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Resolve returns the declared name of the column f maps to in cols.
func (f FieldSpec) Resolve(cols []store.Column) (string, bool) {
	idx := columnIndex(cols)
	for _, a := range f.Aliases {
		if name, ok := idx[a]; ok {
			return name, true
		}
	}
	if len(f.Contains) == 0 {
		return "", false
	}
	for _, c := range cols {
		lc := strings.ToLower(c.Name)
		all := true
		for _, sub := range f.Contains {
			if !strings.Contains(lc, sub) {
				all = false
				break
			}
		}
		if all {
			return c.Name, true
		}
	}
	return "", false
}

// Candidates returns, in the order of tables, those whose schema satisfies
// rule. Names listed in exclude never qualify.
func Candidates(tables []string, schemas map[string][]store.Column, rule Rule, exclude ...string) []string {
	skip := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		skip[e] = true
	}
	out := []string{}
	for _, t := range tables {
		if skip[t] {
			continue
		}
		if rule.Matches(schemas[t]) {
			out = append(out, t)
		}
	}
	return out
}

// Projection renders the SELECT mapping table onto fields, followed by the
// literal source column.
func Projection(table string, cols []store.Column, fields []FieldSpec) string {
	parts := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		expr := f.Default
		if name, ok := f.Resolve(cols); ok {
			expr = store.QuoteIdent(name)
		}
		parts = append(parts, fmt.Sprintf("%s AS %s", expr, store.QuoteIdent(f.Name)))
	}
	parts = append(parts, fmt.Sprintf("%s AS %s", store.QuoteLiteral(table), SourceColumn))
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(parts, ", "), store.QuoteIdent(table))
}

// UnionAll joins the projections of every candidate.
func UnionAll(tables []string, schemas map[string][]store.Column, fields []FieldSpec) string {
	selects := make([]string, len(tables))
	for i, t := range tables {
		selects[i] = Projection(t, schemas[t], fields)
	}
	return strings.Join(selects, "\nUNION ALL\n")
}
