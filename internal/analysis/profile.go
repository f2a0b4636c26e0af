// Package analysis profiles query results into the compact statistics a
// language model needs to summarize a table.
package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Column kinds.
const (
	KindNumeric     = "numeric"
	KindCategorical = "categorical"
	KindDatetime    = "datetime"
	KindEmpty       = "empty"
)

// KeyColumns is how many numeric and categorical columns a profile highlights.
const KeyColumns = 3

// TopValues is how many frequent values are kept per categorical column.
const TopValues = 3

// OutlierThreshold is the robust |z| above which a value counts as an outlier.
const OutlierThreshold = 3.5

// Profile summarizes one table.
type Profile struct {
	Name string
	Rows int
	Cols []ColumnSummary
	// KeyNumeric holds the numeric columns with the highest sample variance.
	KeyNumeric []string
	// KeyCategorical holds the categorical columns with the most distinct values.
	KeyCategorical []string
}

// ColumnSummary captures the kind and statistics of one column.
type ColumnSummary struct {
	Name     string
	Kind     string
	Declared string
	NonNull  int
	Missing  int
	Unique   int
	// Numeric stats; Std and Variance are sample statistics.
	Min, Max, Mean, Std, Variance float64
	OutliersCount                 int
	// Categorical top values, most frequent first.
	TopValues []CategoryCount
}

type CategoryCount struct {
	Value string
	Count int
}

// ProfileResult profiles rows laid out as columns. declared maps column names to
// their declared database type and may be nil.
func ProfileResult(name string, columns []string, rows [][]any, declared map[string]string) *Profile {
	p := &Profile{Name: name, Rows: len(rows), Cols: make([]ColumnSummary, len(columns))}
	for i, c := range columns {
		p.Cols[i] = summarize(c, i, rows)
		p.Cols[i].Declared = declared[c]
	}
	p.KeyNumeric = rank(p.Cols, KindNumeric, func(c ColumnSummary) float64 {
		if c.NonNull < 2 {
			return math.Inf(-1)
		}
		return c.Variance
	})
	p.KeyCategorical = rank(p.Cols, KindCategorical, func(c ColumnSummary) float64 {
		return float64(c.Unique)
	})
	return p
}

// Column returns the summary of the named column.
func (p *Profile) Column(name string) (ColumnSummary, bool) {
	for _, c := range p.Cols {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSummary{}, false
}

func summarize(name string, idx int, rows [][]any) ColumnSummary {
	cs := ColumnSummary{Name: name}
	var nums []float64
	counts := map[string]int{}
	var order []string
	numeric, datetime, other := 0, 0, 0
	for _, r := range rows {
		if idx >= len(r) || r[idx] == nil {
			cs.Missing++
			continue
		}
		cs.NonNull++
		v := r[idx]
		if f, ok := asFloat(v); ok {
			numeric++
			nums = append(nums, f)
		} else if _, ok := v.(time.Time); ok {
			datetime++
		} else {
			other++
		}
		key := valueString(v)
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
	}
	cs.Unique = len(counts)

	switch {
	case cs.NonNull == 0:
		cs.Kind = KindEmpty
	case numeric == cs.NonNull:
		cs.Kind = KindNumeric
		numericStats(&cs, nums)
	case datetime == cs.NonNull:
		cs.Kind = KindDatetime
	default:
		cs.Kind = KindCategorical
		cs.TopValues = topValues(counts, order, TopValues)
	}
	return cs
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case float64:
		return x, !math.IsNaN(x)
	case float32:
		return float64(x), true
	}
	return 0, false
}

func valueString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	}
	return fmt.Sprint(v)
}

func numericStats(cs *ColumnSummary, vals []float64) {
	n := float64(len(vals))
	cs.Min, cs.Max = vals[0], vals[0]
	sum := 0.0
	for _, v := range vals {
		sum += v
		cs.Min = math.Min(cs.Min, v)
		cs.Max = math.Max(cs.Max, v)
	}
	cs.Mean = sum / n
	if len(vals) > 1 {
		ss := 0.0
		for _, v := range vals {
			d := v - cs.Mean
			ss += d * d
		}
		cs.Variance = ss / (n - 1)
		cs.Std = math.Sqrt(cs.Variance)
	}
	median, mad := medianMAD(vals)
	if mad > 0 {
		for _, v := range vals {
			if math.Abs(0.6745*(v-median)/mad) > OutlierThreshold {
				cs.OutliersCount++
			}
		}
	}
}

// topValues returns the n most frequent values; ties keep first-seen order.
func topValues(counts map[string]int, order []string, n int) []CategoryCount {
	out := make([]CategoryCount, len(order))
	for i, v := range order {
		out[i] = CategoryCount{Value: v, Count: counts[v]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// rank returns up to KeyColumns columns of kind, highest score first; ties
// keep column order.
func rank(cols []ColumnSummary, kind string, score func(ColumnSummary) float64) []string {
	var picked []ColumnSummary
	for _, c := range cols {
		if c.Kind == kind {
			picked = append(picked, c)
		}
	}
	sort.SliceStable(picked, func(i, j int) bool { return score(picked[i]) > score(picked[j]) })
	names := []string{}
	for i := 0; i < len(picked) && i < KeyColumns; i++ {
		names = append(names, picked[i].Name)
	}
	return names
}

// Markdown renders a compact report suitable for prompts and the terminal.
func (p *Profile) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	fmt.Fprintf(&b, "Table: %s\n", p.Name)
	fmt.Fprintf(&b, "Rows: %d\n", p.Rows)
	fmt.Fprintf(&b, "Columns: %d\n\n", len(p.Cols))

	b.WriteString("[COLUMN TYPES]\n")
	for _, c := range p.Cols {
		fmt.Fprintf(&b, "- %s: %s", safeName(c.Name), c.Kind)
		if c.Declared != "" {
			fmt.Fprintf(&b, " (%s)", c.Declared)
		}
		if c.Missing > 0 {
			fmt.Fprintf(&b, ", missing %.1f%%", float64(c.Missing)*100/float64(c.Missing+c.NonNull))
		}
		b.WriteString("\n")
	}

	if len(p.KeyNumeric) > 0 {
		b.WriteString("\n[KEY NUMERIC COLUMNS] (top 3 by variance)\n")
		for _, name := range p.KeyNumeric {
			c, _ := p.Column(name)
			fmt.Fprintf(&b, "- %s: mean %.4g, min %.4g, max %.4g, std %.4g", safeName(name), c.Mean, c.Min, c.Max, c.Std)
			if c.OutliersCount > 0 {
				fmt.Fprintf(&b, "; outliers: %d above |z|>%.1f", c.OutliersCount, OutlierThreshold)
			}
			b.WriteString("\n")
		}
	}
	if len(p.KeyCategorical) > 0 {
		b.WriteString("\n[KEY CATEGORICAL COLUMNS] (top 3 by distinct values)\n")
		for _, name := range p.KeyCategorical {
			c, _ := p.Column(name)
			fmt.Fprintf(&b, "- %s: unique=%d; top: ", safeName(name), c.Unique)
			for i, kv := range c.TopValues {
				if i > 0 {
					b.WriteString(", ")
				}
				fmt.Fprintf(&b, "%s(%d)", safeVal(kv.Value), kv.Count)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
