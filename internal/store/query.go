package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Result is a tabular query result.
type Result struct {
	Columns []string
	Rows    [][]any
}

// Records returns up to n rows keyed by column name; n <= 0 returns all rows.
func (r *Result) Records(n int) []map[string]any {
	if r == nil {
		return nil
	}
	if n <= 0 || n > len(r.Rows) {
		n = len(r.Rows)
	}
	out := make([]map[string]any, 0, n)
	for _, row := range r.Rows[:n] {
		rec := make(map[string]any, len(r.Columns))
		for i, c := range r.Columns {
			if i < len(row) {
				rec[c] = row[i]
			}
		}
		out = append(out, rec)
	}
	return out
}

// Outcome is the result of Run: either a Result or the engine's error text.
type Outcome struct {
	OK     bool
	Result *Result
	Error  string
}

// Query executes q and collects every row.
func (s *Store) Query(ctx context.Context, q string) (*Result, error) {
	db, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	res := &Result{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		res.Rows = append(res.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Run executes q and never fails: engine errors are reported in
// Outcome.Error.
func (s *Store) Run(ctx context.Context, q string) Outcome {
	res, err := s.Query(ctx, q)
	if err != nil {
		s.log.Debug("query failed", zap.String("sql", q), zap.Error(err))
		return Outcome{Error: err.Error()}
	}
	return Outcome{OK: true, Result: res}
}

// Sample returns the first n rows of table (10 when n <= 0).
func (s *Store) Sample(ctx context.Context, table string, n int) (*Result, error) {
	if n <= 0 {
		n = 10
	}
	return s.Query(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", QuoteIdent(table), n))
}
