package store

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/retail-insights-cli/internal/normalize"
	"go.uber.org/zap"
)

// Declared column types produced by InferType.
const (
	TypeInteger   = "INTEGER"
	TypeReal      = "REAL"
	TypeTimestamp = "TIMESTAMP"
	TypeText      = "TEXT"
)

// LoadAll normalizes every CSV of folder and (re)creates one table per file,
// named after the file stem. A file that fails to load, or whose stem is a
// reserved name, is logged and skipped.
// Returns the loaded table names in directory order.
func (s *Store) LoadAll(ctx context.Context, folder string) ([]string, error) {
	files, err := normalize.New(s.log).Folder(folder)
	if err != nil {
		return nil, err
	}
	loaded := make([]string, 0, len(files))
	for _, name := range files {
		table, err := s.LoadFile(ctx, filepath.Join(folder, name))
		if err != nil {
			s.log.Error("load failed", zap.String("file", name), zap.Error(err))
			continue
		}
		loaded = append(loaded, table)
	}
	return loaded, nil
}

// TableName returns the table a CSV file loads into.
func TableName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// LoadFile replaces the table named after path with the file's contents.
// The file is expected to be normalized already.
func (s *Store) LoadFile(ctx context.Context, path string) (string, error) {
	table := TableName(path)
	if table == "" {
		return "", fmt.Errorf("no table name for %q", path)
	}
	if slices.Contains(s.reserved, table) {
		return "", fmt.Errorf("%s: %w: %s", filepath.Base(path), ErrReservedName, table)
	}
	t, err := normalize.ReadTable(path, s.log)
	if err != nil {
		return "", err
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%s: no columns", path)
	}

	types := make([]string, len(t.Columns))
	for i := range t.Columns {
		types[i] = InferType(columnValues(t.Rows, i))
	}

	db, err := s.connect(ctx)
	if err != nil {
		return "", err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+QuoteIdent(table)); err != nil {
		return "", fmt.Errorf("drop %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, createTableSQL(table, t.Names(), types)); err != nil {
		return "", fmt.Errorf("create %s: %w", table, err)
	}
	stmt, err := tx.PrepareContext(ctx, insertSQL(table, len(t.Columns)))
	if err != nil {
		return "", fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(t.Columns))
	for _, row := range t.Rows {
		for i := range args {
			var v string
			if i < len(row) {
				v = row[i]
			}
			args[i] = convert(v, types[i])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return "", fmt.Errorf("insert into %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	s.log.Info("loaded",
		zap.String("table", table),
		zap.Int("rows", len(t.Rows)),
		zap.Int("columns", len(t.Columns)))
	return table, nil
}

func createTableSQL(table string, cols, types []string) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = QuoteIdent(c) + " " + types[i]
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", QuoteIdent(table), strings.Join(defs, ", "))
}

func insertSQL(table string, n int) string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
	return fmt.Sprintf("INSERT INTO %s VALUES (%s)", QuoteIdent(table), marks)
}

func columnValues(rows [][]string, i int) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		if i < len(r) {
			out = append(out, r[i])
		}
	}
	return out
}

var timestampLayouts = []string{normalize.DateLayout, "2006-01-02"}

func isTimestamp(v string) bool {
	for _, l := range timestampLayouts {
		if _, err := time.Parse(l, v); err == nil {
			return true
		}
	}
	return false
}

// InferType picks the narrowest declared type that fits every non-empty
// value: INTEGER, then REAL, then TIMESTAMP, else TEXT. A column with no
// values is TEXT.
func InferType(values []string) string {
	seen, ints, nums, stamps := 0, 0, 0, 0
	for _, raw := range values {
		v := strings.TrimSpace(raw)
		if v == "" {
			continue
		}
		seen++
		if _, err := strconv.ParseInt(v, 10, 64); err == nil {
			ints++
			nums++
			continue
		}
		if _, err := strconv.ParseFloat(v, 64); err == nil {
			nums++
			continue
		}
		if isTimestamp(v) {
			stamps++
		}
	}
	switch {
	case seen == 0:
		return TypeText
	case ints == seen:
		return TypeInteger
	case nums == seen:
		return TypeReal
	case stamps == seen:
		return TypeTimestamp
	default:
		return TypeText
	}
}

// convert maps a CSV cell onto the value bound for a column of type typ.
// Empty cells are NULL.
func convert(v, typ string) any {
	s := strings.TrimSpace(v)
	if s == "" {
		return nil
	}
	switch typ {
	case TypeInteger:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case TypeReal:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case TypeTimestamp:
		return s
	}
	return v
}
