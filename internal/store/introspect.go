package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Column is a column name and its declared type.
type Column struct {
	Name string
	Type string
}

// Edge points at a column of another table sharing the same name.
type Edge struct {
	Table  string
	Column string
}

// Graph maps table -> column -> the columns of other tables with that name.
type Graph map[string]map[string][]Edge

// ListTables returns the tables and views of the database ordered by name.
// Any failure yields an empty list.
func (s *Store) ListTables(ctx context.Context) []string {
	tables, err := s.listTables(ctx)
	if err != nil {
		s.log.Debug("list tables failed", zap.Error(err))
		return []string{}
	}
	return tables
}

func (s *Store) listTables(ctx context.Context) ([]string, error) {
	db, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type IN ('table','view') AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// RequireTables is ListTables, failing with ErrNoTables when the database is
// empty.
func (s *Store) RequireTables(ctx context.Context) ([]string, error) {
	tables := s.ListTables(ctx)
	if len(tables) == 0 {
		return nil, ErrNoTables
	}
	return tables, nil
}

// SchemaOf returns the columns of table in declaration order. A missing table
// or any failure yields an empty list.
func (s *Store) SchemaOf(ctx context.Context, table string) []Column {
	cols, err := s.schemaOf(ctx, table)
	if err != nil {
		s.log.Debug("schema lookup failed", zap.String("table", table), zap.Error(err))
		return []Column{}
	}
	return cols
}

func (s *Store) schemaOf(ctx context.Context, table string) ([]Column, error) {
	db, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return tableInfo(ctx, db, table)
}

func tableInfo(ctx context.Context, db *sql.DB, table string) ([]Column, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", QuoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("table_info %s: %w", table, err)
	}
	defer rows.Close()

	cols := []Column{}
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, Column{Name: name, Type: typ})
	}
	return cols, rows.Err()
}

// SchemaSummary renders the columns of table as "col (TYPE), col2 (TYPE)".
// Columns without a declared type (expression columns of a view) render as
// the bare name. Failure yields "".
func (s *Store) SchemaSummary(ctx context.Context, table string) string {
	return FormatSchema(s.SchemaOf(ctx, table))
}

// FormatSchema renders cols the way SchemaSummary does.
func FormatSchema(cols []Column) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		if c.Type == "" {
			parts[i] = c.Name
			continue
		}
		parts[i] = fmt.Sprintf("%s (%s)", c.Name, c.Type)
	}
	return strings.Join(parts, ", ")
}

// Schemas returns the columns of each of tables, keyed by name.
func (s *Store) Schemas(ctx context.Context, tables []string) map[string][]Column {
	out := make(map[string][]Column, len(tables))
	for _, t := range tables {
		out[t] = s.SchemaOf(ctx, t)
	}
	return out
}

// RelationshipGraph links columns that share a name across tables. For every
// ordered pair of distinct tables (a, b) each shared column c adds the edge
// a.c -> b.c; the reverse edge is recorded when the pair is visited as (b, a).
// Every table has an entry, empty when it shares no column.
func (s *Store) RelationshipGraph(ctx context.Context) Graph {
	tables := s.ListTables(ctx)
	return BuildGraph(tables, s.Schemas(ctx, tables))
}

// BuildGraph computes the relationship graph of already introspected tables.
func BuildGraph(tables []string, schemas map[string][]Column) Graph {
	g := make(Graph, len(tables))
	for _, a := range tables {
		g[a] = map[string][]Edge{}
		for _, b := range tables {
			if a == b {
				continue
			}
			other := make(map[string]bool, len(schemas[b]))
			for _, c := range schemas[b] {
				other[c.Name] = true
			}
			for _, c := range schemas[a] {
				if other[c.Name] {
					g[a][c.Name] = append(g[a][c.Name], Edge{Table: b, Column: c.Name})
				}
			}
		}
	}
	return g
}
