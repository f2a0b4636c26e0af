// Package store owns the embedded analytical database: loading normalized
// CSVs into tables, schema introspection and query execution.
//
// Every operation opens its own connection and closes it before returning, so
// a Store value carries no open handle and is safe to copy.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/KaramelBytes/retail-insights-cli/internal/logging"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// ErrNoTables is returned when an operation needs at least one loaded table.
var ErrNoTables = errors.New("no tables loaded")

// ErrReservedName is returned when a CSV would load under a name reserved
// for a derived relation such as the unified view.
var ErrReservedName = errors.New("table name is reserved")

// Store is a handle on a database file.
type Store struct {
	path     string
	log      *zap.Logger
	reserved []string
}

// Open returns a Store for the database file at path, creating its parent
// directory when missing. The file itself is created on first use.
func Open(path string, log *zap.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path is required")
	}
	log = logging.OrNop(log)
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure database dir: %w", err)
		}
	}
	return &Store{path: path, log: log}, nil
}

// Reserve marks names that loading must never replace.
func (s *Store) Reserve(names ...string) {
	for _, n := range names {
		if n != "" && !slices.Contains(s.reserved, n) {
			s.reserved = append(slices.Clip(s.reserved), n)
		}
	}
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) connect(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open(DriverName, s.path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}

// ExecTx runs stmts in order inside one transaction.
func (s *Store) ExecTx(ctx context.Context, stmts ...string) error {
	db, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// QuoteIdent quotes an identifier for use in generated SQL.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteLiteral quotes a string literal for use in generated SQL.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
