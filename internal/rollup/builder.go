package rollup

import (
	"context"
	"fmt"

	"github.com/KaramelBytes/retail-insights-cli/internal/logging"
	"github.com/KaramelBytes/retail-insights-cli/internal/store"
	"go.uber.org/zap"
)

// Default relation names.
const (
	DefaultViewName   = "unified_sales"
	DefaultMasterName = "master_sales"
)

// Options names the relations a Builder writes.
type Options struct {
	ViewName   string
	MasterName string
}

// Builder creates the rollup relations in a store.
type Builder struct {
	store  *store.Store
	log    *zap.Logger
	view   string
	master string
}

// New returns a Builder writing to s. Empty option names fall back to the
// defaults.
func New(s *store.Store, log *zap.Logger, opts Options) *Builder {
	log = logging.OrNop(log)
	if opts.ViewName == "" {
		opts.ViewName = DefaultViewName
	}
	if opts.MasterName == "" {
		opts.MasterName = DefaultMasterName
	}
	return &Builder{store: s, log: log, view: opts.ViewName, master: opts.MasterName}
}

// ViewName returns the name of the unified view.
func (b *Builder) ViewName() string { return b.view }

// MasterName returns the name of the master table.
func (b *Builder) MasterName() string { return b.master }

func (b *Builder) introspect(ctx context.Context) ([]string, map[string][]store.Column) {
	tables := b.store.ListTables(ctx)
	return tables, b.store.Schemas(ctx, tables)
}

// UnifiedView (re)creates the view (date, sku, qty, amount, source) over every
// table holding a sku and a date column. It returns the tables included; with
// none, nothing is created and the list is empty.
func (b *Builder) UnifiedView(ctx context.Context) ([]string, error) {
	tables, schemas := b.introspect(ctx)
	candidates := Candidates(tables, schemas, ViewRule, b.view, b.master)
	if len(candidates) == 0 {
		b.log.Info("no view candidates", zap.String("view", b.view))
		return candidates, nil
	}
	create := fmt.Sprintf("CREATE VIEW %s AS\n%s", store.QuoteIdent(b.view), UnionAll(candidates, schemas, ViewFields))
	b.log.Debug("view sql", zap.String("sql", create))
	if err := b.store.ExecTx(ctx, "DROP VIEW IF EXISTS "+store.QuoteIdent(b.view), create); err != nil {
		return nil, fmt.Errorf("create view %s: %w", b.view, err)
	}
	b.log.Info("view created", zap.String("view", b.view), zap.Strings("tables", candidates))
	return candidates, nil
}

// MasterTable (re)creates the table (order_id, date, sku, qty, amount,
// source) from every table holding a sku and an amount or quantity column.
// It returns the tables included; with none, nothing is created.
func (b *Builder) MasterTable(ctx context.Context) ([]string, error) {
	tables, schemas := b.introspect(ctx)
	candidates := Candidates(tables, schemas, MasterRule, b.view, b.master)
	if len(candidates) == 0 {
		b.log.Info("no master candidates", zap.String("table", b.master))
		return candidates, nil
	}
	create := fmt.Sprintf("CREATE TABLE %s AS\n%s", store.QuoteIdent(b.master), UnionAll(candidates, schemas, MasterFields))
	b.log.Debug("master sql", zap.String("sql", create))
	if err := b.store.ExecTx(ctx, "DROP TABLE IF EXISTS "+store.QuoteIdent(b.master), create); err != nil {
		return nil, fmt.Errorf("create table %s: %w", b.master, err)
	}
	b.log.Info("master table created", zap.String("table", b.master), zap.Strings("tables", candidates))
	return candidates, nil
}
