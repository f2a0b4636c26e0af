package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "db", "test.db"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data := filepath.Join(dir, "data")
	if err := os.MkdirAll(data, 0o755); err != nil {
		t.Fatal(err)
	}
	return s, data
}

func writeCSV(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestInferType(t *testing.T) {
	cases := []struct {
		name string
		in   []string
		want string
	}{
		{"ints", []string{"1", "2", "", "-3"}, TypeInteger},
		{"reals", []string{"1", "2.5", "0.0"}, TypeReal},
		{"timestamps", []string{"2022-04-30 00:00:00", "2022-05-01", ""}, TypeTimestamp},
		{"mixed", []string{"1", "abc"}, TypeText},
		{"empty", []string{"", " "}, TypeText},
		{"none", nil, TypeText},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := InferType(tc.in); got != tc.want {
				t.Fatalf("InferType(%v) = %s, want %s", tc.in, got, tc.want)
			}
		})
	}
}

func TestLoadAllCreatesTables(t *testing.T) {
	s, data := newTestStore(t)
	ctx := context.Background()
	writeCSV(t, data, "Amazon Sale Report.csv",
		"Order ID,SKU,Qty,Amount,Date,Status\n"+
			"o-1,SKU-A,2,\"₹1,000\",04/30/2022,Shipped\n"+
			"o-2,SKU-B,1,250,05/01/2022,Cancelled\n")
	writeCSV(t, data, "stock.csv", "sku,warehouse\nSKU-A,north\nSKU-B,\n")
	writeCSV(t, data, "broken.csv", "")

	loaded, err := s.LoadAll(ctx, data)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(loaded) != 2 || loaded[0] != "amazon_sale_report" || loaded[1] != "stock" {
		t.Fatalf("unexpected loaded tables: %v", loaded)
	}

	tables := s.ListTables(ctx)
	if len(tables) != 2 || tables[0] != "amazon_sale_report" {
		t.Fatalf("unexpected ListTables: %v", tables)
	}

	cols := s.SchemaOf(ctx, "amazon_sale_report")
	want := []Column{
		{"order_id", TypeText}, {"sku", TypeText}, {"qty", TypeInteger},
		{"amount", TypeReal}, {"date", TypeTimestamp}, {"status", TypeText},
	}
	if len(cols) != len(want) {
		t.Fatalf("unexpected schema: %v", cols)
	}
	for i := range want {
		if cols[i] != want[i] {
			t.Errorf("column %d = %v, want %v", i, cols[i], want[i])
		}
	}

	res, err := s.Query(ctx, "SELECT SUM(amount) AS total, COUNT(*) AS n FROM amazon_sale_report")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if got := res.Rows[0][0]; got != 1250.0 {
		t.Fatalf("sum = %v (%T)", got, got)
	}
	if got := res.Rows[0][1]; got != int64(2) {
		t.Fatalf("count = %v (%T)", got, got)
	}

	res, err = s.Query(ctx, "SELECT COUNT(*) FROM stock WHERE warehouse IS NULL")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.Rows[0][0] != int64(1) {
		t.Fatalf("expected empty cell to load as NULL, got %v", res.Rows[0][0])
	}
}

func TestLoadAllReplacesTables(t *testing.T) {
	s, data := newTestStore(t)
	ctx := context.Background()
	writeCSV(t, data, "stock.csv", "sku,stock\nA,1\nB,2\n")
	if _, err := s.LoadAll(ctx, data); err != nil {
		t.Fatal(err)
	}
	writeCSV(t, data, "stock.csv", "sku,stock\nA,5\n")
	if _, err := s.LoadAll(ctx, data); err != nil {
		t.Fatal(err)
	}
	res, err := s.Query(ctx, "SELECT COUNT(*), SUM(stock) FROM stock")
	if err != nil {
		t.Fatal(err)
	}
	if res.Rows[0][0] != int64(1) || res.Rows[0][1] != int64(5) {
		t.Fatalf("expected table to be replaced, got %v", res.Rows[0])
	}
}

func TestLoadSkipsReservedNames(t *testing.T) {
	s, data := newTestStore(t)
	ctx := context.Background()
	s.Reserve("unified_sales", "", "unified_sales")
	writeCSV(t, data, "unified_sales.csv", "sku,qty\nA,1\n")
	writeCSV(t, data, "stock.csv", "sku,stock\nA,1\n")

	loaded, err := s.LoadAll(ctx, data)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(loaded) != 1 || loaded[0] != "stock" {
		t.Fatalf("unexpected loaded tables: %v", loaded)
	}
	if _, err := s.LoadFile(ctx, filepath.Join(data, "unified_sales.csv")); !errors.Is(err, ErrReservedName) {
		t.Fatalf("expected ErrReservedName, got %v", err)
	}
	if got := s.ListTables(ctx); len(got) != 1 || got[0] != "stock" {
		t.Fatalf("unexpected tables: %v", got)
	}
}

func TestIntrospectionDegradesToEmpty(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	if got := s.ListTables(ctx); len(got) != 0 {
		t.Fatalf("expected no tables, got %v", got)
	}
	if got := s.SchemaOf(ctx, "missing"); len(got) != 0 {
		t.Fatalf("expected empty schema, got %v", got)
	}
	if got := s.SchemaSummary(ctx, "missing"); got != "" {
		t.Fatalf("expected empty summary, got %q", got)
	}
	if _, err := s.RequireTables(ctx); !errors.Is(err, ErrNoTables) {
		t.Fatalf("expected ErrNoTables, got %v", err)
	}
}

func TestSchemaSummary(t *testing.T) {
	s, data := newTestStore(t)
	ctx := context.Background()
	writeCSV(t, data, "stock.csv", "sku,stock\nA,1\n")
	if _, err := s.LoadAll(ctx, data); err != nil {
		t.Fatal(err)
	}
	if got := s.SchemaSummary(ctx, "stock"); got != "sku (TEXT), stock (INTEGER)" {
		t.Fatalf("SchemaSummary = %q", got)
	}
}

func TestBuildGraph(t *testing.T) {
	tables := []string{"orders", "stock", "returns"}
	schemas := map[string][]Column{
		"orders":  {{Name: "sku"}, {Name: "order_id"}, {Name: "amount"}},
		"stock":   {{Name: "sku"}, {Name: "stock"}},
		"returns": {{Name: "order_id"}, {Name: "reason"}},
	}
	g := BuildGraph(tables, schemas)

	if edges := g["orders"]["sku"]; len(edges) != 1 || edges[0] != (Edge{Table: "stock", Column: "sku"}) {
		t.Fatalf("orders.sku edges = %v", edges)
	}
	if edges := g["stock"]["sku"]; len(edges) != 1 || edges[0].Table != "orders" {
		t.Fatalf("stock.sku edges = %v", edges)
	}
	if edges := g["returns"]["order_id"]; len(edges) != 1 || edges[0].Table != "orders" {
		t.Fatalf("returns.order_id edges = %v", edges)
	}
	if _, ok := g["orders"]["amount"]; ok {
		t.Fatalf("unshared column should not appear: %v", g["orders"])
	}
}

func TestBuildGraphKeepsIsolatedTables(t *testing.T) {
	tables := []string{"orders", "weather"}
	schemas := map[string][]Column{
		"orders":  {{Name: "sku"}},
		"weather": {{Name: "city"}},
	}
	g := BuildGraph(tables, schemas)
	if len(g) != 2 {
		t.Fatalf("expected an entry per table, got %v", g)
	}
	for _, tbl := range tables {
		cols, ok := g[tbl]
		if !ok || cols == nil || len(cols) != 0 {
			t.Fatalf("%s should map to an empty column set, got %v (present=%v)", tbl, cols, ok)
		}
	}
}

func TestRelationshipGraphFromDatabase(t *testing.T) {
	s, data := newTestStore(t)
	ctx := context.Background()
	writeCSV(t, data, "a.csv", "sku,qty\nA,1\n")
	writeCSV(t, data, "b.csv", "sku,stock\nA,1\n")
	writeCSV(t, data, "c.csv", "name\nx\n")
	if _, err := s.LoadAll(ctx, data); err != nil {
		t.Fatal(err)
	}
	g := s.RelationshipGraph(ctx)
	if len(g) != 3 || len(g["c"]) != 0 {
		t.Fatalf("expected every table with c unlinked, got %v", g)
	}
	if g["a"]["sku"][0].Table != "b" || g["b"]["sku"][0].Table != "a" {
		t.Fatalf("unexpected graph %v", g)
	}

	schemas := s.Schemas(ctx, []string{"a", "missing"})
	if len(schemas["a"]) != 2 || schemas["a"][0].Name != "sku" {
		t.Fatalf("Schemas(a) = %v", schemas["a"])
	}
	if cols, ok := schemas["missing"]; !ok || len(cols) != 0 {
		t.Fatalf("Schemas(missing) = %v (present=%v)", cols, ok)
	}
}

func TestRunReportsErrors(t *testing.T) {
	s, _ := newTestStore(t)
	out := s.Run(context.Background(), "SELECT * FROM nowhere")
	if out.OK || out.Error == "" || out.Result != nil {
		t.Fatalf("expected failed outcome, got %+v", out)
	}
	out = s.Run(context.Background(), "SELECT 1 AS one")
	if !out.OK || out.Result.Columns[0] != "one" {
		t.Fatalf("expected success, got %+v", out)
	}
}

func TestSampleAndRecords(t *testing.T) {
	s, data := newTestStore(t)
	ctx := context.Background()
	writeCSV(t, data, "stock.csv", "sku,stock\nA,1\nB,2\nC,3\n")
	if _, err := s.LoadAll(ctx, data); err != nil {
		t.Fatal(err)
	}
	res, err := s.Sample(ctx, "stock", 2)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(res.Rows))
	}
	recs := res.Records(1)
	if len(recs) != 1 || recs[0]["sku"] != "A" || recs[0]["stock"] != int64(1) {
		t.Fatalf("unexpected records %v", recs)
	}
	if all := res.Records(0); len(all) != 2 {
		t.Fatalf("Records(0) should return every row, got %d", len(all))
	}
}

func TestExecTxRollsBack(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	err := s.ExecTx(ctx, "CREATE TABLE t (x INTEGER)", "INSERT INTO nowhere VALUES (1)")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := s.ListTables(ctx); len(got) != 0 {
		t.Fatalf("expected rollback, got %v", got)
	}
}

func TestQuoting(t *testing.T) {
	if got := QuoteIdent(`we"ird`); got != `"we""ird"` {
		t.Fatalf("QuoteIdent = %s", got)
	}
	if got := QuoteLiteral("o'brien"); got != "'o''brien'" {
		t.Fatalf("QuoteLiteral = %s", got)
	}
}
