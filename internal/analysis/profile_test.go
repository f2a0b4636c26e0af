package analysis

import (
	"math"
	"strings"
	"testing"
	"time"
)

var (
	profileCols = []string{"order_id", "amount", "qty", "discount", "status", "sku", "city", "region", "date", "note"}
	day         = time.Date(2022, 4, 30, 0, 0, 0, 0, time.UTC)
	profileRows = [][]any{
		{int64(1), 10.0, int64(1), int64(0), "shipped", "A", "x", "n", day, nil},
		{int64(2), 20.0, int64(1), int64(0), "shipped", "B", "x", "n", day, nil},
		{int64(3), 30.0, int64(1), int64(0), "cancelled", "C", "y", "n", day, nil},
		{int64(4), 40.0, int64(1), int64(0), "returned", "D", "y", "n", day, nil},
		{int64(5), 1000.0, int64(2), int64(0), "shipped", "E", nil, "n", day, nil},
	}
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestProfileKinds(t *testing.T) {
	p := ProfileResult("amazon_sale_report", profileCols, profileRows, nil)
	if p.Rows != 5 || len(p.Cols) != len(profileCols) {
		t.Fatalf("unexpected shape: rows=%d cols=%d", p.Rows, len(p.Cols))
	}
	want := map[string]string{
		"order_id": KindNumeric, "amount": KindNumeric, "status": KindCategorical,
		"city": KindCategorical, "date": KindDatetime, "note": KindEmpty,
	}
	for name, kind := range want {
		c, ok := p.Column(name)
		if !ok || c.Kind != kind {
			t.Errorf("%s: kind %q, want %q", name, c.Kind, kind)
		}
	}
	city, _ := p.Column("city")
	if city.Missing != 1 || city.NonNull != 4 || city.Unique != 2 {
		t.Errorf("city counts: %+v", city)
	}
}

func TestProfileNumericStats(t *testing.T) {
	p := ProfileResult("t", profileCols, profileRows, nil)
	id, _ := p.Column("order_id")
	if !approx(id.Mean, 3) || !approx(id.Variance, 2.5) || !approx(id.Std, math.Sqrt(2.5)) {
		t.Errorf("order_id stats: %+v", id)
	}
	amt, _ := p.Column("amount")
	if !approx(amt.Mean, 220) || amt.Min != 10 || amt.Max != 1000 {
		t.Errorf("amount stats: %+v", amt)
	}
	if amt.OutliersCount != 1 {
		t.Errorf("expected one outlier in amount, got %d", amt.OutliersCount)
	}
}

func TestProfileKeyColumns(t *testing.T) {
	p := ProfileResult("t", profileCols, profileRows, nil)
	if got := strings.Join(p.KeyNumeric, ","); got != "amount,order_id,qty" {
		t.Errorf("KeyNumeric = %s", got)
	}
	if got := strings.Join(p.KeyCategorical, ","); got != "sku,status,city" {
		t.Errorf("KeyCategorical = %s", got)
	}
	status, _ := p.Column("status")
	var tops []string
	for _, kv := range status.TopValues {
		tops = append(tops, kv.Value)
	}
	if strings.Join(tops, ",") != "shipped,cancelled,returned" || status.TopValues[0].Count != 3 {
		t.Errorf("status top values: %+v", status.TopValues)
	}
	sku, _ := p.Column("sku")
	if len(sku.TopValues) != TopValues {
		t.Errorf("expected %d top values, got %d", TopValues, len(sku.TopValues))
	}
}

func TestProfileSingleRowRanksLast(t *testing.T) {
	rows := [][]any{{int64(7), 1.5, nil}}
	p := ProfileResult("one", []string{"a", "b", "c"}, rows, nil)
	if len(p.KeyNumeric) != 2 {
		t.Fatalf("expected both numeric columns listed, got %v", p.KeyNumeric)
	}
	a, _ := p.Column("a")
	if a.Std != 0 || a.Mean != 7 {
		t.Errorf("single value stats: %+v", a)
	}
}

func TestProfileEmptyResult(t *testing.T) {
	p := ProfileResult("empty", []string{"sku"}, nil, nil)
	if p.Rows != 0 || p.Cols[0].Kind != KindEmpty {
		t.Fatalf("unexpected profile %+v", p)
	}
	if len(p.KeyNumeric) != 0 || len(p.KeyCategorical) != 0 {
		t.Fatalf("expected no key columns")
	}
	if md := p.Markdown(); strings.Contains(md, "[KEY") {
		t.Errorf("unexpected key sections:\n%s", md)
	}
}

func TestMarkdown(t *testing.T) {
	p := ProfileResult("amazon_sale_report", profileCols, profileRows, map[string]string{"city": "TEXT", "amount": "REAL"})
	md := p.Markdown()
	for _, want := range []string{
		"[DATASET SUMMARY]",
		"Table: amazon_sale_report",
		"Rows: 5",
		"- amount: numeric (REAL)",
		"- city: categorical (TEXT), missing 20.0%",
		"- note: empty",
		"[KEY NUMERIC COLUMNS]",
		"- amount: mean 220, min 10, max 1000",
		"outliers: 1",
		"- status: unique=3; top: shipped(3), cancelled(1), returned(1)",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestMedianMAD(t *testing.T) {
	med, mad := medianMAD([]float64{1, 2, 3, 4, 100})
	if med != 3 || mad != 1 {
		t.Fatalf("median=%v mad=%v", med, mad)
	}
	if q := quantile([]float64{1, 2, 3, 4}, 0.5); q != 2.5 {
		t.Fatalf("quantile = %v", q)
	}
}
