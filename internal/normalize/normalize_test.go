package normalize

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCleanColumn(t *testing.T) {
	cases := map[string]string{
		"Order ID":          "order_id",
		"  Gross Amt (INR)": "gross_amt_inr",
		"__ship--service__": "ship_service",
		"ASIN":              "asin",
		"promotion-ids":     "promotion_ids",
		"":                  "",
	}
	for in, want := range cases {
		if got := CleanColumn(in); got != want {
			t.Errorf("CleanColumn(%q) = %q, want %q", in, got, want)
		}
		if again := CleanColumn(CleanColumn(in)); again != want {
			t.Errorf("CleanColumn not idempotent for %q: %q", in, again)
		}
	}
}

func TestCleanFilename(t *testing.T) {
	cases := map[string]string{
		"Amazon Sale Report.csv":      "amazon_sale_report.csv",
		"P  L March 2021 (v2).CSV":    "p__l_march_2021_v2.csv",
		"already_clean.csv":           "already_clean.csv",
		" International sale€.csv  ": "international_sale.csv",
	}
	for in, want := range cases {
		got := CleanFilename(in)
		if got != want {
			t.Errorf("CleanFilename(%q) = %q, want %q", in, got, want)
		}
		if CleanFilename(got) != got {
			t.Errorf("CleanFilename not idempotent for %q", got)
		}
	}
}

func TestUniqueColumns(t *testing.T) {
	got := uniqueColumns([]string{"SKU", "sku", "", "Sku ", "sku_1"})
	want := []string{"sku", "sku_1", "unnamed_2", "sku_2", "sku_1_1"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestDomainOf(t *testing.T) {
	cases := map[string]Domain{
		"status":     Status,
		"gross_amt":  Amount,
		"total":      Amount,
		"pcs":        Quantity,
		"stock":      Quantity,
		"order_date": Date,
		"months":     Date,
		"month":      Date,
		"Status":     Untyped,
		"sku":        Untyped,
	}
	for col, want := range cases {
		if got := DomainOf(col); got != want {
			t.Errorf("DomainOf(%q) = %v, want %v", col, got, want)
		}
	}
}

func TestStandardizeStatus(t *testing.T) {
	cases := map[string]string{
		"Shipped":                      "shipped",
		"Shipped - Delivered to Buyer": "shipped",
		"DELIVERED":                    "shipped",
		"CANCELED ":                    "cancelled",
		"Cancelled by buyer":           "cancelled",
		"precancellation":              "cancelled",
		"Returned to seller":           "returned",
		"ret":                          "ret",
		" Pending ":                    "pending",
	}
	for in, want := range cases {
		if got := StandardizeStatus(in); got != want {
			t.Errorf("StandardizeStatus(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStandardizeAmount(t *testing.T) {
	cases := map[string]float64{
		"₹1,200.50": 1200.50,
		"INR 647":   647,
		"-12.5 USD": -12.5,
		"abc":       0,
		"":          0,
		"1.2.3":     0,
		"-":         0,
	}
	for in, want := range cases {
		if got := StandardizeAmount(in); got != want {
			t.Errorf("StandardizeAmount(%q) = %v, want %v", in, got, want)
		}
	}
	if got := FormatAmount(1200); got != "1200.0" {
		t.Errorf("FormatAmount(1200) = %q", got)
	}
	if got := FormatAmount(3.25); got != "3.25" {
		t.Errorf("FormatAmount(3.25) = %q", got)
	}
}

func TestStandardizeQuantity(t *testing.T) {
	cases := map[string]int64{
		"3":    3,
		" 12 ": 12,
		"2.0":  2,
		"2.7":  2,
		"1e3":  1000,
		"NaN":  0,
		"two":  0,
		"":     0,

		"9223372036854775808": 0,
		"1e19":                0,
		"-1e19":               0,
	}
	for in, want := range cases {
		if got := StandardizeQuantity(in); got != want {
			t.Errorf("StandardizeQuantity(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestStandardizeDate(t *testing.T) {
	cases := map[string]string{
		"2022-04-30":          "2022-04-30 00:00:00",
		"04-30-22":            "",
		"04/30/2022":          "2022-04-30 00:00:00",
		"30/04/2022":          "2022-04-30 00:00:00",
		"2022-04-30 10:15:00": "2022-04-30 10:15:00",
		"Apr-22":              "2022-04-01 00:00:00",
		"not a date":          "",
		"":                    "",
	}
	for in, want := range cases {
		got := standardizeValue(Date, in)
		if got != want {
			t.Errorf("standardizeValue(Date, %q) = %q, want %q", in, got, want)
		}
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func readBack(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	recs, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	return recs
}

func TestFileCleansAndRenames(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "Order Export.csv")
	writeFile(t, src, "Order ID,Status,Amount,Qty,Date,Note\n"+
		"405-1,Shipped,\"₹1,200\",2,04/30/2022,keep ME\n"+
		"405-2,CANCELED ,abc,x,garbage,\n"+
		"405-3,ret,15.5,1.0,2022-05-01,ok\n")

	name, err := New(nil).File(src)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if name != "order_export.csv" {
		t.Fatalf("unexpected name %q", name)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("expected original file to be renamed away")
	}
	out := filepath.Join(dir, name)
	recs := readBack(t, out)
	wantHeader := "order_id,status,amount,qty,date,note"
	if got := strings.Join(recs[0], ","); got != wantHeader {
		t.Fatalf("header = %q, want %q", got, wantHeader)
	}
	want := [][]string{
		{"405-1", "shipped", "1200.0", "2", "2022-04-30 00:00:00", "keep ME"},
		{"405-2", "cancelled", "0.0", "0", "", ""},
		{"405-3", "ret", "15.5", "1", "2022-05-01 00:00:00", "ok"},
	}
	for i, row := range want {
		if got := strings.Join(recs[i+1], "|"); got != strings.Join(row, "|") {
			t.Errorf("row %d = %q, want %q", i, got, strings.Join(row, "|"))
		}
	}

	before, _ := os.ReadFile(out)
	if _, err := New(nil).File(out); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	after, _ := os.ReadFile(out)
	if string(before) != string(after) {
		t.Fatalf("second pass changed the file:\n%s\nvs\n%s", before, after)
	}
}

func TestReadTableFallsBackToLenient(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "semi.csv")
	writeFile(t, p, "sku;qty;note\nA1;2;fine, really\nB2;3;extra;field\nC3;4\n")

	tbl, err := ReadTable(p, nil)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if tbl.Strategy != "lenient" {
		t.Fatalf("expected lenient strategy, got %q", tbl.Strategy)
	}
	if len(tbl.Rows) != 2 || tbl.Skipped != 1 {
		t.Fatalf("expected 2 rows and 1 skipped, got %d rows, %d skipped", len(tbl.Rows), tbl.Skipped)
	}
	if tbl.Rows[1][2] != "" {
		t.Fatalf("expected short row to be padded, got %v", tbl.Rows[1])
	}
}

func TestReadTableDecodesWindows1252(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "latin.csv")
	// 0xE9 is "é" in Windows-1252 and invalid on its own in UTF-8.
	writeFile(t, p, "name,qty\ncaf\xe9,1\n")
	tbl, err := ReadTable(p, nil)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if tbl.Rows[0][0] != "café" {
		t.Fatalf("expected decoded text, got %q", tbl.Rows[0][0])
	}
}

func TestReadTableEmptyIsUnreadable(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "empty.csv")
	writeFile(t, p, "")
	if _, err := ReadTable(p, nil); !errors.Is(err, ErrUnreadable) {
		t.Fatalf("expected ErrUnreadable, got %v", err)
	}
}

func TestFolderSkipsFailuresAndNonCSV(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Good File.csv"), "SKU,Qty\nA,1\n")
	writeFile(t, filepath.Join(dir, "empty.csv"), "")
	writeFile(t, filepath.Join(dir, "readme.txt"), "not a csv")

	got, err := New(nil).Folder(dir)
	if err != nil {
		t.Fatalf("Folder: %v", err)
	}
	if len(got) != 1 || got[0] != "good_file.csv" {
		t.Fatalf("unexpected processed list: %v", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "readme.txt")); err != nil {
		t.Fatalf("non-csv file should be untouched: %v", err)
	}
}

func TestFolderCreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	got, err := New(nil).Folder(dir)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty result, got %v, %v", got, err)
	}
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		t.Fatalf("expected folder to be created")
	}
}
