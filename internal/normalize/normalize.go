// Package normalize cleans raw retail CSV exports in place: canonical file
// names, snake_case columns and standardized status, amount, quantity and date
// values.
package normalize

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/retail-insights-cli/internal/logging"
	"go.uber.org/zap"
)

// Normalizer rewrites CSV files into their cleaned form.
type Normalizer struct {
	log *zap.Logger
}

// New returns a Normalizer logging to log (nil discards).
func New(log *zap.Logger) *Normalizer {
	log = logging.OrNop(log)
	return &Normalizer{log: log}
}

// Clean renames the columns of t to their cleaned form, tags their domain and
// standardizes the values of every recognized column. Columns outside the
// recognized names are left untouched.
func Clean(t *Table) {
	names := uniqueColumns(t.Names())
	for i := range t.Columns {
		t.Columns[i] = Column{Name: names[i], Domain: DomainOf(names[i])}
	}
	for ci, c := range t.Columns {
		if c.Domain == Untyped {
			continue
		}
		for _, row := range t.Rows {
			if ci < len(row) {
				row[ci] = standardizeValue(c.Domain, row[ci])
			}
		}
	}
}

// File cleans one CSV in place and returns its canonical file name. The file
// is first renamed to CleanFilename(base); a failed rename aborts this file.
// Running File twice leaves the file unchanged.
func (n *Normalizer) File(path string) (string, error) {
	dir, base := filepath.Split(path)
	name := CleanFilename(base)
	target := filepath.Join(dir, name)
	if name != base {
		if err := os.Rename(path, target); err != nil {
			n.log.Warn("rename failed", zap.String("file", base), zap.Error(err))
			return "", fmt.Errorf("rename %s: %w", base, err)
		}
		n.log.Info("renamed", zap.String("from", base), zap.String("to", name))
	}

	t, err := ReadTable(target, n.log)
	if err != nil {
		n.log.Warn("skipping unreadable file", zap.String("file", name), zap.Error(err))
		return "", err
	}
	Clean(t)

	if err := writeTable(target, t); err != nil {
		n.log.Error("cannot save cleaned csv", zap.String("file", name), zap.Error(err))
		return "", err
	}
	n.log.Info("cleaned",
		zap.String("file", name),
		zap.String("strategy", t.Strategy),
		zap.Int("rows", len(t.Rows)),
		zap.Int("skipped", t.Skipped))
	return name, nil
}

// Folder cleans every *.csv file of dir (created when missing) and returns the
// canonical names that were processed. Failures are logged and skipped.
func (n *Normalizer) Folder(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure data folder: %w", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list data folder: %w", err)
	}
	var processed []string
	seen := map[string]bool{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		name, err := n.File(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		if !seen[name] {
			seen[name] = true
			processed = append(processed, name)
		}
	}
	return processed, nil
}

func writeTable(path string, t *Table) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Names()); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("encode rows: %w", err)
	}
	return writeFileAtomic(path, buf.Bytes())
}

// writeFileAtomic writes data to a temp file and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}
