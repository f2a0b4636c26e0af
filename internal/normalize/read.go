package normalize

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/KaramelBytes/retail-insights-cli/internal/logging"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
)

// ErrUnreadable is returned when no read strategy could parse a file.
var ErrUnreadable = errors.New("unreadable csv")

var errNoHeader = errors.New("no header row")

// Table is a CSV held in memory. Before Clean runs, column names are the raw
// headers and every column is Untyped.
type Table struct {
	Columns []Column
	Rows    [][]string
	// Strategy names the read strategy that produced the table.
	Strategy string
	// Skipped counts malformed lines dropped by a lenient strategy.
	Skipped int
}

// Column is a table column and its semantic domain.
type Column struct {
	Name   string
	Domain Domain
}

// Names returns the column names in order.
func (t *Table) Names() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

type readStrategy struct {
	name string
	read func(data []byte) (header []string, rows [][]string, skipped int, err error)
}

// strategies is the read cascade: strict first, then progressively more
// forgiving parses.
var strategies = []readStrategy{
	{name: "strict", read: readStrict},
	{name: "lenient", read: readLenient},
	{name: "unquoted", read: readUnquoted},
}

// ReadTable reads path through the strategy cascade. Each failed strategy is
// logged at warn level; when all fail the error wraps ErrUnreadable.
func ReadTable(path string, log *zap.Logger) (*Table, error) {
	log = logging.OrNop(log)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	data := decodeText(raw)
	var lastErr error
	for _, s := range strategies {
		header, rows, skipped, err := s.read(data)
		if err != nil {
			log.Warn("csv read strategy failed",
				zap.String("file", path),
				zap.String("strategy", s.name),
				zap.Error(err))
			lastErr = err
			continue
		}
		t := &Table{Rows: rows, Strategy: s.name, Skipped: skipped}
		t.Columns = make([]Column, len(header))
		for i, h := range header {
			t.Columns[i] = Column{Name: h}
		}
		return t, nil
	}
	return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, lastErr)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeText drops a UTF-8 BOM and decodes non-UTF-8 input as Windows-1252,
// the usual encoding of spreadsheet exports that are not UTF-8.
func decodeText(b []byte) []byte {
	b = bytes.TrimPrefix(b, utf8BOM)
	if utf8.Valid(b) {
		return b
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return b
	}
	return out
}

func readStrict(data []byte) ([]string, [][]string, int, error) {
	r := csv.NewReader(bytes.NewReader(data))
	recs, err := r.ReadAll()
	if err != nil {
		return nil, nil, 0, err
	}
	if len(recs) == 0 {
		return nil, nil, 0, errNoHeader
	}
	return recs[0], recs[1:], 0, nil
}

func readLenient(data []byte) ([]string, [][]string, int, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(data)
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, 0, errNoHeader
		}
		return nil, nil, 0, err
	}
	header = append([]string(nil), header...)
	var rows [][]string
	skipped := 0
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				skipped++
				continue
			}
			return nil, nil, 0, err
		}
		row, ok := fitRow(rec, len(header))
		if !ok {
			skipped++
			continue
		}
		rows = append(rows, row)
	}
	return header, rows, skipped, nil
}

// readUnquoted splits lines on the sniffed delimiter with no quote handling.
func readUnquoted(data []byte) ([]string, [][]string, int, error) {
	delim := string(sniffDelimiter(data))
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)

	var header []string
	var rows [][]string
	skipped := 0
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, delim)
		if header == nil {
			header = fields
			continue
		}
		row, ok := fitRow(fields, len(header))
		if !ok {
			skipped++
			continue
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, 0, err
	}
	if header == nil {
		return nil, nil, 0, errNoHeader
	}
	return header, rows, skipped, nil
}

// fitRow pads short records with empty cells. Records longer than the header
// are rejected.
func fitRow(rec []string, n int) ([]string, bool) {
	if len(rec) > n {
		return nil, false
	}
	row := make([]string, n)
	copy(row, rec)
	return row, true
}

var delimiterCandidates = []rune{',', ';', '\t', '|'}

// sniffDelimiter picks the candidate whose per-line count is most consistent
// with the header line over the first lines of data. Defaults to ','.
func sniffDelimiter(data []byte) rune {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for sc.Scan() && len(lines) < 10 {
		if l := strings.TrimSpace(sc.Text()); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return ','
	}
	best, bestScore := ',', -1
	for _, d := range delimiterCandidates {
		n := strings.Count(lines[0], string(d))
		if n == 0 {
			continue
		}
		consistent := 0
		for _, l := range lines {
			if strings.Count(l, string(d)) == n {
				consistent++
			}
		}
		if score := consistent*1000 + n; score > bestScore {
			best, bestScore = d, score
		}
	}
	return best
}
