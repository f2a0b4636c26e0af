package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Domain is the semantic tag of a cleaned column. It selects the value
// standardization rule applied to the column.
type Domain int

const (
	Untyped Domain = iota
	Status
	Amount
	Quantity
	Date
)

func (d Domain) String() string {
	switch d {
	case Status:
		return "status"
	case Amount:
		return "amount"
	case Quantity:
		return "quantity"
	case Date:
		return "date"
	default:
		return "untyped"
	}
}

// domainColumns maps recognized (already cleaned) column names to their domain.
// Matching is exact and case-sensitive.
var domainColumns = map[string]Domain{
	"status": Status,

	"amount":    Amount,
	"gross_amt": Amount,
	"price":     Amount,
	"rate":      Amount,
	"sales":     Amount,
	"total":     Amount,

	"qty":      Quantity,
	"pcs":      Quantity,
	"quantity": Quantity,
	"units":    Quantity,
	"stock":    Quantity,

	"month":  Date,
	"months": Date,
}

// DomainOf returns the domain of a cleaned column name. Any name containing
// "date" is a date column.
func DomainOf(column string) Domain {
	if d, ok := domainColumns[column]; ok {
		return d
	}
	if strings.Contains(column, "date") {
		return Date
	}
	return Untyped
}

type statusRule struct {
	contains string
	value    string
}

// statusRules are evaluated in order; the first rule whose pattern occurs in
// the lowercased value wins.
var statusRules = []statusRule{
	{contains: "shipped", value: "shipped"},
	{contains: "delivered", value: "shipped"},
	{contains: "cancel", value: "cancelled"},
	{contains: "return", value: "returned"},
}

// StandardizeStatus maps free-text order statuses onto shipped, cancelled or
// returned. Values matching no rule are returned lowercased and trimmed.
func StandardizeStatus(v string) string {
	s := strings.ToLower(strings.TrimSpace(v))
	for _, r := range statusRules {
		if strings.Contains(s, r.contains) {
			return r.value
		}
	}
	return s
}

var amountJunk = regexp.MustCompile(`[^0-9.\-]`)

// StandardizeAmount strips everything but digits, '.' and '-' and parses the
// rest. Anything unparseable is 0.
func StandardizeAmount(v string) float64 {
	f, err := strconv.ParseFloat(amountJunk.ReplaceAllString(v, ""), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// FormatAmount renders an amount so that it always reads back as a float.
func FormatAmount(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// StandardizeQuantity parses an integer count; floats are truncated and
// anything unparseable is 0.
func StandardizeQuantity(v string) int64 {
	s := strings.TrimSpace(v)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0
	}
	return int64(f)
}

// DateLayout is the layout dates are written back with.
const DateLayout = "2006-01-02 15:04:05"

// dateLayouts is tried in order. Month-first wins over day-first for
// ambiguous slash dates.
var dateLayouts = []string{
	time.RFC3339Nano,
	DateLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/1/2",
	"2006/1/2 15:04:05",
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"2/1/2006",
	"2/1/2006 15:04",
	"1/2/06",
	"2/1/06",
	"1-2-2006",
	"2-1-2006",
	"02-Jan-2006",
	"2-Jan-06",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan-06",
	"Jan-2006",
	"Jan 2006",
	"January 2006",
	"2006-01",
}

// StandardizeDate parses v as a timestamp. ok is false for empty or
// unparseable input; it never fails otherwise.
func StandardizeDate(v string) (t time.Time, ok bool) {
	s := strings.TrimSpace(v)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// standardizeValue applies the rule of domain d to a raw cell.
func standardizeValue(d Domain, v string) string {
	switch d {
	case Status:
		return StandardizeStatus(v)
	case Amount:
		return FormatAmount(StandardizeAmount(v))
	case Quantity:
		return strconv.FormatInt(StandardizeQuantity(v), 10)
	case Date:
		if t, ok := StandardizeDate(v); ok {
			return t.Format(DateLayout)
		}
		return ""
	default:
		return v
	}
}
