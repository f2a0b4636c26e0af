// Package sqlguard screens generated SQL before it reaches the store.
//
// The check is a textual denylist, not a parser. It cannot prove a statement
// is side-effect free: a SELECT calling a volatile function passes, and a
// forbidden token inside a string literal or identifier is rejected.
package sqlguard

import (
	"strings"
)

// Reasons returned by Validate.
const (
	ReasonOK        = "SQL OK"
	ReasonNotSelect = "Only SELECT queries allowed."
	reasonForbidden = "Forbidden operation detected: "
)

const (
	fenceMarker      = "```"
	languageLabel    = "sql"
	requiredLeadWord = "select"
)

// DefaultForbidden lists the denied tokens. Each carries its trailing space.
var DefaultForbidden = []string{"drop ", "delete ", "update ", "insert ", "alter ", "create "}

// Validator checks SQL text against a denylist.
type Validator struct {
	Forbidden []string
}

// New returns a Validator using DefaultForbidden.
func New() *Validator {
	return &Validator{Forbidden: DefaultForbidden}
}

// Validate reports whether sqlText is accepted, with the reason.
func Validate(sqlText string) (bool, string) {
	return New().Validate(sqlText)
}

// Validate strips fence markers and surrounding whitespace, lowercases the
// text, drops a leading "sql" label, then rejects any forbidden token and
// anything not starting with select.
func (v *Validator) Validate(sqlText string) (bool, string) {
	s := normalizeForCheck(sqlText)
	for _, tok := range v.Forbidden {
		if strings.Contains(s, tok) {
			return false, reasonForbidden + strings.TrimSpace(tok)
		}
	}
	if !strings.HasPrefix(s, requiredLeadWord) {
		return false, ReasonNotSelect
	}
	return true, ReasonOK
}

func normalizeForCheck(sqlText string) string {
	s := strings.ToLower(sqlText)
	s = strings.TrimSpace(strings.ReplaceAll(s, fenceMarker, ""))
	if strings.HasPrefix(s, languageLabel) {
		s = strings.TrimSpace(s[len(languageLabel):])
	}
	return s
}

// Executable returns sqlText in its original casing, with fence markers and
// a leading "sql" label removed, ready to hand to the store.
func Executable(sqlText string) string {
	s := strings.TrimSpace(strings.ReplaceAll(sqlText, fenceMarker, ""))
	if len(s) >= len(languageLabel) && strings.EqualFold(s[:len(languageLabel)], languageLabel) {
		s = strings.TrimSpace(s[len(languageLabel):])
	}
	return s
}
