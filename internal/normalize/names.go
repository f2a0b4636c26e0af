package normalize

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	nonAlnumRun  = regexp.MustCompile(`[^a-z0-9]+`)
	filenameJunk = regexp.MustCompile(`[^a-z0-9._]`)
)

// CleanColumn turns a raw header into a snake_case identifier made of [a-z0-9_],
// without leading, trailing or repeated underscores. It is idempotent.
func CleanColumn(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = nonAlnumRun.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// CleanFilename lowercases a file name, turns spaces into underscores and drops
// every character outside [a-z0-9._]. It is idempotent.
func CleanFilename(name string) string {
	s := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
	return filenameJunk.ReplaceAllString(s, "")
}

// uniqueColumns cleans every header and disambiguates blanks and duplicates the
// way spreadsheet exports are usually read: "unnamed_3", "sku", "sku_1", ...
func uniqueColumns(raw []string) []string {
	out := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	for i, h := range raw {
		base := CleanColumn(h)
		if base == "" {
			base = fmt.Sprintf("unnamed_%d", i)
		}
		name := base
		for n := 1; used[name]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		used[name] = true
		out[i] = name
	}
	return out
}
