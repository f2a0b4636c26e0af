// Package agent turns questions and table profiles into language-model
// prompts and post-processes what comes back. Agents never execute or
// validate SQL themselves.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/KaramelBytes/retail-insights-cli/internal/ai"
	"github.com/KaramelBytes/retail-insights-cli/internal/logging"
	"go.uber.org/zap"
)

const fence = "```"

// SQLSystemPrompt instructs the model to answer with a single statement.
const SQLSystemPrompt = "You are a SQL expert for SQLite. Given schema summaries and a question, " +
	"return ONE valid SQL SELECT statement. No markdown."

// StructuredSystemPrompt teaches the model how to match the dirty status and
// shipping values found in retail exports.
const StructuredSystemPrompt = `You are the Retail Insights SQL Agent.

Your job:
- Convert the user question into correct SQL for SQLite.
- Work even if data is dirty, inconsistent, misspelled, or mixed-case.
- Always use fuzzy matching for status, shipping levels and categories.

FUZZY VALUE RULES

1. Status: compare with LOWER(status) LIKE patterns.
   shipped: "shipped", "shipping", "shipped - delivered", "ship", "shippd", "shiped"
   cancelled: "cancelled", "canceled", "cncl", "cnx", "cancel", "cancelled by buyer"
   returned: "returned", "return", "returned to seller", "refund"
   pending: "pending", "pending - waiting for pick up", "waiting pickup"

2. Shipping service levels: compare with LOWER(ship_service_level) LIKE patterns.
   standard: "standard", "std", "stnd"
   expedited: "expedited", "exp", "express"

MANDATORY SQL RULES
- Always use LOWER(column) in comparisons.
- Use LIKE wildcard matches.
- Never use "=" for status or shipping level.
- Shipped means LOWER(status) LIKE '%ship%'.
- Cancelled means LOWER(status) LIKE '%cancel%' OR LOWER(status) LIKE '%cn%'.

OUTPUT FORMAT
Return only JSON:
{"sql": "<SQL QUERY>", "tables_used": ["table1"]}`

// Catalog is the part of the store the agents read schema text from.
type Catalog interface {
	ListTables(ctx context.Context) []string
	SchemaSummary(ctx context.Context, table string) string
}

// Options tunes the requests an SQLAgent sends.
type Options struct {
	Model                 string
	Temperature           float64
	StructuredTemperature float64
}

// StructuredSQL is the JSON answer of GenerateStructured.
type StructuredSQL struct {
	SQL        string   `json:"sql"`
	TablesUsed []string `json:"tables_used"`
}

type SQLAgent struct {
	rt      ai.Runtime
	catalog Catalog
	log     *zap.Logger
	opts    Options
}

func NewSQLAgent(rt ai.Runtime, catalog Catalog, log *zap.Logger, opts Options) *SQLAgent {
	log = logging.OrNop(log)
	return &SQLAgent{rt: rt, catalog: catalog, log: log, opts: opts}
}

// SchemaText renders one "Table `t`: summary" line per table, or only the
// given table when it is not empty.
func (a *SQLAgent) SchemaText(ctx context.Context, table string) string {
	tables := []string{table}
	if table == "" {
		tables = a.catalog.ListTables(ctx)
	}
	lines := make([]string, 0, len(tables))
	for _, t := range tables {
		lines = append(lines, fmt.Sprintf("Table `%s`: %s", t, a.catalog.SchemaSummary(ctx, t)))
	}
	return strings.Join(lines, "\n")
}

// Generate asks the model for one SELECT statement answering question. The
// returned text always ends with exactly one ';'. Only transport errors are
// returned; unusable output degrades to ";".
func (a *SQLAgent) Generate(ctx context.Context, question, table string) (string, error) {
	schema := a.SchemaText(ctx, table)
	req := ai.GenerateRequest{
		Model: a.opts.Model,
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: SQLSystemPrompt},
			{Role: ai.RoleUser, Content: fmt.Sprintf("Schema:\n%s\n\nQuestion: %s\nReturn only SQL.", schema, question)},
		},
		Temperature: a.opts.Temperature,
	}
	a.log.Debug("requesting sql", zap.String("model", req.Model), zap.Int("prompt_tokens", promptTokens(req.Messages[0].Content, req.Messages[1].Content)))
	resp, err := a.rt.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("generate sql: %w", err)
	}
	sql := CleanSQL(ai.Content(resp))
	a.log.Debug("sql generated", zap.String("table", table), zap.String("sql", sql))
	return sql, nil
}

// GenerateStructured asks for a JSON answer naming the SQL and the tables it
// uses. When tables is empty every table in the catalog is offered. Malformed
// answers degrade to an empty StructuredSQL.
func (a *SQLAgent) GenerateStructured(ctx context.Context, question string, tables []string) (StructuredSQL, error) {
	if len(tables) == 0 {
		tables = a.catalog.ListTables(ctx)
	}
	var avail strings.Builder
	for _, t := range tables {
		fmt.Fprintf(&avail, "- %s: %s\n", t, a.catalog.SchemaSummary(ctx, t))
	}
	req := ai.GenerateRequest{
		Model: a.opts.Model,
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: StructuredSystemPrompt},
			{Role: ai.RoleUser, Content: fmt.Sprintf("User question:\n%s\n\nAvailable tables:\n%s\nReturn ONLY valid JSON.", question, avail.String())},
		},
		Temperature: a.opts.StructuredTemperature,
	}
	a.log.Debug("requesting structured sql", zap.String("model", req.Model), zap.Int("prompt_tokens", promptTokens(req.Messages[0].Content, req.Messages[1].Content)))
	resp, err := a.rt.Generate(ctx, req)
	if err != nil {
		return emptyStructured(), fmt.Errorf("generate structured sql: %w", err)
	}
	out, ok := ParseStructured(ai.Content(resp))
	if !ok {
		a.log.Warn("structured answer unusable", zap.String("content", ai.Content(resp)))
	}
	return out, nil
}

// ParseStructured decodes a {"sql", "tables_used"} answer, tolerating code
// fences around it. The second result is false when the answer was unusable.
func ParseStructured(content string) (StructuredSQL, bool) {
	s := strings.TrimSpace(content)
	if strings.Contains(s, fence) {
		s = strings.TrimSpace(unfence(s))
		if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
			s = strings.TrimSpace(s[4:])
		}
	}
	var out StructuredSQL
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return emptyStructured(), false
	}
	if out.TablesUsed == nil {
		out.TablesUsed = []string{}
	}
	return out, true
}

func emptyStructured() StructuredSQL {
	return StructuredSQL{SQL: "", TablesUsed: []string{}}
}

// CleanSQL normalizes raw model output into a single statement: the fenced
// block is extracted, a leading "sql" label dropped and exactly one trailing
// ';' kept. Empty input yields ";".
func CleanSQL(text string) string {
	s := strings.TrimSpace(text)
	if strings.Contains(s, fence) {
		s = unfence(s)
	}
	s = strings.TrimLeft(s, " \t\r\n")
	if len(s) >= 3 && strings.EqualFold(s[:3], "sql") {
		s = s[3:]
	}
	s = strings.TrimRight(strings.TrimSpace(s), "; \t\r\n")
	return s + ";"
}

// unfence returns the text between the first and last fence, or s without
// fence markers when there is only one.
func unfence(s string) string {
	first := strings.Index(s, fence)
	last := strings.LastIndex(s, fence)
	if first == last {
		return strings.ReplaceAll(s, fence, "")
	}
	return s[first+len(fence) : last]
}
