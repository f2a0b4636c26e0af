package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/KaramelBytes/retail-insights-cli/internal/ai"
	"github.com/KaramelBytes/retail-insights-cli/internal/analysis"
	"github.com/KaramelBytes/retail-insights-cli/internal/logging"
	"go.uber.org/zap"
)

// SummaryTemperature is the default temperature for table summaries.
const SummaryTemperature = 0.2

type SummaryAgent struct {
	rt          ai.Runtime
	log         *zap.Logger
	model       string
	temperature float64
}

func NewSummaryAgent(rt ai.Runtime, log *zap.Logger, model string, temperature float64) *SummaryAgent {
	log = logging.OrNop(log)
	return &SummaryAgent{rt: rt, log: log, model: model, temperature: temperature}
}

// SummaryPrompt builds the analyst prompt from the key facts of a profile.
func SummaryPrompt(p *analysis.Profile) string {
	var b strings.Builder
	b.WriteString("You are an expert senior data analyst. Provide a deep dataset summary using ONLY the following key information.\n\n")
	fmt.Fprintf(&b, "Dataset: %s\nTotal Rows: %d\n\n", p.Name, p.Rows)
	b.WriteString(p.Markdown())
	b.WriteString(`
Please explain:
1. What the dataset is about
2. Key patterns and distributions
3. Column-level insights
4. Data quality issues (missing values, inconsistent labels, outliers)
5. Trends and business interpretation
6. Any anomalies or surprising values

Write in readable paragraphs, not bullet points.`)
	return b.String()
}

func (a *SummaryAgent) request(p *analysis.Profile) ai.GenerateRequest {
	prompt := SummaryPrompt(p)
	a.log.Debug("requesting summary", zap.String("table", p.Name), zap.Int("prompt_tokens", EstimateTokens(prompt)))
	return ai.GenerateRequest{
		Model:       a.model,
		Messages:    []ai.Message{{Role: ai.RoleUser, Content: prompt}},
		Temperature: a.temperature,
	}
}

// Summarize returns the model's prose summary of p.
func (a *SummaryAgent) Summarize(ctx context.Context, p *analysis.Profile) (string, error) {
	resp, err := a.rt.Generate(ctx, a.request(p))
	if err != nil {
		return "", fmt.Errorf("summarize %s: %w", p.Name, err)
	}
	return strings.TrimSpace(ai.Content(resp)), nil
}

// SummarizeStream feeds the summary to onDelta as it arrives. Runtimes without
// streaming support get a single Generate call whose content is delivered in
// one piece; streamed reports whether streaming was used.
func (a *SummaryAgent) SummarizeStream(ctx context.Context, p *analysis.Profile, onDelta func(string)) (streamed bool, err error) {
	sr, ok := a.rt.(ai.StreamRuntime)
	if !ok {
		a.log.Debug("runtime does not stream; falling back", zap.String("table", p.Name))
		text, err := a.Summarize(ctx, p)
		if err != nil {
			return false, err
		}
		onDelta(text)
		return false, nil
	}
	if err := sr.GenerateStream(ctx, a.request(p), onDelta); err != nil {
		return true, fmt.Errorf("streaming summary of %s: %w", p.Name, err)
	}
	return true, nil
}
