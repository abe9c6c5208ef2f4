package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"datapulse/domain/analysis"
	"datapulse/ports"
)

// systemInstruction constrains the narrative service to a short analyst-style
// summary.
const systemInstruction = "You are a data analyst expert. Provide concise, actionable insights about datasets in 2-3 paragraphs."

// NarratorConfig holds narrative generation settings.
type NarratorConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Digest is the condensed numeric input for narrative generation. It carries
// counts and the missing/outlier reports, plus a boolean for correlations;
// raw summary statistics and correlation values are deliberately left out to
// keep the prompt small.
type Digest struct {
	RowCount              int
	ColumnCount           int
	Missing               analysis.MissingValueReport
	Outliers              analysis.OutlierReport
	CorrelationsAvailable bool
}

// Narrator condenses analysis results into a prompt and delegates text
// generation to the narrative service. Generation is best-effort: every
// failure mode degrades to a sentinel result and never fails the pipeline.
type Narrator struct {
	cfg    NarratorConfig
	client ports.NarrativeClient
}

// NewNarrator builds a narrator. Without an API key the narrator runs in
// degraded mode and never touches the network.
func NewNarrator(cfg NarratorConfig) *Narrator {
	n := &Narrator{cfg: cfg}
	if cfg.APIKey != "" {
		client, err := NewClient(Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Timeout:     cfg.Timeout,
			Temperature: cfg.Temperature,
		})
		if err == nil {
			n.client = client
		}
	}
	return n
}

// NewNarratorWithClient injects a client, for tests and alternate backends.
func NewNarratorWithClient(cfg NarratorConfig, client ports.NarrativeClient) *Narrator {
	return &Narrator{cfg: cfg, client: client}
}

// Narrate produces the narrative result for one analysis. A single request,
// no retries; timeouts are treated as any other call failure.
func (n *Narrator) Narrate(ctx context.Context, digest Digest) analysis.NarrativeResult {
	if n.client == nil {
		return analysis.NarrativeResult{
			Status: analysis.NarrativeUnavailable,
			Text:   analysis.InsightUnavailable,
			Reason: "API key not configured",
		}
	}

	text, err := n.client.ChatCompletion(ctx, n.cfg.Model, systemInstruction, BuildPrompt(digest), n.cfg.MaxTokens)
	if err != nil {
		return analysis.NarrativeResult{
			Status: analysis.NarrativeFailed,
			Text:   analysis.InsightFailedPrefix + err.Error(),
			Reason: err.Error(),
		}
	}

	return analysis.NarrativeResult{
		Status: analysis.NarrativeGenerated,
		Text:   strings.TrimSpace(text),
	}
}

// BuildPrompt renders the fixed-structure analysis prompt. Column iteration
// is sorted so the same digest always produces the same prompt.
func BuildPrompt(d Digest) string {
	var b strings.Builder

	b.WriteString("Analyze this dataset and provide key insights:\n\n")
	b.WriteString("Dataset Info:\n")
	fmt.Fprintf(&b, "- Rows: %d\n", d.RowCount)
	fmt.Fprintf(&b, "- Columns: %d\n\n", d.ColumnCount)

	b.WriteString("Analysis Results:\n")
	fmt.Fprintf(&b, "- Missing Data: %s\n", missingSummary(d.Missing))
	fmt.Fprintf(&b, "- Outliers: %s\n", outlierSummary(d.Outliers))
	fmt.Fprintf(&b, "- Correlations Available: %t\n\n", d.CorrelationsAvailable)

	b.WriteString("Please provide:\n")
	b.WriteString("1. Key data quality observations\n")
	b.WriteString("2. Notable patterns or concerns\n")
	b.WriteString("3. Recommendations for further analysis\n\n")
	b.WriteString("Keep it concise and actionable.")

	return b.String()
}

func missingSummary(report analysis.MissingValueReport) string {
	names := make([]string, 0, len(report.TotalMissing))
	for name, count := range report.TotalMissing {
		if count > 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%d (%.1f%%)",
			name, report.TotalMissing[name], report.PercentageMissing[name]))
	}
	return strings.Join(parts, ", ")
}

func outlierSummary(report analysis.OutlierReport) string {
	switch report.Status {
	case analysis.OutlierDetected:
		return fmt.Sprintf("%d rows flagged (%.1f%% of complete rows)",
			report.TotalOutliers, report.OutlierPercentage)
	case analysis.OutlierInsufficientData:
		return "not computed (insufficient data)"
	default:
		return "detection failed"
	}
}
