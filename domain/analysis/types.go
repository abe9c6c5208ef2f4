package analysis

import (
	"encoding/json"
	"strings"

	"datapulse/domain/core"
	"datapulse/domain/table"
)

// NumericProfile is the describe-style profile of one numeric column.
// Missing values are skipped per column, never row-wise.
type NumericProfile struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std"`
	Min    float64 `json:"min"`
	Q25    float64 `json:"25%"`
	Median float64 `json:"50%"`
	Q75    float64 `json:"75%"`
	Max    float64 `json:"max"`
}

// ValueCount is one distinct categorical value with its frequency.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// SummaryStatistics holds per-column profiles. Categorical entries keep the
// top values as an ordered slice so that ties stay in first-encountered order.
type SummaryStatistics struct {
	Numeric     map[string]NumericProfile `json:"numeric"`
	Categorical map[string][]ValueCount   `json:"categorical"`
}

// CorrelationMatrix maps (numeric column, numeric column) to a Pearson
// coefficient in [-1, 1]. Empty when fewer than 2 numeric columns exist.
type CorrelationMatrix map[string]map[string]float64

// MissingValueReport covers every column, numeric and categorical alike.
type MissingValueReport struct {
	TotalMissing      map[string]int     `json:"total_missing"`
	PercentageMissing map[string]float64 `json:"percentage_missing"`
}

// OutlierStatus tags the outcome of outlier detection. Failures are data,
// not errors: the rest of the report must still be produced.
type OutlierStatus string

const (
	OutlierDetected         OutlierStatus = "detected"
	OutlierInsufficientData OutlierStatus = "insufficient_data"
	OutlierFailed           OutlierStatus = "failed"
)

// OutlierReport is the outcome of multivariate outlier detection over rows
// with complete numeric data. Counts and percentage are relative to the
// detection sample, not the full table.
type OutlierReport struct {
	Status            OutlierStatus `json:"status"`
	TotalOutliers     int           `json:"total_outliers"`
	OutlierPercentage float64       `json:"outlier_percentage"`
	OutlierRows       []int         `json:"outlier_rows,omitempty"`
	Reason            string        `json:"error,omitempty"`
}

// InsufficientData builds the degrade-gracefully marker used when the
// detector lacks a viable sample.
func InsufficientData(reason string) OutlierReport {
	return OutlierReport{Status: OutlierInsufficientData, Reason: reason}
}

// DetectionFailed wraps an internal detector failure as report data.
func DetectionFailed(reason string) OutlierReport {
	return OutlierReport{Status: OutlierFailed, Reason: reason}
}

// NarrativeStatus tags the outcome of narrative generation.
type NarrativeStatus string

const (
	NarrativeGenerated   NarrativeStatus = "generated"
	NarrativeUnavailable NarrativeStatus = "unavailable"
	NarrativeFailed      NarrativeStatus = "failed"
)

// Sentinel texts transmitted in place of a generated narrative. They are part
// of the report contract: clients receive them as the insight string itself.
const (
	InsightUnavailable  = "AI insights unavailable - API key not configured"
	InsightFailedPrefix = "AI insights generation failed: "
)

// NarrativeResult carries the generated narrative or a sentinel. Text is
// always populated so callers can persist it as-is.
type NarrativeResult struct {
	Status NarrativeStatus `json:"status"`
	Text   string          `json:"text"`
	Reason string          `json:"reason,omitempty"`
}

// NarrativeFromText rebuilds the tagged result from a stored insight string
// by recognizing the sentinel texts.
func NarrativeFromText(text string) NarrativeResult {
	switch {
	case text == InsightUnavailable:
		return NarrativeResult{Status: NarrativeUnavailable, Text: text, Reason: "API key not configured"}
	case strings.HasPrefix(text, InsightFailedPrefix):
		return NarrativeResult{Status: NarrativeFailed, Text: text, Reason: strings.TrimPrefix(text, InsightFailedPrefix)}
	default:
		return NarrativeResult{Status: NarrativeGenerated, Text: text}
	}
}

// Report aggregates all analysis outputs for one table. Created once per
// successfully profiled table, immutable after creation, owned by the
// request that triggered the pipeline.
type Report struct {
	ID           core.AnalysisID      `json:"id"`
	DatasetID    core.DatasetID       `json:"dataset_id"`
	RowCount     int                  `json:"row_count"`
	ColumnCount  int                  `json:"column_count"`
	Columns      table.Classification `json:"columns"`
	Summary      SummaryStatistics    `json:"summary_stats"`
	Correlations CorrelationMatrix    `json:"correlations"`
	Missing      MissingValueReport   `json:"missing_data"`
	Outliers     OutlierReport        `json:"outliers"`
	Narrative    NarrativeResult      `json:"ai_insights"`
	CreatedAt    core.Timestamp       `json:"created_at"`
}

// InsightText returns the narrative text regardless of status; sentinel
// strings double as the user-visible insight for degraded runs.
func (r *Report) InsightText() string {
	return r.Narrative.Text
}

// MarshalJSON emits the transmitted record shape: ai_insights carries the
// narrative text (sentinels included), never the tagged struct. The tagged
// NarrativeResult stays an internal type.
func (r Report) MarshalJSON() ([]byte, error) {
	type wire Report
	return json.Marshal(struct {
		wire
		AIInsights string `json:"ai_insights"`
	}{wire(r), r.Narrative.Text})
}
