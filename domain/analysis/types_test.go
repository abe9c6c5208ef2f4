package analysis

import (
	"encoding/json"
	"testing"

	"datapulse/domain/core"
	"datapulse/domain/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportJSONShape(t *testing.T) {
	report := Report{
		ID:          core.AnalysisID("a1"),
		DatasetID:   core.DatasetID("d1"),
		RowCount:    3,
		ColumnCount: 2,
		Columns: table.Classification{
			Numeric:     []string{"age"},
			Categorical: []string{"region"},
		},
		Summary: SummaryStatistics{
			Numeric: map[string]NumericProfile{
				"age": {Count: 3, Mean: 30, StdDev: 5, Min: 25, Q25: 27.5, Median: 30, Q75: 32.5, Max: 35},
			},
			Categorical: map[string][]ValueCount{
				"region": {{Value: "north", Count: 2}, {Value: "south", Count: 1}},
			},
		},
		Correlations: CorrelationMatrix{"age": {"age": 1}},
		Missing: MissingValueReport{
			TotalMissing:      map[string]int{"age": 0, "region": 1},
			PercentageMissing: map[string]float64{"age": 0, "region": 33.33},
		},
		Outliers:  InsufficientData("need at least 2 numeric columns, have 1"),
		Narrative: NarrativeResult{Status: NarrativeGenerated, Text: "All good."},
		CreatedAt: core.Now(),
	}

	raw, err := json.Marshal(&report)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &decoded))

	for _, key := range []string{
		"id", "dataset_id", "row_count", "column_count", "columns",
		"summary_stats", "correlations", "missing_data", "outliers",
		"ai_insights", "created_at",
	} {
		assert.Contains(t, decoded, key)
	}

	var ageProfile map[string]json.Number
	require.NoError(t, json.Unmarshal(extract(t, decoded["summary_stats"], "numeric", "age"), &ageProfile))
	for _, key := range []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"} {
		assert.Contains(t, ageProfile, key, "numeric profile keys follow describe() naming")
	}

	var outliers map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(decoded["outliers"], &outliers))
	assert.Contains(t, outliers, "status")
	assert.Contains(t, outliers, "error")
	assert.NotContains(t, outliers, "outlier_rows", "degraded report omits row list")

	// ai_insights travels as the plain narrative string, not a tagged object.
	var insight *string
	require.NoError(t, json.Unmarshal(decoded["ai_insights"], &insight))
	require.NotNil(t, insight)
	assert.Equal(t, "All good.", *insight)
}

func TestReportMarshalsSentinelInsightAsString(t *testing.T) {
	report := Report{
		ID:        core.AnalysisID("a1"),
		DatasetID: core.DatasetID("d1"),
		Narrative: NarrativeFromText(InsightUnavailable),
	}

	raw, err := json.Marshal(&report)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &decoded))

	var insight *string
	require.NoError(t, json.Unmarshal(decoded["ai_insights"], &insight),
		"ai_insights must decode as string|null")
	require.NotNil(t, insight)
	assert.Equal(t, InsightUnavailable, *insight)
}

func TestNarrativeFromText(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		status NarrativeStatus
		reason string
	}{
		{"unavailable sentinel", InsightUnavailable, NarrativeUnavailable, "API key not configured"},
		{"failed sentinel", InsightFailedPrefix + "rate limited", NarrativeFailed, "rate limited"},
		{"generated text", "The dataset looks healthy.", NarrativeGenerated, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NarrativeFromText(tt.text)
			assert.Equal(t, tt.status, result.Status)
			assert.Equal(t, tt.text, result.Text, "text survives the round trip unchanged")
			assert.Equal(t, tt.reason, result.Reason)
		})
	}
}

func TestNarrativeResultRoundTrip(t *testing.T) {
	original := NarrativeResult{Status: NarrativeFailed, Text: "AI insights generation failed: boom", Reason: "boom"}

	raw, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded NarrativeResult
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, original, decoded)
}

func TestInsufficientDataCarriesNoCounts(t *testing.T) {
	report := InsufficientData("not enough rows")
	assert.Equal(t, OutlierInsufficientData, report.Status)
	assert.Zero(t, report.TotalOutliers)
	assert.Empty(t, report.OutlierRows)
	assert.Equal(t, "not enough rows", report.Reason)
}

// extract walks nested JSON objects by key.
func extract(t *testing.T, raw json.RawMessage, keys ...string) json.RawMessage {
	t.Helper()
	current := raw
	for _, key := range keys {
		var obj map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(current, &obj))
		require.Contains(t, obj, key)
		current = obj[key]
	}
	return current
}
