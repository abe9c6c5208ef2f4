package stats

import (
	"fmt"
	"math"
	"math/rand"

	"datapulse/domain/analysis"
	"datapulse/domain/table"

	mstats "github.com/montanaflynn/stats"
)

// DetectorConfig parameterizes outlier detection. The seed and contamination
// are explicit configuration rather than process-wide constants so analyses
// stay independently reproducible.
type DetectorConfig struct {
	// Contamination is the expected proportion of anomalous rows.
	Contamination float64
	// Seed drives all randomness in the ensemble.
	Seed int64
	// Trees is the ensemble size.
	Trees int
	// SampleSize caps the per-tree training subsample.
	SampleSize int
	// MinNumericColumns and MinSampleRows gate the minimum viable sample.
	MinNumericColumns int
	MinSampleRows     int
	// MaxReportedRows caps how many flagged row positions the report carries.
	MaxReportedRows int
}

// DefaultDetectorConfig mirrors the production parameterization:
// 10% expected anomalies, fixed seed, 100 trees, 256-row subsamples, and a
// minimum of 2 numeric columns and 11 complete rows.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		Contamination:     0.1,
		Seed:              42,
		Trees:             100,
		SampleSize:        256,
		MinNumericColumns: 2,
		MinSampleRows:     11,
		MaxReportedRows:   10,
	}
}

// OutlierDetector flags statistically atypical rows with a seeded isolation
// forest over the table's numeric columns.
type OutlierDetector struct {
	cfg DetectorConfig
}

// NewOutlierDetector creates a detector with the given configuration.
func NewOutlierDetector(cfg DetectorConfig) *OutlierDetector {
	return &OutlierDetector{cfg: cfg}
}

// Detect runs outlier detection over rows with complete numeric data. The
// table is never mutated; rows with missing numeric values are excluded from
// the detection sample only. Below the minimum viable sample the report
// carries an insufficient-data marker, and internal failures surface as a
// failed marker, never as an error.
func (d *OutlierDetector) Detect(t *table.Table, numericColumns []string) (report analysis.OutlierReport) {
	defer func() {
		if r := recover(); r != nil {
			report = analysis.DetectionFailed(fmt.Sprintf("could not perform outlier detection: %v", r))
		}
	}()

	if len(numericColumns) < d.cfg.MinNumericColumns {
		return analysis.InsufficientData(fmt.Sprintf(
			"need at least %d numeric columns, have %d", d.cfg.MinNumericColumns, len(numericColumns)))
	}

	sample := completeRows(t, numericColumns)
	if len(sample) < d.cfg.MinSampleRows {
		return analysis.InsufficientData(fmt.Sprintf(
			"detection sample has %d complete rows, need at least %d", len(sample), d.cfg.MinSampleRows))
	}

	standardize(sample)

	rng := rand.New(rand.NewSource(d.cfg.Seed))
	forest, err := fitIsoForest(sample, d.cfg.Trees, d.cfg.SampleSize, rng)
	if err != nil {
		return analysis.DetectionFailed(fmt.Sprintf("could not perform outlier detection: %v", err))
	}

	scores := forest.scores(sample)
	threshold, err := mstats.Percentile(scores, 100*(1-d.cfg.Contamination))
	if err != nil {
		return analysis.DetectionFailed(fmt.Sprintf("could not perform outlier detection: %v", err))
	}

	var flagged []int
	for i, score := range scores {
		if score > threshold {
			flagged = append(flagged, i)
		}
	}

	report = analysis.OutlierReport{
		Status:            analysis.OutlierDetected,
		TotalOutliers:     len(flagged),
		OutlierPercentage: float64(len(flagged)) / float64(len(sample)) * 100,
	}
	if len(flagged) > d.cfg.MaxReportedRows {
		flagged = flagged[:d.cfg.MaxReportedRows]
	}
	report.OutlierRows = flagged
	return report
}

// completeRows builds the detection sample: one float row per table row that
// has no missing value in any numeric column, in original row order.
func completeRows(t *table.Table, numericColumns []string) [][]float64 {
	columns := make([][]float64, len(numericColumns))
	for i, name := range numericColumns {
		col, ok := t.Column(name)
		if !ok {
			return nil
		}
		columns[i] = col.NumericValues()
	}

	var sample [][]float64
	for row := 0; row < t.RowCount(); row++ {
		complete := true
		values := make([]float64, len(columns))
		for i, col := range columns {
			if math.IsNaN(col[row]) {
				complete = false
				break
			}
			values[i] = col[row]
		}
		if complete {
			sample = append(sample, values)
		}
	}
	return sample
}

// standardize z-scores each feature in place using mean and population
// standard deviation computed over the detection sample only. Zero-variance
// features collapse to 0.
func standardize(sample [][]float64) {
	if len(sample) == 0 {
		return
	}
	features := len(sample[0])
	n := float64(len(sample))

	for f := 0; f < features; f++ {
		sum, sumSq := 0.0, 0.0
		for _, row := range sample {
			sum += row[f]
			sumSq += row[f] * row[f]
		}
		mean := sum / n
		variance := sumSq/n - mean*mean
		if variance < 0 {
			variance = 0
		}
		std := math.Sqrt(variance)

		for _, row := range sample {
			if std == 0 {
				row[f] = 0
				continue
			}
			row[f] = (row[f] - mean) / std
		}
	}
}
