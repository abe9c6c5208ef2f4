package stats

import (
	"math"
	"sort"

	"datapulse/domain/analysis"
	"datapulse/domain/table"
	"datapulse/internal/errors"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Profiler computes the numeric profile of a table: column classification,
// summary statistics, pairwise correlations and the missing-value report.
// It is deterministic and side-effect free.
type Profiler struct {
	topValues int
}

// NewProfiler creates a profiler that keeps the top 5 categorical values
// per column.
func NewProfiler() *Profiler {
	return &Profiler{topValues: 5}
}

// ProfileResult bundles the four profiler outputs.
type ProfileResult struct {
	Classification table.Classification
	Summary        analysis.SummaryStatistics
	Correlations   analysis.CorrelationMatrix
	Missing        analysis.MissingValueReport
}

// Profile analyzes the table. The only failure mode is a zero-column table;
// a zero-row table with columns still produces a (mostly empty) profile.
func (p *Profiler) Profile(t *table.Table) (*ProfileResult, error) {
	if t == nil || t.ColumnCount() == 0 {
		return nil, errors.MalformedTable("table has no columns")
	}

	classification := t.Classify()

	result := &ProfileResult{
		Classification: classification,
		Summary: analysis.SummaryStatistics{
			Numeric:     make(map[string]analysis.NumericProfile),
			Categorical: make(map[string][]analysis.ValueCount),
		},
		Correlations: p.correlations(t, classification.Numeric),
		Missing:      p.missingReport(t),
	}

	for _, name := range classification.Numeric {
		col, _ := t.Column(name)
		if profile, ok := numericProfile(col); ok {
			result.Summary.Numeric[name] = profile
		}
	}

	for _, name := range classification.Categorical {
		col, _ := t.Column(name)
		if counts := p.topValueCounts(col); len(counts) > 0 {
			result.Summary.Categorical[name] = counts
		}
	}

	return result, nil
}

// numericProfile computes the describe-style profile over the column's
// non-missing values only. Columns with zero non-missing values produce
// nothing rather than an error.
func numericProfile(col table.Column) (analysis.NumericProfile, bool) {
	values := dropNaN(col.NumericValues())
	if len(values) == 0 {
		return analysis.NumericProfile{}, false
	}

	mean, _ := mstats.Mean(values)
	min, _ := mstats.Min(values)
	max, _ := mstats.Max(values)
	median, _ := mstats.Median(values)
	q25, _ := mstats.Percentile(values, 25)
	q75, _ := mstats.Percentile(values, 75)

	// Sample standard deviation (ddof=1) to match describe() semantics;
	// undefined for a single observation.
	stdDev := 0.0
	if len(values) > 1 {
		stdDev, _ = mstats.StandardDeviationSample(values)
	}

	return analysis.NumericProfile{
		Count:  len(values),
		Mean:   mean,
		StdDev: stdDev,
		Min:    min,
		Q25:    q25,
		Median: median,
		Q75:    q75,
		Max:    max,
	}, true
}

// topValueCounts returns the most frequent distinct values of a categorical
// column, ties broken by first-encountered order.
func (p *Profiler) topValueCounts(col table.Column) []analysis.ValueCount {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	order := 0

	for _, cell := range col.Cells {
		if cell.Null {
			continue
		}
		if _, seen := counts[cell.Raw]; !seen {
			firstSeen[cell.Raw] = order
			order++
		}
		counts[cell.Raw]++
	}

	ranked := make([]analysis.ValueCount, 0, len(counts))
	for value, count := range counts {
		ranked = append(ranked, analysis.ValueCount{Value: value, Count: count})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return firstSeen[ranked[i].Value] < firstSeen[ranked[j].Value]
	})

	if len(ranked) > p.topValues {
		ranked = ranked[:p.topValues]
	}
	return ranked
}

// correlations computes pairwise Pearson coefficients over numeric columns.
// Each pair is evaluated on the rows where both columns are non-missing,
// independently per pair. Fewer than 2 numeric columns yields an empty map.
func (p *Profiler) correlations(t *table.Table, numeric []string) analysis.CorrelationMatrix {
	matrix := make(analysis.CorrelationMatrix)
	if len(numeric) < 2 {
		return matrix
	}

	columns := make(map[string][]float64, len(numeric))
	for _, name := range numeric {
		col, _ := t.Column(name)
		columns[name] = col.NumericValues()
		matrix[name] = make(map[string]float64, len(numeric))
	}

	for i, a := range numeric {
		for j, b := range numeric {
			if j < i {
				continue
			}
			r := pairwisePearson(columns[a], columns[b])
			matrix[a][b] = r
			matrix[b][a] = r
		}
	}
	return matrix
}

// pairwisePearson aligns the two columns on rows where both are non-missing
// and returns their Pearson coefficient. Degenerate pairs (fewer than two
// overlapping rows, or zero variance on either side) report 0, which keeps
// the matrix JSON-serializable where NaN would not be.
func pairwisePearson(x, y []float64) float64 {
	pairedX := make([]float64, 0, len(x))
	pairedY := make([]float64, 0, len(y))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		pairedX = append(pairedX, x[i])
		pairedY = append(pairedY, y[i])
	}
	if len(pairedX) < 2 {
		return 0
	}
	if stat.Variance(pairedX, nil) == 0 || stat.Variance(pairedY, nil) == 0 {
		return 0
	}

	r := stat.Correlation(pairedX, pairedY, nil)
	if math.IsNaN(r) {
		return 0
	}
	// Guard against floating-point drift outside [-1, 1].
	return math.Max(-1, math.Min(1, r))
}

// missingReport counts null cells per column across every column, numeric
// and categorical alike. Percentages are rounded to two decimals for
// reproducible output; a zero-row table reports 0 percent.
func (p *Profiler) missingReport(t *table.Table) analysis.MissingValueReport {
	report := analysis.MissingValueReport{
		TotalMissing:      make(map[string]int),
		PercentageMissing: make(map[string]float64),
	}
	rows := t.RowCount()
	for _, col := range t.Columns() {
		missing := col.MissingCount()
		report.TotalMissing[col.Name] = missing
		if rows == 0 {
			report.PercentageMissing[col.Name] = 0
			continue
		}
		pct := float64(missing) / float64(rows) * 100
		report.PercentageMissing[col.Name] = math.Round(pct*100) / 100
	}
	return report
}

func dropNaN(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
