package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"datapulse/domain/analysis"
	"datapulse/domain/core"
	"datapulse/ports"

	"github.com/jmoiron/sqlx"
)

// analysisRepository implements the AnalysisRepository interface
type analysisRepository struct {
	db *sqlx.DB
}

// NewAnalysisRepository creates a new analysis repository
func NewAnalysisRepository(db *sqlx.DB) ports.AnalysisRepository {
	return &analysisRepository{db: db}
}

// Create inserts an analysis report; the report sections are stored as JSONB
func (r *analysisRepository) Create(ctx context.Context, report *analysis.Report) error {
	columnsJSON, err := json.Marshal(report.Columns)
	if err != nil {
		return fmt.Errorf("failed to marshal classification: %w", err)
	}
	summaryJSON, err := json.Marshal(report.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	correlationsJSON, err := json.Marshal(report.Correlations)
	if err != nil {
		return fmt.Errorf("failed to marshal correlations: %w", err)
	}
	missingJSON, err := json.Marshal(report.Missing)
	if err != nil {
		return fmt.Errorf("failed to marshal missing report: %w", err)
	}
	outliersJSON, err := json.Marshal(report.Outliers)
	if err != nil {
		return fmt.Errorf("failed to marshal outlier report: %w", err)
	}

	// The insight is stored as the transmitted string, sentinels included;
	// the tagged status is recovered from the text on read.
	query := `INSERT INTO analyses (
		id, dataset_id, row_count, column_count, columns, summary_stats,
		correlations, missing_data, outliers, ai_insights, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.db.ExecContext(ctx, query,
		report.ID, report.DatasetID, report.RowCount, report.ColumnCount,
		columnsJSON, summaryJSON, correlationsJSON, missingJSON, outliersJSON, report.Narrative.Text,
		report.CreatedAt.Time(),
	)
	if err != nil {
		return fmt.Errorf("failed to create analysis: %w", err)
	}
	return nil
}

// GetByDatasetID retrieves the analysis report for a dataset
func (r *analysisRepository) GetByDatasetID(ctx context.Context, datasetID core.DatasetID) (*analysis.Report, error) {
	query := `SELECT id, dataset_id, row_count, column_count, columns, summary_stats,
		correlations, missing_data, outliers, ai_insights, created_at
	FROM analyses WHERE dataset_id = $1 ORDER BY created_at DESC LIMIT 1`

	var (
		report           analysis.Report
		createdAt        time.Time
		columnsJSON      []byte
		summaryJSON      []byte
		correlationsJSON []byte
		missingJSON      []byte
		outliersJSON     []byte
		insightText      string
	)

	err := r.db.QueryRowContext(ctx, query, datasetID).Scan(
		&report.ID, &report.DatasetID, &report.RowCount, &report.ColumnCount,
		&columnsJSON, &summaryJSON, &correlationsJSON, &missingJSON, &outliersJSON, &insightText,
		&createdAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("analysis not found for dataset: %s", datasetID)
		}
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}

	report.CreatedAt = core.NewTimestamp(createdAt)
	report.Narrative = analysis.NarrativeFromText(insightText)
	for _, section := range []struct {
		raw []byte
		dst interface{}
	}{
		{columnsJSON, &report.Columns},
		{summaryJSON, &report.Summary},
		{correlationsJSON, &report.Correlations},
		{missingJSON, &report.Missing},
		{outliersJSON, &report.Outliers},
	} {
		if len(section.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(section.raw, section.dst); err != nil {
			return nil, fmt.Errorf("failed to unmarshal analysis section: %w", err)
		}
	}

	return &report, nil
}

// DeleteByDatasetID removes the analyses of a dataset
func (r *analysisRepository) DeleteByDatasetID(ctx context.Context, datasetID core.DatasetID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM analyses WHERE dataset_id = $1`, datasetID); err != nil {
		return fmt.Errorf("failed to delete analyses: %w", err)
	}
	return nil
}
