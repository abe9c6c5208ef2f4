package app

import (
	"context"
	"log"
	"time"

	"datapulse/adapters/ingest"
	"datapulse/adapters/llm"
	"datapulse/adapters/stats"
	"datapulse/domain/analysis"
	"datapulse/domain/core"
	"datapulse/domain/table"
	"datapulse/internal/errors"
	"datapulse/models"
	"datapulse/ports"

	"golang.org/x/sync/semaphore"
)

// AnalysisService runs the dataset analysis pipeline: profile, outlier
// detection, narrative, assembled into one report. Each request owns its
// table and reports exclusively; the only cross-request resource is the
// concurrency limiter.
type AnalysisService struct {
	profiler *stats.Profiler
	detector *stats.OutlierDetector
	narrator *llm.Narrator
	datasets ports.DatasetRepository
	analyses ports.AnalysisRepository
	limiter  *semaphore.Weighted
}

// NewAnalysisService wires the pipeline. maxConcurrent bounds how many
// uploads are analyzed at once.
func NewAnalysisService(
	profiler *stats.Profiler,
	detector *stats.OutlierDetector,
	narrator *llm.Narrator,
	datasets ports.DatasetRepository,
	analyses ports.AnalysisRepository,
	maxConcurrent int64,
) *AnalysisService {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &AnalysisService{
		profiler: profiler,
		detector: detector,
		narrator: narrator,
		datasets: datasets,
		analyses: analyses,
		limiter:  semaphore.NewWeighted(maxConcurrent),
	}
}

// AnalyzeTable runs the core pipeline on a materialized table. Only a
// malformed (zero-column) table aborts; outlier and narrative failures are
// embedded in the report as data.
func (s *AnalysisService) AnalyzeTable(ctx context.Context, datasetID core.DatasetID, t *table.Table) (*analysis.Report, error) {
	profile, err := s.profiler.Profile(t)
	if err != nil {
		return nil, err
	}

	outliers := s.detector.Detect(t, profile.Classification.Numeric)

	narrative := s.narrator.Narrate(ctx, llm.Digest{
		RowCount:              t.RowCount(),
		ColumnCount:           t.ColumnCount(),
		Missing:               profile.Missing,
		Outliers:              outliers,
		CorrelationsAvailable: len(profile.Correlations) > 0,
	})

	return &analysis.Report{
		ID:           core.AnalysisID(core.NewID()),
		DatasetID:    datasetID,
		RowCount:     t.RowCount(),
		ColumnCount:  t.ColumnCount(),
		Columns:      profile.Classification,
		Summary:      profile.Summary,
		Correlations: profile.Correlations,
		Missing:      profile.Missing,
		Outliers:     outliers,
		Narrative:    narrative,
		CreatedAt:    core.Now(),
	}, nil
}

// UploadResult is what ProcessUpload hands back to the HTTP layer.
type UploadResult struct {
	Dataset *models.Dataset  `json:"dataset"`
	Report  *analysis.Report `json:"analysis"`
}

// ProcessUpload decodes an uploaded file, runs the pipeline and persists the
// dataset record plus its analysis report. The record is stored up front in
// the processing state and updated once the outcome is known.
func (s *AnalysisService) ProcessUpload(ctx context.Context, userID core.UserID, filename, contentType string, data []byte) (*UploadResult, error) {
	if err := s.limiter.Acquire(ctx, 1); err != nil {
		return nil, errors.Wrap(err, "analysis queue unavailable")
	}
	defer s.limiter.Release(1)

	ds := models.NewDataset(userID, filename, int64(len(data)), contentType)
	if err := s.datasets.Create(ctx, ds); err != nil {
		return nil, errors.Wrap(err, "failed to store dataset")
	}
	start := time.Now()

	tbl, err := ingest.Decode(filename, data)
	if err != nil {
		s.storeFailed(ctx, ds, err)
		return nil, errors.Wrap(err, "failed to process file")
	}

	report, err := s.AnalyzeTable(ctx, ds.ID, tbl)
	if err != nil {
		s.storeFailed(ctx, ds, err)
		return nil, err
	}

	ds.Status = models.StatusCompleted
	ds.ProcessingTime = time.Since(start).Seconds()
	ds.RowCount = tbl.RowCount()
	ds.ColumnCount = tbl.ColumnCount()

	if err := s.datasets.Update(ctx, ds); err != nil {
		return nil, errors.Wrap(err, "failed to store dataset")
	}
	if err := s.analyses.Create(ctx, report); err != nil {
		return nil, errors.Wrap(err, "failed to store analysis")
	}

	log.Printf("[Analysis] dataset %s analyzed: %d rows, %d columns, outliers=%s, narrative=%s",
		ds.ID, ds.RowCount, ds.ColumnCount, report.Outliers.Status, report.Narrative.Status)

	return &UploadResult{Dataset: ds, Report: report}, nil
}

// GetAnalysis loads a dataset and its report, enforcing ownership.
func (s *AnalysisService) GetAnalysis(ctx context.Context, userID core.UserID, datasetID core.DatasetID) (*UploadResult, error) {
	ds, err := s.datasets.GetByID(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	if !ds.IsOwnedBy(userID) {
		return nil, errors.NotFound("dataset")
	}
	report, err := s.analyses.GetByDatasetID(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	return &UploadResult{Dataset: ds, Report: report}, nil
}

// ListDatasets returns the user's datasets, newest first.
func (s *AnalysisService) ListDatasets(ctx context.Context, userID core.UserID, limit int) ([]*models.Dataset, error) {
	return s.datasets.ListByUser(ctx, userID, limit)
}

// DeleteDataset removes a dataset and its analysis, enforcing ownership.
func (s *AnalysisService) DeleteDataset(ctx context.Context, userID core.UserID, datasetID core.DatasetID) error {
	ds, err := s.datasets.GetByID(ctx, datasetID)
	if err != nil {
		return err
	}
	if !ds.IsOwnedBy(userID) {
		return errors.NotFound("dataset")
	}
	if err := s.analyses.DeleteByDatasetID(ctx, datasetID); err != nil {
		return err
	}
	return s.datasets.Delete(ctx, datasetID)
}

func (s *AnalysisService) storeFailed(ctx context.Context, ds *models.Dataset, cause error) {
	ds.Status = models.StatusFailed
	ds.ErrorMessage = cause.Error()
	if err := s.datasets.Update(ctx, ds); err != nil {
		log.Printf("[Analysis] failed to store failed dataset %s: %v", ds.ID, err)
	}
}
