package app

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"datapulse/adapters/llm"
	"datapulse/adapters/stats"
	"datapulse/domain/analysis"
	"datapulse/domain/core"
	"datapulse/internal/errors"
	"datapulse/models"
)

type memoryDatasetRepo struct {
	records map[core.DatasetID]*models.Dataset
	creates int
	updates int
}

func newMemoryDatasetRepo() *memoryDatasetRepo {
	return &memoryDatasetRepo{records: make(map[core.DatasetID]*models.Dataset)}
}

func (r *memoryDatasetRepo) Create(_ context.Context, ds *models.Dataset) error {
	r.creates++
	r.records[ds.ID] = ds
	return nil
}

func (r *memoryDatasetRepo) Update(_ context.Context, ds *models.Dataset) error {
	r.updates++
	if _, ok := r.records[ds.ID]; !ok {
		return errors.NotFound("dataset")
	}
	r.records[ds.ID] = ds
	return nil
}

func (r *memoryDatasetRepo) GetByID(_ context.Context, id core.DatasetID) (*models.Dataset, error) {
	ds, ok := r.records[id]
	if !ok {
		return nil, errors.NotFound("dataset")
	}
	return ds, nil
}

func (r *memoryDatasetRepo) ListByUser(_ context.Context, userID core.UserID, limit int) ([]*models.Dataset, error) {
	var out []*models.Dataset
	for _, ds := range r.records {
		if ds.UserID == userID && len(out) < limit {
			out = append(out, ds)
		}
	}
	return out, nil
}

func (r *memoryDatasetRepo) Delete(_ context.Context, id core.DatasetID) error {
	delete(r.records, id)
	return nil
}

type memoryAnalysisRepo struct {
	records map[core.DatasetID]*analysis.Report
}

func newMemoryAnalysisRepo() *memoryAnalysisRepo {
	return &memoryAnalysisRepo{records: make(map[core.DatasetID]*analysis.Report)}
}

func (r *memoryAnalysisRepo) Create(_ context.Context, report *analysis.Report) error {
	r.records[report.DatasetID] = report
	return nil
}

func (r *memoryAnalysisRepo) GetByDatasetID(_ context.Context, datasetID core.DatasetID) (*analysis.Report, error) {
	report, ok := r.records[datasetID]
	if !ok {
		return nil, errors.NotFound("analysis")
	}
	return report, nil
}

func (r *memoryAnalysisRepo) DeleteByDatasetID(_ context.Context, datasetID core.DatasetID) error {
	delete(r.records, datasetID)
	return nil
}

func newTestService(client *llm.MockClient) (*AnalysisService, *memoryDatasetRepo, *memoryAnalysisRepo) {
	datasets := newMemoryDatasetRepo()
	analyses := newMemoryAnalysisRepo()
	narrator := llm.NewNarratorWithClient(llm.NarratorConfig{Model: "gpt-4o-mini"}, client)
	service := NewAnalysisService(
		stats.NewProfiler(),
		stats.NewOutlierDetector(stats.DefaultDetectorConfig()),
		narrator,
		datasets,
		analyses,
		2,
	)
	return service, datasets, analyses
}

// sampleCSV builds a dataset large enough for outlier detection: two numeric
// columns, one categorical, one row with a missing value.
func sampleCSV(rows int) []byte {
	var b strings.Builder
	b.WriteString("age,score,region\n")
	for i := 0; i < rows; i++ {
		if i == 5 {
			fmt.Fprintf(&b, ",%d,north\n", i%40)
			continue
		}
		fmt.Fprintf(&b, "%d,%d,%s\n", 20+i%50, i%40, []string{"north", "south", "east"}[i%3])
	}
	return []byte(b.String())
}

func TestProcessUploadHappyPath(t *testing.T) {
	service, datasets, analyses := newTestService(&llm.MockClient{Response: "Solid data."})
	userID := core.UserID("user-1")

	result, err := service.ProcessUpload(context.Background(), userID, "people.csv", "text/csv", sampleCSV(60))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ds := result.Dataset
	if ds.Status != models.StatusCompleted {
		t.Errorf("status = %s, want completed", ds.Status)
	}
	if ds.RowCount != 60 || ds.ColumnCount != 3 {
		t.Errorf("counts = %dx%d, want 60x3", ds.RowCount, ds.ColumnCount)
	}
	if ds.UserID != userID || ds.Filename != "people.csv" {
		t.Errorf("unexpected dataset record: %+v", ds)
	}

	report := result.Report
	if report.DatasetID != ds.ID {
		t.Error("report must reference its dataset")
	}
	if len(report.Columns.Numeric) != 2 || len(report.Columns.Categorical) != 1 {
		t.Errorf("classification = %+v", report.Columns)
	}
	if report.Outliers.Status != analysis.OutlierDetected {
		t.Errorf("outlier status = %s, want detected", report.Outliers.Status)
	}
	if report.Narrative.Status != analysis.NarrativeGenerated || report.Narrative.Text != "Solid data." {
		t.Errorf("narrative = %+v", report.Narrative)
	}
	if report.Missing.TotalMissing["age"] != 1 {
		t.Errorf("missing age = %d, want 1", report.Missing.TotalMissing["age"])
	}

	// Both records persisted.
	if _, err := datasets.GetByID(context.Background(), ds.ID); err != nil {
		t.Error("dataset record not persisted")
	}
	if _, err := analyses.GetByDatasetID(context.Background(), ds.ID); err != nil {
		t.Error("analysis record not persisted")
	}
}

func TestProcessUploadStoresRecordBeforeAndAfterAnalysis(t *testing.T) {
	service, datasets, _ := newTestService(&llm.MockClient{})

	result, err := service.ProcessUpload(context.Background(), "user-1", "people.csv", "text/csv", sampleCSV(30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// One insert in the processing state, then an update with the outcome.
	if datasets.creates != 1 {
		t.Errorf("creates = %d, want 1", datasets.creates)
	}
	if datasets.updates != 1 {
		t.Errorf("updates = %d, want 1", datasets.updates)
	}
	stored := datasets.records[result.Dataset.ID]
	if stored.Status != models.StatusCompleted {
		t.Errorf("stored status = %s, want completed", stored.Status)
	}
	if stored.RowCount != 30 {
		t.Errorf("stored row count = %d, want 30", stored.RowCount)
	}
}

func TestProcessUploadDegradesWithoutNarrator(t *testing.T) {
	datasets := newMemoryDatasetRepo()
	analyses := newMemoryAnalysisRepo()
	service := NewAnalysisService(
		stats.NewProfiler(),
		stats.NewOutlierDetector(stats.DefaultDetectorConfig()),
		llm.NewNarrator(llm.NarratorConfig{}),
		datasets,
		analyses,
		1,
	)

	result, err := service.ProcessUpload(context.Background(), "user-1", "people.csv", "text/csv", sampleCSV(30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Report.Narrative.Status != analysis.NarrativeUnavailable {
		t.Errorf("narrative status = %s, want unavailable", result.Report.Narrative.Status)
	}
	if result.Report.Narrative.Text != analysis.InsightUnavailable {
		t.Errorf("narrative text = %q, want the unavailable sentinel", result.Report.Narrative.Text)
	}
	if result.Dataset.Status != models.StatusCompleted {
		t.Error("degraded narrative must not fail the upload")
	}
}

func TestProcessUploadNarratorFailureStillCompletes(t *testing.T) {
	service, _, _ := newTestService(&llm.MockClient{Error: fmt.Errorf("rate limited")})

	result, err := service.ProcessUpload(context.Background(), "user-1", "people.csv", "text/csv", sampleCSV(30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Report.Narrative.Status != analysis.NarrativeFailed {
		t.Errorf("narrative status = %s, want failed", result.Report.Narrative.Status)
	}
	if !strings.HasPrefix(result.Report.Narrative.Text, "AI insights generation failed: ") {
		t.Errorf("narrative text = %q", result.Report.Narrative.Text)
	}
}

func TestProcessUploadUndecodableFile(t *testing.T) {
	service, datasets, _ := newTestService(&llm.MockClient{})

	_, err := service.ProcessUpload(context.Background(), "user-1", "broken.json", "application/json", []byte("{not json"))
	if err == nil {
		t.Fatal("expected error for an undecodable file")
	}

	// The failed dataset record is still stored for visibility.
	var failed *models.Dataset
	for _, ds := range datasets.records {
		failed = ds
	}
	if failed == nil {
		t.Fatal("expected a stored failed dataset record")
	}
	if failed.Status != models.StatusFailed || failed.ErrorMessage == "" {
		t.Errorf("failed record = %+v", failed)
	}
	if datasets.updates != 1 {
		t.Errorf("updates = %d, want the failure stored via update", datasets.updates)
	}
}

func TestGetAnalysisOwnership(t *testing.T) {
	service, _, _ := newTestService(&llm.MockClient{})
	ctx := context.Background()

	result, err := service.ProcessUpload(ctx, "owner", "people.csv", "text/csv", sampleCSV(20))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := service.GetAnalysis(ctx, "owner", result.Dataset.ID); err != nil {
		t.Errorf("owner should read their analysis: %v", err)
	}
	if _, err := service.GetAnalysis(ctx, "intruder", result.Dataset.ID); err == nil {
		t.Error("another user must not read the analysis")
	}
}

func TestDeleteDataset(t *testing.T) {
	service, datasets, analyses := newTestService(&llm.MockClient{})
	ctx := context.Background()

	result, err := service.ProcessUpload(ctx, "owner", "people.csv", "text/csv", sampleCSV(20))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id := result.Dataset.ID

	if err := service.DeleteDataset(ctx, "intruder", id); err == nil {
		t.Fatal("another user must not delete the dataset")
	}
	if err := service.DeleteDataset(ctx, "owner", id); err != nil {
		t.Fatalf("owner delete failed: %v", err)
	}
	if _, ok := datasets.records[id]; ok {
		t.Error("dataset record should be gone")
	}
	if _, ok := analyses.records[id]; ok {
		t.Error("analysis record should be gone")
	}
}

func TestAnalyzeTableMalformedAborts(t *testing.T) {
	service, _, _ := newTestService(&llm.MockClient{})

	_, err := service.ProcessUpload(context.Background(), "user-1", "empty.json", "application/json", []byte("[]"))
	if err == nil {
		t.Fatal("expected error for a zero-column table")
	}
	if !errors.IsMalformedTable(err) {
		t.Errorf("code = %s, want MALFORMED_TABLE", errors.GetCode(err))
	}
}
