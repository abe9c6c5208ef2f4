package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"datapulse/domain/core"
	"datapulse/models"
	"datapulse/ports"

	"github.com/jmoiron/sqlx"
)

// datasetRepository implements the DatasetRepository interface
type datasetRepository struct {
	db *sqlx.DB
}

// NewDatasetRepository creates a new dataset repository
func NewDatasetRepository(db *sqlx.DB) ports.DatasetRepository {
	return &datasetRepository{db: db}
}

const datasetColumns = `id, user_id, filename, COALESCE(file_size, 0) as file_size,
	COALESCE(file_type, '') as file_type, status, COALESCE(error_message, '') as error_message,
	upload_time, COALESCE(processing_time, 0) as processing_time,
	COALESCE(row_count, 0) as row_count, COALESCE(column_count, 0) as column_count`

// Create inserts a new dataset into the database
func (r *datasetRepository) Create(ctx context.Context, ds *models.Dataset) error {
	query := `INSERT INTO datasets (
		id, user_id, filename, file_size, file_type, status, error_message,
		upload_time, processing_time, row_count, column_count
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.ExecContext(ctx, query,
		ds.ID, ds.UserID, ds.Filename, ds.FileSize, ds.FileType, ds.Status, ds.ErrorMessage,
		ds.UploadTime, ds.ProcessingTime, ds.RowCount, ds.ColumnCount,
	)
	if err != nil {
		return fmt.Errorf("failed to create dataset: %w", err)
	}
	return nil
}

// Update stores the current processing state of a dataset
func (r *datasetRepository) Update(ctx context.Context, ds *models.Dataset) error {
	query := `UPDATE datasets SET
		status = $2, error_message = $3, processing_time = $4, row_count = $5, column_count = $6
	WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query,
		ds.ID, ds.Status, ds.ErrorMessage, ds.ProcessingTime, ds.RowCount, ds.ColumnCount,
	)
	if err != nil {
		return fmt.Errorf("failed to update dataset: %w", err)
	}
	return nil
}

// GetByID retrieves a dataset by its ID
func (r *datasetRepository) GetByID(ctx context.Context, id core.DatasetID) (*models.Dataset, error) {
	var ds models.Dataset
	query := fmt.Sprintf(`SELECT %s FROM datasets WHERE id = $1`, datasetColumns)
	err := r.db.GetContext(ctx, &ds, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("dataset not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	return &ds, nil
}

// ListByUser retrieves datasets for a user, newest first
func (r *datasetRepository) ListByUser(ctx context.Context, userID core.UserID, limit int) ([]*models.Dataset, error) {
	if limit < 1 {
		limit = 100
	}
	var datasets []*models.Dataset
	query := fmt.Sprintf(`SELECT %s FROM datasets WHERE user_id = $1 ORDER BY upload_time DESC LIMIT $2`, datasetColumns)
	if err := r.db.SelectContext(ctx, &datasets, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	return datasets, nil
}

// Delete removes a dataset; analyses cascade at the schema level
func (r *datasetRepository) Delete(ctx context.Context, id core.DatasetID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM datasets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return fmt.Errorf("dataset not found: %s", id)
	}
	return nil
}
