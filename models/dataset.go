package models

import (
	"time"

	"datapulse/domain/core"
)

// DatasetStatus represents the processing state of a dataset
type DatasetStatus string

const (
	StatusProcessing DatasetStatus = "processing"
	StatusCompleted  DatasetStatus = "completed"
	StatusFailed     DatasetStatus = "failed"
)

// Dataset represents an uploaded dataset and its processing state
type Dataset struct {
	ID             core.DatasetID `json:"id" db:"id"`
	UserID         core.UserID    `json:"user_id" db:"user_id"`
	Filename       string         `json:"filename" db:"filename"`
	FileSize       int64          `json:"file_size" db:"file_size"`
	FileType       string         `json:"file_type" db:"file_type"`
	Status         DatasetStatus  `json:"status" db:"status"`
	ErrorMessage   string         `json:"error_message,omitempty" db:"error_message"`
	UploadTime     time.Time      `json:"upload_time" db:"upload_time"`
	ProcessingTime float64        `json:"processing_time,omitempty" db:"processing_time"`
	RowCount       int            `json:"row_count,omitempty" db:"row_count"`
	ColumnCount    int            `json:"column_count,omitempty" db:"column_count"`
}

// NewDataset creates a dataset record in the processing state
func NewDataset(userID core.UserID, filename string, fileSize int64, fileType string) *Dataset {
	return &Dataset{
		ID:         core.DatasetID(core.NewID()),
		UserID:     userID,
		Filename:   filename,
		FileSize:   fileSize,
		FileType:   fileType,
		Status:     StatusProcessing,
		UploadTime: time.Now().UTC(),
	}
}

// IsOwnedBy checks dataset ownership
func (d *Dataset) IsOwnedBy(userID core.UserID) bool {
	return d.UserID == userID
}
