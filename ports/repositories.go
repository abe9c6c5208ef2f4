package ports

import (
	"context"

	"datapulse/domain/analysis"
	"datapulse/domain/core"
	"datapulse/models"
)

// UserRepository provides user account persistence.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id core.UserID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// DatasetRepository provides dataset record persistence.
type DatasetRepository interface {
	Create(ctx context.Context, ds *models.Dataset) error
	Update(ctx context.Context, ds *models.Dataset) error
	GetByID(ctx context.Context, id core.DatasetID) (*models.Dataset, error)
	ListByUser(ctx context.Context, userID core.UserID, limit int) ([]*models.Dataset, error)
	Delete(ctx context.Context, id core.DatasetID) error
}

// AnalysisRepository persists completed analysis reports.
type AnalysisRepository interface {
	Create(ctx context.Context, report *analysis.Report) error
	GetByDatasetID(ctx context.Context, datasetID core.DatasetID) (*analysis.Report, error)
	DeleteByDatasetID(ctx context.Context, datasetID core.DatasetID) error
}
