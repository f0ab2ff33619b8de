package integrity

import (
	"context"
	"fmt"

	"forum-importer/core/storage"
	"forum-importer/feature/forum/models"
	"forum-importer/feature/integrity/checks"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service handles integrity checks.
type Service struct {
	client  storage.Client
	storage storage.Config
	folders []string
	logger  *zap.Logger
	db      *gorm.DB
}

// NewService creates a new integrity service. folders lists the prefixes
// that must carry a marker in the bucket.
func NewService(client storage.Client, storageCfg storage.Config, folders []string, logger *zap.Logger, db *gorm.DB) *Service {
	return &Service{
		client:  client,
		storage: storageCfg,
		folders: folders,
		logger:  logger,
		db:      db,
	}
}

// CheckSchema compares the forum tables with the models.
func (s *Service) CheckSchema() (*checks.SchemaReport, error) {
	return checks.CheckSchema(s.db, models.All()...)
}

// FixSchema creates missing tables and columns.
func (s *Service) FixSchema(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return s.db.WithContext(ctx).AutoMigrate(models.All()...)
}

// CheckStorage inspects the bucket and its folder markers.
func (s *Service) CheckStorage(ctx context.Context) (*checks.StorageReport, error) {
	if s.client == nil {
		return nil, fmt.Errorf("storage client is nil")
	}
	return checks.CheckStorage(ctx, s.client, s.storage.Bucket, s.folders)
}

// FixStorage creates whatever report lists as missing.
func (s *Service) FixStorage(ctx context.Context, report *checks.StorageReport) error {
	return checks.FixStorage(ctx, s.client, s.storage.Region, s.logger, report)
}
