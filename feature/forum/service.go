package forum

import (
	"context"
	"errors"
	"path"

	"forum-importer/core/reconcile"
	"forum-importer/core/storage"
	"forum-importer/feature/forum/importer"
	"forum-importer/feature/forum/models"
	"forum-importer/feature/forum/records"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNoDatabase is returned when the forum database is not connected.
var ErrNoDatabase = errors.New("forum database is not connected")

// ErrNoStorage is returned when an operation needs object storage and none is configured.
var ErrNoStorage = errors.New("object storage is not configured")

// Service runs imports for the HTTP layer and the CLI.
type Service struct {
	client   storage.Client
	storage  storage.Config
	cfg      reconcile.Config
	logger   *zap.Logger
	db       *gorm.DB
	importer *importer.Importer
}

// NewService creates a new forum import service. db and client may be nil;
// operations needing them then fail with ErrNoDatabase or ErrNoStorage.
func NewService(client storage.Client, storageCfg storage.Config, cfg reconcile.Config, logger *zap.Logger, db *gorm.DB) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		client:  client,
		storage: storageCfg,
		cfg:     cfg,
		logger:  logger,
		db:      db,
	}
	if db != nil {
		s.importer = importer.New(db, logger, cfg)
	}
	return s
}

// ImportRequest carries the per-call options of an import.
type ImportRequest struct {
	ClearExisting bool
	// UploadReport stores the result JSON in the bucket under the report prefix.
	UploadReport bool
}

// ImportResponse is the outcome of an import plus the uploaded report key, if any.
type ImportResponse struct {
	*importer.Result
	ReportKey string `json:"report_key,omitempty"`
}

// Migrate creates or updates the forum tables.
func (s *Service) Migrate(ctx context.Context) error {
	if s.db == nil {
		return ErrNoDatabase
	}
	return s.db.WithContext(ctx).AutoMigrate(models.All()...)
}

// Import runs set through the importer. When the run aborts the partial
// response is returned along with the error.
func (s *Service) Import(ctx context.Context, set *records.RecordSet, req ImportRequest) (*ImportResponse, error) {
	if s.importer == nil {
		return nil, ErrNoDatabase
	}

	result, err := s.importer.Import(ctx, set, importer.Options{ClearExisting: req.ClearExisting})
	resp := &ImportResponse{Result: result}

	if req.UploadReport && result != nil {
		key, upErr := s.UploadReport(ctx, result)
		if upErr != nil {
			s.logger.Warn("Failed to upload import report", zap.String("run_id", result.RunID), zap.Error(upErr))
		} else {
			resp.ReportKey = key
		}
	}
	return resp, err
}

// ImportObject loads a record set from the bucket and imports it. An empty
// format is inferred from the object key.
func (s *Service) ImportObject(ctx context.Context, key string, format records.Format, req ImportRequest) (*ImportResponse, error) {
	set, err := s.LoadObject(ctx, key, format)
	if err != nil {
		return nil, err
	}
	return s.Import(ctx, set, req)
}

// LoadObject downloads and decodes a record set from the bucket.
func (s *Service) LoadObject(ctx context.Context, key string, format records.Format) (*records.RecordSet, error) {
	if s.client == nil {
		return nil, ErrNoStorage
	}
	return records.LoadObject(ctx, s.client, s.storage.Bucket, key, format, s.storage.MaxObjectBytes)
}

// UploadReport stores result as JSON in the bucket and returns its key.
func (s *Service) UploadReport(ctx context.Context, result *importer.Result) (string, error) {
	if s.client == nil {
		return "", ErrNoStorage
	}
	return importer.UploadResult(ctx, s.client, s.storage.Bucket, path.Clean(s.cfg.ReportPrefix), result)
}

// Preview reports what importing set would do without writing.
func (s *Service) Preview(ctx context.Context, set *records.RecordSet, clearExisting bool) (*reconcile.PreviewReport, error) {
	if s.importer == nil {
		return nil, ErrNoDatabase
	}
	return s.importer.Preview(ctx, set, clearExisting)
}

// Recount recalculates the denormalized counters.
func (s *Service) Recount(ctx context.Context) (importer.Stats, error) {
	if s.importer == nil {
		return importer.Stats{}, ErrNoDatabase
	}
	return s.importer.Recount(ctx)
}
