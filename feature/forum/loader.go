package forum

import (
	"forum-importer/core/reconcile"
	"forum-importer/core/storage"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates a new forum import feature. limiter guards the import
// routes and may be nil.
func NewFeature(client storage.Client, storageCfg storage.Config, cfg reconcile.Config, logger *zap.Logger, db *gorm.DB, limiter fiber.Handler) *Feature {
	svc := NewService(client, storageCfg, cfg, logger, db)
	h := NewHandler(svc, limiter)
	return &Feature{service: svc, handler: h}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "forum"
}

// IsEnabled reports whether a database is connected.
func (f *Feature) IsEnabled() bool {
	return f.service.db != nil
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}

// Service exposes the feature's service to the CLI.
func (f *Feature) Service() *Service {
	return f.service
}
