package cmd

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"forum-importer/core/config"
	"forum-importer/core/database"
	"forum-importer/core/loader"
	"forum-importer/core/logger"
	"forum-importer/core/middleware/auth"
	"forum-importer/core/middleware/ratelimit"
	"forum-importer/core/middleware/rayid"
	"forum-importer/core/storage"

	"forum-importer/feature/forum"
	"forum-importer/feature/integrity"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "forum-importer/docs/swagger"
)

// @title Forum Importer API
// @version 1.0
// @description API for importing foreign forum exports into the forum database.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the import server",
	Long:  `Starts the HTTP server and initializes all enabled features.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Load Configuration
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		// 2. Initialize Logger
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		// 3. Connect to Database (Optional, the forum feature stays disabled without it)
		var db *gorm.DB
		if conn, err := database.Connect(cfg.Database); err != nil {
			logg.Warn("Optional database connection failed", zap.Error(err))
		} else {
			db = conn
			logg = logg.With(zap.String("driver", cfg.Database.Driver))
			logg.Info("Connected to forum database")
		}

		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
			BodyLimit:             cfg.Server.BodyLimit(),
		})

		// 4. Initialize Storage
		store, err := storage.NewClient(cfg.Storage)
		if err != nil {
			logg.Fatal("Failed to create storage client", zap.Error(err))
		}

		// 5. Register Features
		var limiter fiber.Handler
		if cfg.Server.IsRateLimited() {
			limiter = ratelimit.New(ratelimit.Config{Limit: cfg.Server.RateLimit, Burst: cfg.Server.RateBurst})
		}

		forumFeature := forum.NewFeature(store, cfg.Storage, cfg.Import, logg, db, limiter)
		if db != nil {
			if err := forumFeature.Service().Migrate(cmd.Context()); err != nil {
				logg.Fatal("Failed to migrate forum schema", zap.Error(err))
			}
		}

		mgr := loader.NewManager(logg)
		mgr.Register(integrity.NewFeature(store, cfg.Storage, []string{cfg.Import.ReportPrefix}, logg, db))
		mgr.Register(forumFeature)

		// Middleware Registration
		// RayID must be first to trace everything
		app.Use(rayid.New())

		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// Swagger Documentation (Public)
		app.Get("/swagger/*", swagger.HandlerDefault)

		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))

		// 6. Load Features
		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 7. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(":" + cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 8. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
