package cmd

import (
	"context"
	"fmt"
	"os"

	"forum-importer/core/config"
	"forum-importer/core/database"
	"forum-importer/core/logger"
	"forum-importer/core/storage"
	"forum-importer/feature/integrity"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var fixFlag bool

// integrityCmd represents the integrity command
var integrityCmd = &cobra.Command{
	Use:   "integrity",
	Short: "Perform integrity checks on the forum database and import bucket",
	Long:  `Checks that the forum schema matches the models and that the import bucket and its folders exist.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) > 0 {
			cmd.Help()
			return
		}
		runIntegrityChecks(cmd.Context(), true, true)
	},
}

// schemaCmd represents the integrity schema command
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Check and migrate the forum schema",
	Run: func(cmd *cobra.Command, args []string) {
		runIntegrityChecks(cmd.Context(), true, false)
	},
}

// storageCmd represents the integrity storage command
var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Check and fix the import bucket",
	Run: func(cmd *cobra.Command, args []string) {
		runIntegrityChecks(cmd.Context(), false, true)
	},
}

func init() {
	RootCmd.AddCommand(integrityCmd)
	integrityCmd.AddCommand(schemaCmd, storageCmd)

	schemaCmd.Flags().BoolVar(&fixFlag, "fix", false, "Migrate missing tables and columns")
	storageCmd.Flags().BoolVar(&fixFlag, "fix", false, "Create the missing bucket and folders")
}

func runIntegrityChecks(ctx context.Context, runSchema, runStorage bool) {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logg.Sync()

	// Fix only applies when a single check was selected
	fix := fixFlag && runSchema != runStorage

	var db *gorm.DB
	if runSchema {
		if db, err = database.Connect(cfg.Database); err != nil {
			logg.Fatal("Database connection failed", zap.Error(err))
		}
	}

	var store storage.Client
	if runStorage {
		if store, err = storage.NewClient(cfg.Storage); err != nil {
			logg.Fatal("Failed to create storage client", zap.Error(err))
		}
	}

	svc := integrity.NewService(store, cfg.Storage, []string{cfg.Import.ReportPrefix}, logg, db)

	if runSchema {
		logg.Info("Checking forum schema...", zap.String("driver", cfg.Database.Driver))
		report, err := svc.CheckSchema()
		if err != nil {
			logg.Fatal("Schema check failed", zap.Error(err))
		}

		if report.Matched {
			logg.Info("Schema is intact.")
		} else {
			for name, table := range report.Tables {
				if table.Status != "ok" {
					logg.Warn("Table drift detected",
						zap.String("table", name),
						zap.String("status", table.Status),
						zap.Strings("missing_columns", table.MissingColumns),
						zap.Strings("type_mismatches", table.TypeMismatches),
					)
				}
			}
			for _, msg := range report.Errors {
				logg.Error("Schema inspection error", zap.String("error", msg))
			}

			if fix {
				logg.Info("Migrating schema...")
				if err := svc.FixSchema(ctx); err != nil {
					logg.Fatal("Failed to migrate schema", zap.Error(err))
				}
				logg.Info("Schema migrated successfully.")
			} else if !runStorage {
				logg.Info("Run with --fix to migrate the schema.")
			}
		}
	}

	if runStorage {
		logg.Info("Checking import bucket...", zap.String("bucket", cfg.Storage.Bucket))
		report, err := svc.CheckStorage(ctx)
		if err != nil {
			logg.Fatal("Storage check failed", zap.Error(err))
		}

		if report.OK() {
			logg.Info("Storage is intact.")
		} else {
			logg.Warn("Storage incomplete", zap.Bool("bucket_exists", report.Exists), zap.Strings("missing", report.Missing))

			if fix {
				logg.Info("Fixing storage...")
				if err := svc.FixStorage(ctx, report); err != nil {
					logg.Fatal("Failed to fix storage", zap.Error(err))
				}
				logg.Info("Storage fixed successfully.")
			} else if !runSchema {
				logg.Info("Run with --fix to create the missing bucket and folders.")
			}
		}
	}
}
