package cmd

import (
	"fmt"

	"forum-importer/core/config"
	"forum-importer/core/database"
	"forum-importer/core/logger"
	"forum-importer/feature/forum"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// recountCmd recalculates denormalized counters outside of an import.
var recountCmd = &cobra.Command{
	Use:   "recount",
	Short: "Recalculate post comment counts and tag post counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(".")
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		l, err := logger.New(&cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer l.Sync()

		db, err := database.Connect(cfg.Database)
		if err != nil {
			return fmt.Errorf("database connection required: %w", err)
		}

		svc := forum.NewService(nil, cfg.Storage, cfg.Import, l, db)
		stats, err := svc.Recount(cmd.Context())
		if err != nil {
			return fmt.Errorf("recount failed: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Posts recounted: %d\nTags recounted: %d\n", stats.Posts, stats.Tags)
		l.Debug("Recount finished", zap.Int64("posts", stats.Posts), zap.Int64("tags", stats.Tags))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(recountCmd)
}
