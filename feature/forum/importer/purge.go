package importer

import (
	"context"

	"forum-importer/core/reconcile"
	"forum-importer/feature/forum/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PurgeCount is the number of rows deleted from one table.
type PurgeCount struct {
	Table string `json:"table"`
	Rows  int64  `json:"rows"`
}

// purgeOrder lists tables in reverse dependency order.
var purgeOrder = []struct {
	table string
	model any
}{
	{"votes", &models.Vote{}},
	{"favorites", &models.Favorite{}},
	{"post_tags", &models.PostTag{}},
	{"comments", &models.Comment{}},
	{"posts", &models.Post{}},
	{"tags", &models.Tag{}},
	{"categories", &models.Category{}},
	{"sections", &models.Section{}},
	{"users", &models.User{}},
}

// Purge deletes every forum row in reverse dependency order. Comment parent
// links are cleared first so self-references never block the delete. It is
// irreversible; callers own the confirmation.
func Purge(ctx context.Context, tx *gorm.DB) ([]PurgeCount, error) {
	db := tx.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	counts := make([]PurgeCount, 0, len(purgeOrder))

	for _, step := range purgeOrder {
		if step.table == "comments" {
			if err := db.Model(&models.Comment{}).Where("parent_id IS NOT NULL").
				UpdateColumn("parent_id", nil).Error; err != nil {
				return counts, reconcile.StoreFailure("purge comment parents", err)
			}
		}

		res := db.Delete(step.model)
		if res.Error != nil {
			return counts, reconcile.StoreFailure("purge "+step.table, res.Error)
		}
		counts = append(counts, PurgeCount{Table: step.table, Rows: res.RowsAffected})
	}
	return counts, nil
}

// purgeStage runs Purge ahead of the import stages.
type purgeStage struct {
	counts []PurgeCount
}

func (s *purgeStage) Name() string { return "purge" }

func (s *purgeStage) Execute(ctx context.Context, tx *gorm.DB, run *reconcile.Run) error {
	counts, err := Purge(ctx, tx)
	if err != nil {
		return err
	}
	s.counts = counts

	var total int64
	for _, c := range counts {
		total += c.Rows
	}
	run.Logger.Warn("Existing forum data purged", zap.Int64("rows", total))
	return nil
}
