package importer

import (
	"context"

	"forum-importer/core/reconcile"
	"forum-importer/feature/forum/models"

	"gorm.io/gorm"
)

// Stats reports how many rows had their counters recomputed.
type Stats struct {
	Posts int64 `json:"posts"`
	Tags  int64 `json:"tags"`
}

// Recalculate recomputes posts.comment_count and tags.post_count from the
// comments and post_tags tables. The result depends only on the current
// relational state, never on the previously stored counters.
func Recalculate(ctx context.Context, tx *gorm.DB) (Stats, error) {
	var stats Stats
	db := tx.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})

	if err := db.Model(&models.Post{}).
		UpdateColumn("comment_count", gorm.Expr("(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id)")).Error; err != nil {
		return stats, reconcile.StoreFailure("recalculate comment_count", err)
	}
	if err := db.Model(&models.Tag{}).
		UpdateColumn("post_count", gorm.Expr("(SELECT COUNT(*) FROM post_tags WHERE post_tags.tag_id = tags.id)")).Error; err != nil {
		return stats, reconcile.StoreFailure("recalculate post_count", err)
	}

	if err := tx.WithContext(ctx).Model(&models.Post{}).Count(&stats.Posts).Error; err != nil {
		return stats, reconcile.StoreFailure("count posts", err)
	}
	if err := tx.WithContext(ctx).Model(&models.Tag{}).Count(&stats.Tags).Error; err != nil {
		return stats, reconcile.StoreFailure("count tags", err)
	}
	return stats, nil
}

// statisticsStage runs Recalculate as the last stage of an import.
type statisticsStage struct {
	stats Stats
}

func (s *statisticsStage) Name() string { return "statistics" }

func (s *statisticsStage) Execute(ctx context.Context, tx *gorm.DB, run *reconcile.Run) error {
	stats, err := Recalculate(ctx, tx)
	if err != nil {
		return err
	}
	s.stats = stats
	return nil
}
