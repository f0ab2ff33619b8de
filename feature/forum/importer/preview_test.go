package importer

import (
	"context"
	"testing"

	"forum-importer/core/reconcile"
	"forum-importer/feature/forum/models"
	"forum-importer/feature/forum/records"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImporter_Preview(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, "alice", models.RoleUser)
	seedUser(t, db, "legacy", models.RoleUser)
	seedCategory(t, db, "Tech")

	set := &records.RecordSet{
		Users:      []records.User{{Username: "alice"}, {Username: "bob"}},
		Categories: []records.Category{{Name: "Tech"}},
		Posts:      []records.Post{{Title: "T", Tags: []string{"go"}}},
	}

	im := New(db, nil, DefaultConfig())
	report, err := im.Preview(context.Background(), set, false)
	require.NoError(t, err)

	assert.Equal(t, &reconcile.PreviewCounts{Create: 1, Skip: 1, Keep: 1}, report.Counts[KindUser])
	assert.Equal(t, &reconcile.PreviewCounts{Skip: 1}, report.Counts[KindCategory])
	assert.Equal(t, &reconcile.PreviewCounts{Create: 1}, report.Counts[KindTag])
	assert.Equal(t, &reconcile.PreviewCounts{Create: 1}, report.Counts[KindPost])

	report, err = im.Preview(context.Background(), set, true)
	require.NoError(t, err)
	assert.Equal(t, &reconcile.PreviewCounts{Create: 2, Purge: 2}, report.Counts[KindUser])

	// Nothing was written
	assert.Equal(t, int64(2), count(t, db, &models.User{}))
}
