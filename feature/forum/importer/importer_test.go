package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"forum-importer/core/reconcile"
	"forum-importer/feature/forum/models"
	"forum-importer/feature/forum/records"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func decode(t *testing.T, js string) *records.RecordSet {
	t.Helper()
	set, err := records.Decode(strings.NewReader(js), records.FormatJSON)
	require.NoError(t, err)
	return set
}

const scenarioA = `{
  "users": [{"username": "u1", "email": "u1@x.com"}],
  "categories": [{"name": "Tech"}],
  "posts": [{"title": "T", "content": "C", "user": "u1", "category": "Tech"}]
}`

func TestImport_ScenarioA(t *testing.T) {
	db := setupTestDB(t)

	result, err := Import(context.Background(), db, decode(t, scenarioA), fastOptions())
	require.NoError(t, err)
	assert.Equal(t, reconcile.StateComplete, result.State)

	assert.Equal(t, int64(1), count(t, db, &models.User{}))
	assert.Equal(t, int64(1), count(t, db, &models.Category{}))
	assert.Equal(t, int64(1), count(t, db, &models.Post{}))

	var user models.User
	var category models.Category
	var post models.Post
	require.NoError(t, db.First(&user).Error)
	require.NoError(t, db.First(&category).Error)
	require.NoError(t, db.First(&post).Error)

	assert.Equal(t, user.ID, post.AuthorID)
	assert.Equal(t, category.ID, post.CategoryID)
	assert.Nil(t, post.SectionID)
	assert.Equal(t, models.RoleUser, user.Role)

	assert.Equal(t, reconcile.KindCounts{Created: 1}, result.Summary.For(KindUser))
	assert.Equal(t, reconcile.KindCounts{Created: 1}, result.Summary.For(KindPost))
	assert.Equal(t, user.ID, result.Mappings[KindUser]["u1"])
	assert.Equal(t, post.ID, result.Mappings[KindPost]["T"])
}

func TestImport_ScenarioB(t *testing.T) {
	db := setupTestDB(t)
	set := decode(t, `{
	  "categories": [{"name": "Tech"}],
	  "posts": [{"title": "T", "content": "C", "user": "u1", "category": "Tech"}]
	}`)

	result, err := Import(context.Background(), db, set, fastOptions())
	require.NoError(t, err)

	assert.Equal(t, int64(0), count(t, db, &models.Post{}))
	assert.Equal(t, reconcile.KindCounts{Failed: 1}, result.Summary.For(KindPost))

	skips := result.Summary.SkipsFor(KindPost)
	require.Len(t, skips, 1)
	assert.Equal(t, reconcile.ReasonUnresolvedReference, skips[0].Reason)
	assert.Contains(t, skips[0].Detail, `author "u1"`)
}

const richSet = `{
  "users": [
    {"username": "alice", "email": "alice@x.com", "role": "admin", "external_id": 100},
    {"username": "bob", "email": "bob@x.com", "password": "hunter2", "external_id": 101},
    {"username": "bob", "email": "bob@x.com"},
    {"username": "", "email": "nobody@x.com"}
  ],
  "sections": [{"name": "General"}],
  "categories": [{"name": "Tech", "external_id": "c1"}, {"name": "News"}],
  "tags": [{"name": "go"}],
  "posts": [
    {"external_id": "p1", "title": "Hello", "content": "First", "author": 100, "category": "c1", "section": "General", "tags": ["go", "sql"]},
    {"external_id": "p2", "title": "Second", "content": "More", "author": "bob", "category": "News", "tags": ["go"]},
    {"external_id": "p3", "title": "Lost", "content": "Nowhere", "author": "bob", "category": "News", "section": "Missing"}
  ],
  "comments": [
    {"external_id": "c-2", "content": "reply", "post": "p1", "author": "alice", "parent": "c-1"},
    {"external_id": "c-1", "content": "top", "post": "p1", "author": 101},
    {"external_id": "c-3", "content": "other", "post": "Second", "author": "bob"},
    {"external_id": "c-4", "content": "orphan", "post": "p404", "author": "bob"}
  ],
  "votes": [
    {"post": "p1", "user": "bob", "vote_type": "up"},
    {"post": "p1", "user": "alice", "vote_type": -1},
    {"post": "p2", "user": "bob", "vote_type": 1},
    {"post": "p2", "user": "ghost", "vote_type": "up"}
  ]
}`

func TestImport_RichSet(t *testing.T) {
	db := setupTestDB(t)

	result, err := Import(context.Background(), db, decode(t, richSet), fastOptions())
	require.NoError(t, err)

	s := result.Summary
	assert.Equal(t, reconcile.KindCounts{Created: 2, Skipped: 1, Failed: 1}, s.For(KindUser))
	assert.Equal(t, reconcile.KindCounts{Created: 1}, s.For(KindSection))
	assert.Equal(t, reconcile.KindCounts{Created: 2}, s.For(KindCategory))
	assert.Equal(t, reconcile.KindCounts{Created: 2}, s.For(KindTag), "go listed, sql auto-created")
	assert.Equal(t, reconcile.KindCounts{Created: 2, Failed: 1}, s.For(KindPost))
	assert.Equal(t, reconcile.KindCounts{Created: 3}, s.For(KindPostTag))
	assert.Equal(t, reconcile.KindCounts{Created: 3, Failed: 1}, s.For(KindComment))
	assert.Equal(t, reconcile.KindCounts{Created: 3, Failed: 1}, s.For(KindVote))

	var hello models.Post
	require.NoError(t, db.Where("title = ?", "Hello").First(&hello).Error)
	assert.Equal(t, result.Mappings[KindUser]["alice"], hello.AuthorID)
	assert.Equal(t, result.Mappings[KindCategory]["Tech"], hello.CategoryID)
	require.NotNil(t, hello.SectionID)
	assert.Equal(t, 0, hello.VoteCount, "one up and one down")
	assert.Equal(t, 2, hello.CommentCount)

	var second models.Post
	require.NoError(t, db.Where("title = ?", "Second").First(&second).Error)
	assert.Equal(t, 1, second.VoteCount)
	assert.Equal(t, 1, second.CommentCount)

	// Reply was listed before its parent and still got linked
	var reply, parent models.Comment
	require.NoError(t, db.Where("content = ?", "reply").First(&reply).Error)
	require.NoError(t, db.Where("content = ?", "top").First(&parent).Error)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, parent.ID, *reply.ParentID)

	var goTag models.Tag
	require.NoError(t, db.Where("name = ?", "go").First(&goTag).Error)
	assert.Equal(t, 2, goTag.PostCount)

	var bob models.User
	require.NoError(t, db.Where("username = ?", "bob").First(&bob).Error)
	assert.True(t, strings.HasPrefix(bob.PasswordHash, "$2a$"))
	assert.NotContains(t, bob.PasswordHash, "hunter2")

	assert.Equal(t, int64(2), result.Stats.Posts)
	assert.Equal(t, int64(2), result.Stats.Tags)
}

func TestImport_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	tables := []any{
		&models.User{}, &models.Section{}, &models.Category{}, &models.Tag{},
		&models.Post{}, &models.PostTag{}, &models.Comment{}, &models.Vote{},
	}

	first, err := Import(ctx, db, decode(t, richSet), fastOptions())
	require.NoError(t, err)
	before := make([]int64, len(tables))
	for i, m := range tables {
		before[i] = count(t, db, m)
	}
	var hello models.Post
	require.NoError(t, db.Where("title = ?", "Hello").First(&hello).Error)

	second, err := Import(ctx, db, decode(t, richSet), fastOptions())
	require.NoError(t, err)
	for i, m := range tables {
		assert.Equal(t, before[i], count(t, db, m), "%T row count changed on re-run", m)
	}

	assert.Zero(t, second.Summary.Totals().Created)
	assert.Equal(t, reconcile.KindCounts{Skipped: 3, Failed: 1}, second.Summary.For(KindUser))
	assert.Equal(t, reconcile.KindCounts{Skipped: 2, Failed: 1}, second.Summary.For(KindPost))
	assert.Equal(t, reconcile.KindCounts{Skipped: 3}, second.Summary.For(KindPostTag))
	assert.Equal(t, reconcile.KindCounts{Skipped: 3, Failed: 1}, second.Summary.For(KindComment))
	assert.Equal(t, reconcile.KindCounts{Skipped: 3, Failed: 1}, second.Summary.For(KindVote))
	assert.Equal(t, first.Mappings[KindPost]["p1"], second.Mappings[KindPost]["p1"])

	var again models.Post
	require.NoError(t, db.Where("title = ?", "Hello").First(&again).Error)
	assert.Equal(t, hello.VoteCount, again.VoteCount, "votes are not re-applied")
	assert.Equal(t, hello.CommentCount, again.CommentCount)
}

func TestImport_CommentDroppedWhenPostUnresolved(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, "alice", models.RoleAdmin)

	set := &records.RecordSet{
		Comments: []records.Comment{{ExternalID: "c1", Content: "hi", Post: "does-not-exist", Author: "alice"}},
	}
	result, err := Import(context.Background(), db, set, fastOptions())
	require.NoError(t, err)

	assert.Equal(t, int64(0), count(t, db, &models.Comment{}))
	assert.Equal(t, reconcile.KindCounts{Failed: 1}, result.Summary.For(KindComment))
}

func TestImport_TagAutoVivification(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, "alice", models.RoleUser)
	seedCategory(t, db, "Tech")

	set := &records.RecordSet{
		Posts: []records.Post{{Title: "T", Content: "C", Author: "alice", Category: "Tech", Tags: []string{"brand-new"}}},
	}
	result, err := Import(context.Background(), db, set, fastOptions())
	require.NoError(t, err)

	var tags []models.Tag
	require.NoError(t, db.Find(&tags).Error)
	require.Len(t, tags, 1)
	assert.Equal(t, "brand-new", tags[0].Name)
	assert.Equal(t, 1, tags[0].PostCount)
	assert.Equal(t, int64(1), count(t, db, &models.PostTag{}))
	assert.Equal(t, reconcile.KindCounts{Created: 1}, result.Summary.For(KindTag))
}

func TestImport_SameTitlePostsKeepTheirOwnTags(t *testing.T) {
	db := setupTestDB(t)
	seedCategory(t, db, "Tech")

	set := decode(t, `{
  "users": [{"username": "a", "email": "a@x.com"}, {"username": "b", "email": "b@x.com"}],
  "posts": [
    {"title": "Hello", "content": "A", "author": "a", "category": "Tech", "tags": ["ta"]},
    {"title": "Hello", "content": "B", "author": "b", "category": "Tech", "tags": ["tb"]}
  ]
}`)
	result, err := Import(context.Background(), db, set, fastOptions())
	require.NoError(t, err)
	assert.Equal(t, reconcile.KindCounts{Created: 2}, result.Summary.For(KindPost))
	assert.Equal(t, reconcile.KindCounts{Created: 2}, result.Summary.For(KindPostTag))

	tagOf := func(author string) []string {
		var names []string
		require.NoError(t, db.Table("post_tags").
			Joins("JOIN posts ON posts.id = post_tags.post_id").
			Joins("JOIN users ON users.id = posts.author_id").
			Joins("JOIN tags ON tags.id = post_tags.tag_id").
			Where("users.username = ?", author).
			Pluck("tags.name", &names).Error)
		return names
	}
	assert.Equal(t, []string{"ta"}, tagOf("a"))
	assert.Equal(t, []string{"tb"}, tagOf("b"))
}

func TestImport_DroppedPostTagsNotCounted(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, "alice", models.RoleUser)

	// No category exists, so the post is dropped before its tags are linked
	set := &records.RecordSet{
		Posts: []records.Post{{Title: "T", Content: "C", Author: "alice", Tags: []string{"go", "sql"}}},
	}
	result, err := Import(context.Background(), db, set, fastOptions())
	require.NoError(t, err)

	assert.Equal(t, reconcile.KindCounts{Failed: 1}, result.Summary.For(KindPost))
	assert.Equal(t, reconcile.KindCounts{}, result.Summary.For(KindPostTag))
	assert.Len(t, result.Summary.Skips, 1)
	assert.Equal(t, int64(0), count(t, db, &models.Tag{}))
}

func TestImport_CategoryFallbackApplied(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, "alice", models.RoleUser)
	seedCategory(t, db, "Misc")
	def := seedCategory(t, db, DefaultCategory)

	set := &records.RecordSet{
		Posts: []records.Post{{Title: "T", Content: "C", Author: "alice", Category: "Unknown"}},
	}
	_, err := Import(context.Background(), db, set, fastOptions())
	require.NoError(t, err)

	var post models.Post
	require.NoError(t, db.First(&post).Error)
	assert.Equal(t, def.ID, post.CategoryID)
}

func TestImport_PostDroppedWhenNoCategoryExists(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, "alice", models.RoleUser)

	set := &records.RecordSet{
		Posts: []records.Post{{Title: "T", Content: "C", Author: "alice", Category: "Unknown"}},
	}
	result, err := Import(context.Background(), db, set, fastOptions())
	require.NoError(t, err)

	assert.Equal(t, int64(0), count(t, db, &models.Post{}))
	assert.Contains(t, result.Summary.SkipsFor(KindPost)[0].Detail, `category "Unknown"`)
}

func TestImport_VoteRequiresExactUser(t *testing.T) {
	db := setupTestDB(t)
	admin := seedUser(t, db, "root", models.RoleAdmin)
	cat := seedCategory(t, db, "Tech")
	post := &models.Post{Title: "T", Content: "C", AuthorID: admin.ID, CategoryID: cat.ID}
	require.NoError(t, db.Create(post).Error)

	set := &records.RecordSet{Votes: []records.Vote{{Post: "T", User: "ghost", VoteType: "up"}}}
	result, err := Import(context.Background(), db, set, fastOptions())
	require.NoError(t, err)

	assert.Equal(t, int64(0), count(t, db, &models.Vote{}))
	assert.Equal(t, reconcile.KindCounts{Failed: 1}, result.Summary.For(KindVote))
}

func TestImport_ClearExisting(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := Import(ctx, db, decode(t, richSet), fastOptions())
	require.NoError(t, err)
	stale := seedUser(t, db, "stale", models.RoleUser)
	require.NoError(t, db.Create(&models.Favorite{PostID: 1, UserID: stale.ID}).Error)

	opts := fastOptions()
	opts.ClearExisting = true
	result, err := Import(ctx, db, decode(t, scenarioA), opts)
	require.NoError(t, err)

	assert.Equal(t, reconcile.State("purge"), result.History[1])
	require.Len(t, result.Purged, 9)
	assert.Equal(t, "votes", result.Purged[0].Table)
	assert.Equal(t, "users", result.Purged[8].Table)
	assert.Equal(t, int64(3), result.Purged[8].Rows)

	assert.Equal(t, int64(1), count(t, db, &models.User{}))
	assert.Equal(t, int64(1), count(t, db, &models.Post{}))
	assert.Equal(t, int64(0), count(t, db, &models.Comment{}))
	assert.Equal(t, int64(0), count(t, db, &models.Favorite{}))
	assert.Equal(t, int64(0), count(t, db, &models.Section{}))
}

func TestImport_StoreFailureAborts(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM `users`").WillReturnError(errors.New("connection lost"))
	mock.ExpectRollback()

	set := &records.RecordSet{Users: []records.User{{Username: "u1", Email: "u1@x.com"}}}
	result, err := Import(context.Background(), db, set, fastOptions())

	require.Error(t, err)
	assert.True(t, reconcile.IsStoreFailure(err))
	require.NotNil(t, result)
	assert.Equal(t, reconcile.StateAborted, result.State)
	assert.Contains(t, result.Error, "connection lost")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImport_LogsDroppedRecords(t *testing.T) {
	db := setupTestDB(t)
	core, logs := observer.New(zap.WarnLevel)
	im := New(db, zap.New(core), reconcile.Config{DefaultCategory: DefaultCategory})

	set := &records.RecordSet{Users: []records.User{{Username: "u1", Email: "not-an-email"}}}
	result, err := im.Import(context.Background(), set, fastOptions())
	require.NoError(t, err)

	assert.Equal(t, reconcile.KindCounts{Failed: 1}, result.Summary.For(KindUser))
	dropped := logs.FilterMessage("Record dropped").All()
	require.Len(t, dropped, 1)
	assert.Equal(t, "malformed_record", dropped[0].ContextMap()["reason"])
	assert.NotEmpty(t, dropped[0].ContextMap()["run_id"])
}
