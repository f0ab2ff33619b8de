package forum_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"forum-importer/core/database"
	"forum-importer/core/reconcile"
	"forum-importer/core/storage"
	"forum-importer/core/storage/mocks"
	"forum-importer/feature/forum"
	"forum-importer/feature/forum/models"

	"github.com/gofiber/fiber/v2"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const scenarioA = `{
  "users": [{"username": "u1", "email": "u1@x.com"}],
  "categories": [{"name": "Tech"}],
  "posts": [{"title": "T", "content": "C", "user": "u1", "category": "Tech"}]
}`

const scenarioAYAML = `
users:
  - username: u1
    email: u1@x.com
categories:
  - name: Tech
posts:
  - title: T
    content: C
    user: u1
    category: Tech
`

func setupTestApp(t *testing.T) (*fiber.App, *mocks.Client, *gorm.DB) {
	t.Helper()
	db, err := database.Connect(database.Config{
		Driver: database.DriverSQLite,
		Name:   fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
	})
	require.NoError(t, err)
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })

	mockClient := new(mocks.Client)
	feature := forum.NewFeature(
		mockClient,
		storage.Config{Bucket: "test-bucket", MaxObjectBytes: 1 << 20},
		reconcile.Config{DefaultCategory: "Technology Discussion", ReportPrefix: "reports"},
		zap.NewNop(),
		db,
		nil,
	)
	require.NoError(t, feature.Service().Migrate(context.Background()))

	app := fiber.New()
	require.NoError(t, feature.Load(app))
	return app, mockClient, db
}

func decodeBody(t *testing.T, body io.Reader) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func countOf(t *testing.T, body map[string]any, kind, field string) float64 {
	t.Helper()
	summary := body["summary"].(map[string]any)
	counts := summary["counts"].(map[string]any)
	return counts[kind].(map[string]any)[field].(float64)
}

func TestLoader(t *testing.T) {
	feature := forum.NewFeature(new(mocks.Client), storage.Config{}, reconcile.Config{}, zap.NewNop(), nil, nil)

	assert.Equal(t, "forum", feature.Name())
	assert.False(t, feature.IsEnabled(), "feature needs a database")
}

func TestHandleImport_JSON(t *testing.T) {
	app, _, db := setupTestApp(t)

	req := httptest.NewRequest("POST", "/import", strings.NewReader(scenarioA))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body := decodeBody(t, resp.Body)
	assert.Equal(t, "complete", body["state"])
	assert.Equal(t, float64(1), countOf(t, body, "post", "created"))

	var posts int64
	db.Model(&models.Post{}).Count(&posts)
	assert.Equal(t, int64(1), posts)
}

func TestHandleImport_YAML(t *testing.T) {
	app, _, db := setupTestApp(t)

	req := httptest.NewRequest("POST", "/import", strings.NewReader(scenarioAYAML))
	req.Header.Set("Content-Type", "application/yaml")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var users int64
	db.Model(&models.User{}).Count(&users)
	assert.Equal(t, int64(1), users)
}

func TestHandleImport_Malformed(t *testing.T) {
	app, _, _ := setupTestApp(t)

	req := httptest.NewRequest("POST", "/import", strings.NewReader(`{"users": [{"nickname": "x"}]}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestHandleImport_ClearRequiresConfirmation(t *testing.T) {
	app, _, db := setupTestApp(t)
	require.NoError(t, db.Create(&models.Tag{Name: "legacy"}).Error)

	req := httptest.NewRequest("POST", "/import?clear=true", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusPreconditionRequired, resp.StatusCode)

	var tags int64
	db.Model(&models.Tag{}).Count(&tags)
	assert.Equal(t, int64(1), tags, "nothing purged without confirmation")

	req = httptest.NewRequest("POST", "/import?clear=true", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(forum.ConfirmHeader, "yes")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	db.Model(&models.Tag{}).Count(&tags)
	assert.Equal(t, int64(0), tags)
}

func TestHandleImport_UploadsReport(t *testing.T) {
	app, mockClient, _ := setupTestApp(t)

	mockClient.On("PutObject", mock.Anything, "test-bucket", mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "reports/") && strings.HasSuffix(key, ".json")
	}), mock.Anything, mock.Anything, mock.Anything).Return(minio.UploadInfo{}, nil)

	req := httptest.NewRequest("POST", "/import?report=true", strings.NewReader(scenarioA))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body := decodeBody(t, resp.Body)
	assert.Equal(t, "reports/"+body["run_id"].(string)+".json", body["report_key"])
	mockClient.AssertExpectations(t)
}

func TestHandleImportObject(t *testing.T) {
	app, mockClient, _ := setupTestApp(t)

	mockClient.On("GetObject", mock.Anything, "test-bucket", "exports/forum.yaml", mock.Anything).
		Return(io.NopCloser(strings.NewReader(scenarioAYAML)), nil)

	resp, err := app.Test(httptest.NewRequest("POST", "/import/object?key=exports/forum.yaml", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body := decodeBody(t, resp.Body)
	assert.Equal(t, float64(1), countOf(t, body, "user", "created"))
}

func TestHandleImportObject_Errors(t *testing.T) {
	app, mockClient, _ := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest("POST", "/import/object", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("POST", "/import/object?key=a&format=xml", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	mockClient.On("GetObject", mock.Anything, "test-bucket", "missing.json", mock.Anything).
		Return(nil, errors.New("The specified key does not exist."))

	resp, err = app.Test(httptest.NewRequest("POST", "/import/object?key=missing.json", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestHandlePreview(t *testing.T) {
	app, _, db := setupTestApp(t)
	require.NoError(t, db.Create(&models.Category{Name: "Tech"}).Error)

	req := httptest.NewRequest("POST", "/import/preview", strings.NewReader(scenarioA))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body := decodeBody(t, resp.Body)
	counts := body["counts"].(map[string]any)
	assert.Equal(t, float64(1), counts["category"].(map[string]any)["skip"])
	assert.Equal(t, float64(1), counts["user"].(map[string]any)["create"])

	var users int64
	db.Model(&models.User{}).Count(&users)
	assert.Equal(t, int64(0), users, "preview must not write")
}

func TestHandleRecount(t *testing.T) {
	app, _, db := setupTestApp(t)

	user := &models.User{Username: "u1", Email: "u1@x.com", PasswordHash: "x", Role: models.RoleUser}
	require.NoError(t, db.Create(user).Error)
	cat := &models.Category{Name: "Tech"}
	require.NoError(t, db.Create(cat).Error)
	post := &models.Post{Title: "T", Content: "C", AuthorID: user.ID, CategoryID: cat.ID, CommentCount: 9}
	require.NoError(t, db.Create(post).Error)

	resp, err := app.Test(httptest.NewRequest("POST", "/import/recount", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var reloaded models.Post
	require.NoError(t, db.First(&reloaded, post.ID).Error)
	assert.Equal(t, 0, reloaded.CommentCount)
}
