package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type widget struct {
	ID   uint   `gorm:"column:id;primaryKey"`
	Name string `gorm:"column:name;uniqueIndex;not null"`
}

func (w *widget) PrimaryKey() uint { return w.ID }

// setupTestDB creates an isolated in-memory SQLite DB with the widgets table.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&widget{}))
	return db
}

// setupMockDB creates a mock GORM DB for failure paths.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	return gormDB, mock
}

func widgetLookup(name string) LookupFunc {
	return func(tx *gorm.DB) (uint, bool, error) {
		return FindID(tx, &widget{}, "name = ?", name)
	}
}

func widgetBuilder(name string) BuildFunc {
	return func() (Row, error) {
		return &widget{Name: name}, nil
	}
}

func TestCreateOrSkip_CreatesThenSkips(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	m := NewMapper()

	id, created, err := CreateOrSkip(ctx, db, m, "widget", "gear", widgetLookup("gear"), widgetBuilder("gear"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, id)

	mapped, ok := m.Get("widget", "gear")
	assert.True(t, ok)
	assert.Equal(t, id, mapped)

	// Second call with a fresh mapper behaves like a second run
	m2 := NewMapper()
	id2, created, err := CreateOrSkip(ctx, db, m2, "widget", "gear", widgetLookup("gear"), widgetBuilder("gear"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id, id2)

	var count int64
	db.Model(&widget{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCreateOrSkip_ExactKeyComparison(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	m := NewMapper()

	for _, name := range []string{"Gear", "gear", "gear "} {
		_, created, err := CreateOrSkip(ctx, db, m, "widget", name, widgetLookup(name), widgetBuilder(name))
		require.NoError(t, err)
		assert.True(t, created, "near-duplicate %q must be a distinct row", name)
	}

	var count int64
	db.Model(&widget{}).Count(&count)
	assert.Equal(t, int64(3), count)
}

func TestCreateOrSkip_BuilderErrorIsMalformed(t *testing.T) {
	db := setupTestDB(t)
	m := NewMapper()

	_, created, err := CreateOrSkip(context.Background(), db, m, "widget", "bad", widgetLookup("bad"), func() (Row, error) {
		return nil, errors.New("name too long")
	})
	assert.False(t, created)

	re, ok := AsRecordError(err)
	require.True(t, ok)
	assert.Equal(t, ReasonMalformedRecord, re.Reason)
	assert.False(t, IsStoreFailure(err))

	_, mapped := m.Get("widget", "bad")
	assert.False(t, mapped)
}

func TestCreateOrSkip_LookupFailureIsStoreFailure(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery("SELECT .* FROM `widgets`").
		WillReturnError(errors.New("connection reset by peer"))

	_, _, err := CreateOrSkip(context.Background(), db, NewMapper(), "widget", "gear", widgetLookup("gear"), widgetBuilder("gear"))
	assert.Error(t, err)
	assert.True(t, IsStoreFailure(err))
	assert.Contains(t, err.Error(), "lookup widget")
	assert.Contains(t, err.Error(), "connection reset by peer")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrSkip_InsertFailureIsStoreFailure(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery("SELECT .* FROM `widgets`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `widgets`").
		WillReturnError(errors.New("Error 1062: Duplicate entry 'gear'"))
	mock.ExpectRollback()

	_, _, err := CreateOrSkip(context.Background(), db, NewMapper(), "widget", "gear", widgetLookup("gear"), widgetBuilder("gear"))
	assert.True(t, IsStoreFailure(err))
	assert.Contains(t, err.Error(), "insert widget")
}

func TestExists(t *testing.T) {
	db := setupTestDB(t)
	db.Create(&widget{Name: "bolt"})

	ok, err := Exists(db, &widget{}, "name = ?", "bolt")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Exists(db, &widget{}, "name = ?", "nut")
	require.NoError(t, err)
	assert.False(t, ok)
}
