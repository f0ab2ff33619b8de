package reconcile

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// countingSource is a test IndexSource that counts store loads.
type countingSource struct {
	kind  Kind
	input []string
	store map[string]struct{}
	err   error
	loads atomic.Int32
}

func (s *countingSource) Kind() Kind { return s.kind }

func (s *countingSource) InputKeys() []string { return s.input }

func (s *countingSource) LoadStoreKeys(ctx context.Context, db *gorm.DB) (map[string]struct{}, error) {
	s.loads.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.store, nil
}

func set(keys ...string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, k := range keys {
		out[k] = struct{}{}
	}
	return out
}

func TestPreview_PresenceUnion(t *testing.T) {
	src := &countingSource{
		kind:  "category",
		input: []string{"Tech", "News", "Tech", ""},
		store: set("News", "Legacy"),
	}

	report, err := Preview(context.Background(), &PreviewSpec{Sources: []IndexSource{src}}, nil)
	require.NoError(t, err)

	assert.Equal(t, []PresenceResult{
		{Kind: "category", Key: "Legacy", InStore: true, Action: ActionKeep},
		{Kind: "category", Key: "News", InInput: true, InStore: true, Action: ActionSkip},
		{Kind: "category", Key: "Tech", InInput: true, Action: ActionCreate},
	}, report.Results)
	assert.Equal(t, &PreviewCounts{Create: 1, Skip: 1, Keep: 1}, report.Counts["category"])
}

func TestPreview_ClearExisting(t *testing.T) {
	src := &countingSource{
		kind:  "tag",
		input: []string{"go", "sql"},
		store: set("go", "old"),
	}

	report, err := Preview(context.Background(), &PreviewSpec{Sources: []IndexSource{src}, ClearExisting: true}, nil)
	require.NoError(t, err)

	assert.Equal(t, &PreviewCounts{Create: 2, Purge: 2}, report.Counts["tag"])
}

func TestPreview_LoadError(t *testing.T) {
	src := &countingSource{kind: "user", err: errors.New("db down")}

	_, err := Preview(context.Background(), &PreviewSpec{Sources: []IndexSource{src}}, nil)
	assert.EqualError(t, err, "db down")
}

func TestIndexCache_ServesFreshEntries(t *testing.T) {
	src := &countingSource{kind: "tag", store: set("go")}
	cache := NewIndexCache(time.Minute)

	for i := 0; i < 3; i++ {
		keys, err := cache.Load(context.Background(), src, nil)
		require.NoError(t, err)
		assert.Contains(t, keys, "go")
	}
	assert.Equal(t, int32(1), src.loads.Load())

	cache.Invalidate()
	_, err := cache.Load(context.Background(), src, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.loads.Load())
}

func TestIndexCache_ZeroTTLDisablesCaching(t *testing.T) {
	src := &countingSource{kind: "tag", store: set("go")}
	cache := NewIndexCache(0)

	_, _ = cache.Load(context.Background(), src, nil)
	_, _ = cache.Load(context.Background(), src, nil)
	assert.Equal(t, int32(2), src.loads.Load())
}

func TestColumnSource_LoadStoreKeys(t *testing.T) {
	db := setupTestDB(t)
	db.Create(&widget{Name: "gear"})
	db.Create(&widget{Name: "bolt"})

	src := ColumnSource{SourceKind: "widget", Table: "widgets", Column: "name", Keys: []string{"gear"}}
	keys, err := src.LoadStoreKeys(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, set("gear", "bolt"), keys)
	assert.Equal(t, Kind("widget"), src.Kind())
	assert.Equal(t, []string{"gear"}, src.InputKeys())
}
