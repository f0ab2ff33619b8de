package reconcile

import (
	"context"

	"gorm.io/gorm"
)

// IndexSource describes one natural-keyed kind for a preview. Feature packages
// implement it per kind: the input side comes from the decoded record set, the
// store side from a single batch query.
type IndexSource interface {
	// Kind returns the kind this source indexes.
	Kind() Kind

	// InputKeys returns the natural keys present in the input, in input order.
	// Duplicates are allowed; the preview collapses them.
	InputKeys() []string

	// LoadStoreKeys loads every natural key currently in the store.
	// Implementations should select the key column only.
	LoadStoreKeys(ctx context.Context, db *gorm.DB) (map[string]struct{}, error)
}

// ColumnSource is an IndexSource over a single unique column of a table.
type ColumnSource struct {
	// SourceKind is the kind reported by Kind.
	SourceKind Kind

	// Table is the table holding the natural key.
	Table string

	// Column is the natural key column.
	Column string

	// Keys are the input natural keys.
	Keys []string
}

// Kind returns the kind this source indexes.
func (s ColumnSource) Kind() Kind {
	return s.SourceKind
}

// InputKeys returns the input natural keys.
func (s ColumnSource) InputKeys() []string {
	return s.Keys
}

// LoadStoreKeys selects the natural key column of every row.
func (s ColumnSource) LoadStoreKeys(ctx context.Context, db *gorm.DB) (map[string]struct{}, error) {
	set := make(map[string]struct{})
	if db == nil {
		return set, nil
	}

	var keys []string
	if err := db.WithContext(ctx).Table(s.Table).Pluck(s.Column, &keys).Error; err != nil {
		return nil, StoreFailure("index "+string(s.SourceKind), err)
	}
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set, nil
}
