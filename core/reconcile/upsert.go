package reconcile

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Row is a gorm model that exposes its generated primary key after insert.
type Row interface {
	PrimaryKey() uint
}

// LookupFunc finds an existing row by natural key.
// found=false with a nil error means the key is absent.
type LookupFunc func(tx *gorm.DB) (id uint, found bool, err error)

// BuildFunc constructs the row to insert. Returning an error drops the record
// as malformed.
type BuildFunc func() (Row, error)

// CreateOrSkip is the idempotent create-if-absent primitive. It looks up
// naturalKey; when the row exists its id is mapped and created=false is
// returned. Otherwise the row is built, inserted, mapped and created=true is
// returned. Existing rows are never updated.
//
// Natural-key equality is whatever the lookup implements; callers compare
// exactly (no case folding or trimming), so near-duplicates become distinct rows.
func CreateOrSkip(ctx context.Context, tx *gorm.DB, mapper *Mapper, kind Kind, naturalKey string, lookup LookupFunc, build BuildFunc) (uint, bool, error) {
	db := tx.WithContext(ctx)

	id, found, err := lookup(db)
	if err != nil {
		return 0, false, StoreFailure(fmt.Sprintf("lookup %s", kind), err)
	}
	if found {
		mapper.Put(kind, naturalKey, id)
		return id, false, nil
	}

	row, err := build()
	if err != nil {
		return 0, false, Malformed(kind, naturalKey, err)
	}

	if err := db.Create(row).Error; err != nil {
		return 0, false, StoreFailure(fmt.Sprintf("insert %s", kind), err)
	}

	id = row.PrimaryKey()
	mapper.Put(kind, naturalKey, id)
	return id, true, nil
}

// FindID returns the lowest id of model matching the condition.
func FindID(tx *gorm.DB, model any, query string, args ...any) (uint, bool, error) {
	var ids []uint
	err := tx.Model(model).
		Where(query, args...).
		Order("id").
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, false, err
	}
	if len(ids) == 0 {
		return 0, false, nil
	}
	return ids[0], true, nil
}

// Exists reports whether any row of model matches the condition.
// It is meant for tables without a surrogate id, such as join tables.
func Exists(tx *gorm.DB, model any, query string, args ...any) (bool, error) {
	var count int64
	if err := tx.Model(model).Where(query, args...).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
