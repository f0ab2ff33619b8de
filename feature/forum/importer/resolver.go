package importer

import (
	"context"
	"fmt"

	"forum-importer/core/reconcile"
	"forum-importer/core/utils"
	"forum-importer/feature/forum/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Strategy names the resolution step that produced an id.
type Strategy string

const (
	// ViaMapping means the identifier was already mapped earlier in the run.
	ViaMapping Strategy = "mapping"
	// ViaID means the identifier was a numeric primary key of an existing row.
	ViaID Strategy = "id"
	// ViaNaturalKey means a row matched on its natural key column.
	ViaNaturalKey Strategy = "natural_key"
	// ViaAdminFallback substitutes the first admin user for an unknown user.
	ViaAdminFallback Strategy = "admin_fallback"
	// ViaFirstRowFallback substitutes the first row of the kind.
	ViaFirstRowFallback Strategy = "first_row_fallback"
	// ViaDefaultCategory substitutes the configured default category.
	ViaDefaultCategory Strategy = "default_category"
	// ViaCreated means the row did not exist and was inserted, as tags are.
	ViaCreated Strategy = "created"
)

// Resolution is the outcome of resolving one identifier. OK=false means
// unresolved; the caller decides whether to drop the dependent record.
type Resolution struct {
	ID  uint
	Via Strategy
	OK  bool
}

// IsFallback reports whether the id came from a substitute rather than the
// identifier itself.
func (r Resolution) IsFallback() bool {
	switch r.Via {
	case ViaAdminFallback, ViaFirstRowFallback, ViaDefaultCategory:
		return true
	default:
		return false
	}
}

func hit(id uint, via Strategy) Resolution {
	return Resolution{ID: id, Via: via, OK: true}
}

// Resolver turns identifiers into backend ids: mapping hit first, then a
// direct lookup in the store, then the kind's fallback chain. Only direct
// hits are written back to the mapper, so a fallback substitute never leaks
// into a later strict lookup of the same identifier.
type Resolver struct {
	mapper          *reconcile.Mapper
	logger          *zap.Logger
	defaultCategory string
}

// NewResolver creates a resolver bound to one run's mapper.
func NewResolver(mapper *reconcile.Mapper, logger *zap.Logger, defaultCategory string) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{mapper: mapper, logger: logger, defaultCategory: defaultCategory}
}

// Resolve dispatches on kind. The error is non-nil only for store failures.
func (r *Resolver) Resolve(ctx context.Context, tx *gorm.DB, kind reconcile.Kind, identifier string) (Resolution, error) {
	switch kind {
	case KindUser:
		return r.User(ctx, tx, identifier)
	case KindCategory:
		return r.Category(ctx, tx, identifier)
	case KindSection:
		return r.Section(ctx, tx, identifier)
	case KindTag:
		return r.Tag(ctx, tx, identifier)
	case KindPost:
		return r.Post(ctx, tx, identifier)
	default:
		return Resolution{}, fmt.Errorf("no resolver for kind %s", kind)
	}
}

// ExactUser resolves a user by mapping, username or numeric id, without fallback.
func (r *Resolver) ExactUser(ctx context.Context, tx *gorm.DB, identifier string) (Resolution, error) {
	return r.direct(ctx, tx, KindUser, &models.User{}, "username", identifier, true)
}

// User resolves a user: exact match, then the first admin, then the first user.
func (r *Resolver) User(ctx context.Context, tx *gorm.DB, identifier string) (Resolution, error) {
	res, err := r.ExactUser(ctx, tx, identifier)
	if err != nil || res.OK {
		return res, err
	}

	db := tx.WithContext(ctx)
	if id, ok, err := reconcile.FindID(db, &models.User{}, "role = ?", models.RoleAdmin); err != nil {
		return Resolution{}, reconcile.StoreFailure("resolve user fallback", err)
	} else if ok {
		return r.fallback(KindUser, identifier, hit(id, ViaAdminFallback)), nil
	}

	if id, ok, err := reconcile.FindID(db, &models.User{}, "1 = 1"); err != nil {
		return Resolution{}, reconcile.StoreFailure("resolve user fallback", err)
	} else if ok {
		return r.fallback(KindUser, identifier, hit(id, ViaFirstRowFallback)), nil
	}

	return Resolution{}, nil
}

// Category resolves a category: exact match, then the default category by
// name, then the first category.
func (r *Resolver) Category(ctx context.Context, tx *gorm.DB, identifier string) (Resolution, error) {
	res, err := r.direct(ctx, tx, KindCategory, &models.Category{}, "name", identifier, true)
	if err != nil || res.OK {
		return res, err
	}

	db := tx.WithContext(ctx)
	if r.defaultCategory != "" {
		if id, ok, err := reconcile.FindID(db, &models.Category{}, "name = ?", r.defaultCategory); err != nil {
			return Resolution{}, reconcile.StoreFailure("resolve category fallback", err)
		} else if ok {
			return r.fallback(KindCategory, identifier, hit(id, ViaDefaultCategory)), nil
		}
	}

	if id, ok, err := reconcile.FindID(db, &models.Category{}, "1 = 1"); err != nil {
		return Resolution{}, reconcile.StoreFailure("resolve category fallback", err)
	} else if ok {
		return r.fallback(KindCategory, identifier, hit(id, ViaFirstRowFallback)), nil
	}

	return Resolution{}, nil
}

// Section resolves a section by exact name only.
func (r *Resolver) Section(ctx context.Context, tx *gorm.DB, identifier string) (Resolution, error) {
	return r.direct(ctx, tx, KindSection, &models.Section{}, "name", identifier, false)
}

// Tag resolves a tag by exact name and creates it when missing.
func (r *Resolver) Tag(ctx context.Context, tx *gorm.DB, name string) (Resolution, error) {
	res, err := r.direct(ctx, tx, KindTag, &models.Tag{}, "name", name, false)
	if err != nil || res.OK || name == "" {
		return res, err
	}

	id, created, err := reconcile.CreateOrSkip(ctx, tx, r.mapper, KindTag, name,
		func(db *gorm.DB) (uint, bool, error) {
			return reconcile.FindID(db, &models.Tag{}, "name = ?", name)
		},
		func() (reconcile.Row, error) {
			return &models.Tag{Name: name}, nil
		},
	)
	if err != nil {
		return Resolution{}, err
	}
	if created {
		return hit(id, ViaCreated), nil
	}
	return hit(id, ViaNaturalKey), nil
}

// Post resolves a post by mapping (external id or title), numeric id or exact title.
func (r *Resolver) Post(ctx context.Context, tx *gorm.DB, identifier string) (Resolution, error) {
	return r.direct(ctx, tx, KindPost, &models.Post{}, "title", identifier, true)
}

// direct tries the mapper, then the natural key column, then (when allowed)
// the identifier as a numeric primary key.
func (r *Resolver) direct(ctx context.Context, tx *gorm.DB, kind reconcile.Kind, model any, column, identifier string, byID bool) (Resolution, error) {
	if identifier == "" {
		return Resolution{}, nil
	}
	if id, ok := r.mapper.Get(kind, identifier); ok {
		return hit(id, ViaMapping), nil
	}

	db := tx.WithContext(ctx)
	id, ok, err := reconcile.FindID(db, model, column+" = ?", identifier)
	if err != nil {
		return Resolution{}, reconcile.StoreFailure(fmt.Sprintf("resolve %s", kind), err)
	}
	if ok {
		r.mapper.Put(kind, identifier, id)
		return hit(id, ViaNaturalKey), nil
	}

	if !byID {
		return Resolution{}, nil
	}
	n, isNum := utils.ToUint(identifier)
	if !isNum {
		return Resolution{}, nil
	}
	id, ok, err = reconcile.FindID(db, model, "id = ?", n)
	if err != nil {
		return Resolution{}, reconcile.StoreFailure(fmt.Sprintf("resolve %s", kind), err)
	}
	if ok {
		r.mapper.Put(kind, identifier, id)
		return hit(id, ViaID), nil
	}
	return Resolution{}, nil
}

func (r *Resolver) fallback(kind reconcile.Kind, identifier string, res Resolution) Resolution {
	r.logger.Warn("Reference resolved by fallback",
		zap.String("kind", string(kind)),
		zap.String("identifier", identifier),
		zap.String("via", string(res.Via)),
		zap.Uint("id", res.ID),
	)
	return res
}
