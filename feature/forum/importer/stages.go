package importer

import (
	"context"
	"fmt"

	"forum-importer/core/reconcile"
	"forum-importer/core/utils"
	"forum-importer/feature/forum/models"
	"forum-importer/feature/forum/records"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// record folds the outcome of one upsert into the run summary. Only store
// failures are returned.
func record(run *reconcile.Run, kind reconcile.Kind, key string, created bool, err error) error {
	if err != nil {
		return run.Handle(kind, key, err)
	}
	if created {
		run.Created(kind)
	} else {
		run.Skipped(kind, key)
	}
	return nil
}

// usersStage imports users keyed by username.
type usersStage struct {
	users []records.User
	cost  int
}

func (s *usersStage) Name() string { return "users" }

func (s *usersStage) Execute(ctx context.Context, tx *gorm.DB, run *reconcile.Run) error {
	for _, u := range s.users {
		key := u.Key()
		if err := u.Validate(); err != nil {
			if err := run.Handle(KindUser, key, reconcile.Malformed(KindUser, key, err)); err != nil {
				return err
			}
			continue
		}

		// The email is a second natural key; a clash under another username is a duplicate.
		var owner []string
		if err := tx.WithContext(ctx).Model(&models.User{}).
			Where("email = ? AND username <> ?", u.Email, u.Username).
			Limit(1).Pluck("username", &owner).Error; err != nil {
			return reconcile.StoreFailure("lookup user email", err)
		}
		if len(owner) > 0 {
			run.Summary.AddSkipped(KindUser, key, reconcile.ReasonDuplicateNaturalKey,
				fmt.Sprintf("email %q already registered to %q", u.Email, owner[0]))
			continue
		}

		user := u
		id, created, err := reconcile.CreateOrSkip(ctx, tx, run.Mapper, KindUser, key,
			func(db *gorm.DB) (uint, bool, error) {
				return reconcile.FindID(db, &models.User{}, "username = ?", user.Username)
			},
			func() (reconcile.Row, error) {
				hash, err := hashPassword(user.Password, s.cost)
				if err != nil {
					return nil, err
				}
				role := user.Role
				if role == "" {
					role = models.RoleUser
				}
				return &models.User{Username: user.Username, Email: user.Email, PasswordHash: hash, Role: role}, nil
			},
		)
		if err := record(run, KindUser, key, created, err); err != nil {
			return err
		}
		if err == nil {
			run.Mapper.Put(KindUser, u.ExternalID.String(), id)
		}
	}
	return nil
}

// sectionsStage imports sections keyed by name.
type sectionsStage struct {
	sections []records.Section
}

func (s *sectionsStage) Name() string { return "sections" }

func (s *sectionsStage) Execute(ctx context.Context, tx *gorm.DB, run *reconcile.Run) error {
	for _, sec := range s.sections {
		key := sec.Key()
		if err := sec.Validate(); err != nil {
			if err := run.Handle(KindSection, key, reconcile.Malformed(KindSection, key, err)); err != nil {
				return err
			}
			continue
		}

		section := sec
		_, created, err := reconcile.CreateOrSkip(ctx, tx, run.Mapper, KindSection, key,
			func(db *gorm.DB) (uint, bool, error) {
				return reconcile.FindID(db, &models.Section{}, "name = ?", section.Name)
			},
			func() (reconcile.Row, error) {
				return &models.Section{Name: section.Name, Description: section.Description}, nil
			},
		)
		if err := record(run, KindSection, key, created, err); err != nil {
			return err
		}
	}
	return nil
}

// categoriesStage imports categories keyed by name.
type categoriesStage struct {
	categories []records.Category
}

func (s *categoriesStage) Name() string { return "categories" }

func (s *categoriesStage) Execute(ctx context.Context, tx *gorm.DB, run *reconcile.Run) error {
	for _, c := range s.categories {
		key := c.Key()
		if err := c.Validate(); err != nil {
			if err := run.Handle(KindCategory, key, reconcile.Malformed(KindCategory, key, err)); err != nil {
				return err
			}
			continue
		}

		cat := c
		id, created, err := reconcile.CreateOrSkip(ctx, tx, run.Mapper, KindCategory, key,
			func(db *gorm.DB) (uint, bool, error) {
				return reconcile.FindID(db, &models.Category{}, "name = ?", cat.Name)
			},
			func() (reconcile.Row, error) {
				return &models.Category{Name: cat.Name, Description: cat.Description}, nil
			},
		)
		if err := record(run, KindCategory, key, created, err); err != nil {
			return err
		}
		if err == nil {
			run.Mapper.Put(KindCategory, c.ExternalID.String(), id)
		}
	}
	return nil
}

// tagsStage imports the explicitly listed tags. Tags referenced only by posts
// are created later by the resolver.
type tagsStage struct {
	tags []records.Tag
}

func (s *tagsStage) Name() string { return "tags" }

func (s *tagsStage) Execute(ctx context.Context, tx *gorm.DB, run *reconcile.Run) error {
	for _, t := range s.tags {
		key := t.Key()
		if err := t.Validate(); err != nil {
			if err := run.Handle(KindTag, key, reconcile.Malformed(KindTag, key, err)); err != nil {
				return err
			}
			continue
		}

		name := t.Name
		_, created, err := reconcile.CreateOrSkip(ctx, tx, run.Mapper, KindTag, key,
			func(db *gorm.DB) (uint, bool, error) {
				return reconcile.FindID(db, &models.Tag{}, "name = ?", name)
			},
			func() (reconcile.Row, error) {
				return &models.Tag{Name: name}, nil
			},
		)
		if err := record(run, KindTag, key, created, err); err != nil {
			return err
		}
	}
	return nil
}

// postIDs records the stored id of each input post by its position in the
// record set. Post keys are not unique, so tag links must not go through the
// mapper.
type postIDs map[int]uint

// postsStage imports posts keyed by (title, author). Author and category go
// through their fallback chains; a named section must exist.
type postsStage struct {
	posts    []records.Post
	resolver *Resolver
	ids      postIDs
}

func (s *postsStage) Name() string { return "posts" }

func (s *postsStage) Execute(ctx context.Context, tx *gorm.DB, run *reconcile.Run) error {
	for i, p := range s.posts {
		if err := s.importPost(ctx, tx, run, i, p); err != nil {
			return err
		}
	}
	return nil
}

func (s *postsStage) importPost(ctx context.Context, tx *gorm.DB, run *reconcile.Run, pos int, p records.Post) error {
	key := p.Key()
	if err := p.Validate(); err != nil {
		return run.Handle(KindPost, key, reconcile.Malformed(KindPost, key, err))
	}

	author, err := s.resolver.User(ctx, tx, p.AuthorRef().String())
	if err != nil {
		return err
	}
	if !author.OK {
		return run.Handle(KindPost, key, reconcile.Unresolved(KindPost, key,
			"author %q not found and no fallback user exists", p.AuthorRef()))
	}

	category, err := s.resolver.Category(ctx, tx, p.Category.String())
	if err != nil {
		return err
	}
	if !category.OK {
		return run.Handle(KindPost, key, reconcile.Unresolved(KindPost, key,
			"category %q not found and no fallback category exists", p.Category))
	}

	var sectionID *uint
	if p.Section != "" {
		section, err := s.resolver.Section(ctx, tx, p.Section)
		if err != nil {
			return err
		}
		if !section.OK {
			return run.Handle(KindPost, key, reconcile.Unresolved(KindPost, key, "section %q not found", p.Section))
		}
		sectionID = &section.ID
	}

	id, created, err := reconcile.CreateOrSkip(ctx, tx, run.Mapper, KindPost, key,
		func(db *gorm.DB) (uint, bool, error) {
			return reconcile.FindID(db, &models.Post{}, "title = ? AND author_id = ?", p.Title, author.ID)
		},
		func() (reconcile.Row, error) {
			return &models.Post{
				Title:      p.Title,
				Content:    p.Content,
				AuthorID:   author.ID,
				CategoryID: category.ID,
				SectionID:  sectionID,
			}, nil
		},
	)
	if err := record(run, KindPost, key, created, err); err != nil {
		return err
	}
	if err == nil {
		s.ids[pos] = id
		run.Mapper.Put(KindPost, p.Title, id)
	}
	return nil
}

// postTagsStage links imported posts to their tags, creating missing tags.
// Tags of posts that never reached the store are not counted; the post
// itself already carries the failure.
type postTagsStage struct {
	posts    []records.Post
	resolver *Resolver
	ids      postIDs
}

func (s *postTagsStage) Name() string { return "post_tags" }

func (s *postTagsStage) Execute(ctx context.Context, tx *gorm.DB, run *reconcile.Run) error {
	for i, p := range s.posts {
		postID, ok := s.ids[i]
		if !ok || len(p.Tags) == 0 {
			continue
		}
		postKey := p.Key()

		for _, name := range p.Tags {
			key := postKey + "/" + name
			if name == "" {
				if err := run.Handle(KindPostTag, key, reconcile.Malformed(KindPostTag, key, fmt.Errorf("empty tag name"))); err != nil {
					return err
				}
				continue
			}

			tag, err := s.resolver.Tag(ctx, tx, name)
			if err != nil {
				return err
			}
			if tag.Via == ViaCreated {
				run.Created(KindTag)
			}

			_, created, err := reconcile.CreateOrSkip(ctx, tx, run.Mapper, KindPostTag, key,
				func(db *gorm.DB) (uint, bool, error) {
					found, err := reconcile.Exists(db, &models.PostTag{}, "post_id = ? AND tag_id = ?", postID, tag.ID)
					return tag.ID, found, err
				},
				func() (reconcile.Row, error) {
					return &models.PostTag{PostID: postID, TagID: tag.ID}, nil
				},
			)
			if err := record(run, KindPostTag, key, created, err); err != nil {
				return err
			}
		}
	}
	return nil
}

// commentsStage imports comments keyed by (post, author, content). Replies are
// deferred until their parent has been attempted so parent links resolve
// within a single run.
type commentsStage struct {
	comments []records.Comment
	resolver *Resolver
}

func (s *commentsStage) Name() string { return "comments" }

func (s *commentsStage) Execute(ctx context.Context, tx *gorm.DB, run *reconcile.Run) error {
	pending := make([]records.Comment, 0, len(s.comments))
	waiting := make(map[string]int)
	for _, c := range s.comments {
		key := c.Key()
		if err := c.Validate(); err != nil {
			if err := run.Handle(KindComment, key, reconcile.Malformed(KindComment, key, err)); err != nil {
				return err
			}
			continue
		}
		pending = append(pending, c)
		if !c.ExternalID.IsZero() {
			waiting[c.ExternalID.String()]++
		}
	}

	for len(pending) > 0 {
		var deferred []records.Comment
		for _, c := range pending {
			if !c.Parent.IsZero() && waiting[c.Parent.String()] > 0 {
				deferred = append(deferred, c)
				continue
			}
			if err := s.importComment(ctx, tx, run, c); err != nil {
				return err
			}
			if !c.ExternalID.IsZero() {
				waiting[c.ExternalID.String()]--
			}
		}

		if len(deferred) == len(pending) {
			// Parent cycle: import the rest with whatever parent links resolve.
			for _, c := range deferred {
				if err := s.importComment(ctx, tx, run, c); err != nil {
					return err
				}
			}
			return nil
		}
		pending = deferred
	}
	return nil
}

func (s *commentsStage) importComment(ctx context.Context, tx *gorm.DB, run *reconcile.Run, c records.Comment) error {
	key := c.Key()

	post, err := s.resolver.Post(ctx, tx, c.Post.String())
	if err != nil {
		return err
	}
	if !post.OK {
		return run.Handle(KindComment, key, reconcile.Unresolved(KindComment, key, "post %q not found", c.Post))
	}

	author, err := s.resolver.User(ctx, tx, c.AuthorRef().String())
	if err != nil {
		return err
	}
	if !author.OK {
		return run.Handle(KindComment, key, reconcile.Unresolved(KindComment, key,
			"author %q not found and no fallback user exists", c.AuthorRef()))
	}

	parentID, err := s.parent(ctx, tx, run, c)
	if err != nil {
		return err
	}

	id, created, err := reconcile.CreateOrSkip(ctx, tx, run.Mapper, KindComment, key,
		func(db *gorm.DB) (uint, bool, error) {
			return reconcile.FindID(db, &models.Comment{}, "post_id = ? AND author_id = ? AND content = ?", post.ID, author.ID, c.Content)
		},
		func() (reconcile.Row, error) {
			return &models.Comment{Content: c.Content, AuthorID: author.ID, PostID: post.ID, ParentID: parentID}, nil
		},
	)
	if err := record(run, KindComment, key, created, err); err != nil {
		return err
	}
	if err == nil {
		run.Mapper.Put(KindComment, c.ExternalID.String(), id)
	}
	return nil
}

// parent resolves the optional parent comment. An unresolvable parent turns
// the comment into a top-level one instead of dropping it.
func (s *commentsStage) parent(ctx context.Context, tx *gorm.DB, run *reconcile.Run, c records.Comment) (*uint, error) {
	if c.Parent.IsZero() {
		return nil, nil
	}
	ref := c.Parent.String()
	if id, ok := run.Mapper.Get(KindComment, ref); ok {
		return &id, nil
	}
	if n, ok := utils.ToUint(ref); ok {
		id, found, err := reconcile.FindID(tx.WithContext(ctx), &models.Comment{}, "id = ?", n)
		if err != nil {
			return nil, reconcile.StoreFailure("resolve comment parent", err)
		}
		if found {
			return &id, nil
		}
	}
	run.Logger.Warn("Parent comment not found, importing as top-level",
		zap.String("comment", c.Key()),
		zap.String("parent", ref),
	)
	return nil, nil
}

// votesStage imports votes keyed by (post, user). Voters are resolved strictly:
// substituting another account would forge a vote. A newly created vote
// adjusts the post's vote_count by one.
type votesStage struct {
	votes    []records.Vote
	resolver *Resolver
}

func (s *votesStage) Name() string { return "votes" }

func (s *votesStage) Execute(ctx context.Context, tx *gorm.DB, run *reconcile.Run) error {
	for _, v := range s.votes {
		if err := s.importVote(ctx, tx, run, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *votesStage) importVote(ctx context.Context, tx *gorm.DB, run *reconcile.Run, v records.Vote) error {
	key := v.Key()
	if err := v.Validate(); err != nil {
		return run.Handle(KindVote, key, reconcile.Malformed(KindVote, key, err))
	}

	post, err := s.resolver.Post(ctx, tx, v.Post.String())
	if err != nil {
		return err
	}
	if !post.OK {
		return run.Handle(KindVote, key, reconcile.Unresolved(KindVote, key, "post %q not found", v.Post))
	}

	user, err := s.resolver.ExactUser(ctx, tx, v.User.String())
	if err != nil {
		return err
	}
	if !user.OK {
		return run.Handle(KindVote, key, reconcile.Unresolved(KindVote, key, "user %q not found", v.User))
	}

	direction := v.Direction()
	_, created, err := reconcile.CreateOrSkip(ctx, tx, run.Mapper, KindVote, key,
		func(db *gorm.DB) (uint, bool, error) {
			return reconcile.FindID(db, &models.Vote{}, "post_id = ? AND user_id = ?", post.ID, user.ID)
		},
		func() (reconcile.Row, error) {
			return &models.Vote{PostID: post.ID, UserID: user.ID, VoteType: direction}, nil
		},
	)
	if err := record(run, KindVote, key, created, err); err != nil {
		return err
	}
	if !created {
		return nil
	}

	delta := 1
	if direction == models.VoteDown {
		delta = -1
	}
	if err := tx.WithContext(ctx).Model(&models.Post{}).Where("id = ?", post.ID).
		UpdateColumn("vote_count", gorm.Expr("vote_count + ?", delta)).Error; err != nil {
		return reconcile.StoreFailure("update post vote_count", err)
	}
	return nil
}
