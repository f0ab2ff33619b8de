package models

import "time"

// Roles a user may hold.
const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
	RoleUser      = "user"
)

// Vote directions.
const (
	VoteUp   = "up"
	VoteDown = "down"
)

// User is a forum account. Username and email are both unique.
type User struct {
	ID           uint      `gorm:"column:id;primaryKey"`
	Username     string    `gorm:"column:username;type:varchar(64);uniqueIndex;not null"`
	Email        string    `gorm:"column:email;type:varchar(255);uniqueIndex;not null"`
	PasswordHash string    `gorm:"column:password_hash;type:varchar(255);not null"`
	Role         string    `gorm:"column:role;type:varchar(16);not null;default:user"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (User) TableName() string   { return "users" }
func (u *User) PrimaryKey() uint { return u.ID }

// Section groups posts above the category level.
type Section struct {
	ID          uint   `gorm:"column:id;primaryKey"`
	Name        string `gorm:"column:name;type:varchar(128);uniqueIndex;not null"`
	Description string `gorm:"column:description;type:text"`
}

func (Section) TableName() string   { return "sections" }
func (s *Section) PrimaryKey() uint { return s.ID }

// Category classifies posts. Every post belongs to exactly one.
type Category struct {
	ID          uint   `gorm:"column:id;primaryKey"`
	Name        string `gorm:"column:name;type:varchar(128);uniqueIndex;not null"`
	Description string `gorm:"column:description;type:text"`
}

func (Category) TableName() string   { return "categories" }
func (c *Category) PrimaryKey() uint { return c.ID }

// Tag labels posts. PostCount is denormalized from post_tags.
type Tag struct {
	ID        uint   `gorm:"column:id;primaryKey"`
	Name      string `gorm:"column:name;type:varchar(64);uniqueIndex;not null"`
	PostCount int    `gorm:"column:post_count;not null;default:0"`
}

func (Tag) TableName() string   { return "tags" }
func (t *Tag) PrimaryKey() uint { return t.ID }

// Post is a forum thread. VoteCount and CommentCount are denormalized.
type Post struct {
	ID           uint      `gorm:"column:id;primaryKey"`
	Title        string    `gorm:"column:title;type:varchar(255);index:idx_posts_title_author;not null"`
	Content      string    `gorm:"column:content;type:text;not null"`
	AuthorID     uint      `gorm:"column:author_id;index:idx_posts_title_author;not null"`
	CategoryID   uint      `gorm:"column:category_id;index;not null"`
	SectionID    *uint     `gorm:"column:section_id;index"`
	VoteCount    int       `gorm:"column:vote_count;not null;default:0"`
	CommentCount int       `gorm:"column:comment_count;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (Post) TableName() string   { return "posts" }
func (p *Post) PrimaryKey() uint { return p.ID }

// Comment belongs to a post and optionally replies to another comment.
type Comment struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	Content   string    `gorm:"column:content;type:text;not null"`
	AuthorID  uint      `gorm:"column:author_id;index;not null"`
	PostID    uint      `gorm:"column:post_id;index;not null"`
	ParentID  *uint     `gorm:"column:parent_id;index"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (Comment) TableName() string   { return "comments" }
func (c *Comment) PrimaryKey() uint { return c.ID }

// PostTag joins posts and tags.
type PostTag struct {
	PostID uint `gorm:"column:post_id;primaryKey;autoIncrement:false"`
	TagID  uint `gorm:"column:tag_id;primaryKey;autoIncrement:false;index"`
}

func (PostTag) TableName() string { return "post_tags" }

// PrimaryKey returns the tag side of the pair; the join row has no surrogate id.
func (pt *PostTag) PrimaryKey() uint { return pt.TagID }

// Vote is one user's up or down vote on a post.
type Vote struct {
	ID       uint   `gorm:"column:id;primaryKey"`
	PostID   uint   `gorm:"column:post_id;uniqueIndex:idx_votes_post_user;not null"`
	UserID   uint   `gorm:"column:user_id;uniqueIndex:idx_votes_post_user;not null"`
	VoteType string `gorm:"column:vote_type;type:varchar(8);not null"`
}

func (Vote) TableName() string   { return "votes" }
func (v *Vote) PrimaryKey() uint { return v.ID }

// Favorite marks a post as bookmarked by a user. It is never imported and
// only matters to the destructive purge.
type Favorite struct {
	ID     uint `gorm:"column:id;primaryKey"`
	PostID uint `gorm:"column:post_id;uniqueIndex:idx_favorites_post_user;not null"`
	UserID uint `gorm:"column:user_id;uniqueIndex:idx_favorites_post_user;not null"`
}

func (Favorite) TableName() string { return "favorites" }

// All returns every forum model in migration order.
func All() []any {
	return []any{
		&User{}, &Section{}, &Category{}, &Tag{},
		&Post{}, &Comment{}, &PostTag{}, &Vote{}, &Favorite{},
	}
}

// Tables returns the table names of All, in the same order.
func Tables() []string {
	return []string{
		"users", "sections", "categories", "tags",
		"posts", "comments", "post_tags", "votes", "favorites",
	}
}
