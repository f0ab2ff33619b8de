package records

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"forum-importer/core/utils"

	"gopkg.in/yaml.v3"
)

// ExternalID is a reference to another record: a natural key (username,
// category name) or a foreign-system id. Numeric ids are accepted in either
// JSON or YAML and normalized to their decimal string form.
type ExternalID string

// String returns the identifier as a plain string.
func (id ExternalID) String() string {
	return string(id)
}

// IsZero reports whether the reference is absent.
func (id ExternalID) IsZero() bool {
	return id == ""
}

// UnmarshalJSON accepts strings, numbers and null.
func (id *ExternalID) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*id = ""
	case string, json.Number:
		*id = ExternalID(utils.ToString(v))
	default:
		return fmt.Errorf("identifier must be a string or number, got %s", string(data))
	}
	return nil
}

// UnmarshalYAML accepts scalar nodes only.
func (id *ExternalID) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: identifier must be a scalar", node.Line)
	}
	if node.Tag == "!!null" {
		*id = ""
		return nil
	}
	*id = ExternalID(node.Value)
	return nil
}

// User is an account to import. Password may be plaintext or an existing
// bcrypt hash.
type User struct {
	ExternalID ExternalID `json:"external_id,omitempty" yaml:"external_id,omitempty"`
	Username   string     `json:"username" yaml:"username"`
	Email      string     `json:"email" yaml:"email"`
	Password   string     `json:"password,omitempty" yaml:"password,omitempty"`
	Role       string     `json:"role,omitempty" yaml:"role,omitempty"`
}

// Key returns the natural key.
func (u User) Key() string { return u.Username }

// Section is a top-level grouping of posts.
type Section struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Key returns the natural key.
func (s Section) Key() string { return s.Name }

// Category classifies posts.
type Category struct {
	ExternalID  ExternalID `json:"external_id,omitempty" yaml:"external_id,omitempty"`
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
}

// Key returns the natural key.
func (c Category) Key() string { return c.Name }

// Tag labels posts.
type Tag struct {
	Name string `json:"name" yaml:"name"`
}

// Key returns the natural key.
func (t Tag) Key() string { return t.Name }

// Post is a thread. Author may also be given as "user".
type Post struct {
	ExternalID ExternalID `json:"external_id,omitempty" yaml:"external_id,omitempty"`
	Title      string     `json:"title" yaml:"title"`
	Content    string     `json:"content" yaml:"content"`
	Author     ExternalID `json:"author,omitempty" yaml:"author,omitempty"`
	User       ExternalID `json:"user,omitempty" yaml:"user,omitempty"`
	Category   ExternalID `json:"category,omitempty" yaml:"category,omitempty"`
	Section    string     `json:"section,omitempty" yaml:"section,omitempty"`
	Tags       []string   `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Key returns the post's external id, falling back to its title.
func (p Post) Key() string {
	if !p.ExternalID.IsZero() {
		return p.ExternalID.String()
	}
	return p.Title
}

// AuthorRef returns the author reference, preferring Author over User.
func (p Post) AuthorRef() ExternalID {
	if !p.Author.IsZero() {
		return p.Author
	}
	return p.User
}

// Comment is a reply on a post, optionally nested under another comment.
type Comment struct {
	ExternalID ExternalID `json:"external_id,omitempty" yaml:"external_id,omitempty"`
	Content    string     `json:"content" yaml:"content"`
	Post       ExternalID `json:"post" yaml:"post"`
	Author     ExternalID `json:"author,omitempty" yaml:"author,omitempty"`
	User       ExternalID `json:"user,omitempty" yaml:"user,omitempty"`
	Parent     ExternalID `json:"parent,omitempty" yaml:"parent,omitempty"`
}

// Key returns the comment's external id, falling back to post and content.
func (c Comment) Key() string {
	if !c.ExternalID.IsZero() {
		return c.ExternalID.String()
	}
	return c.Post.String() + "/" + truncate(c.Content, 32)
}

// AuthorRef returns the author reference, preferring Author over User.
func (c Comment) AuthorRef() ExternalID {
	if !c.Author.IsZero() {
		return c.Author
	}
	return c.User
}

// Vote is one user's vote on a post. VoteType accepts up/down or 1/-1.
type Vote struct {
	Post     ExternalID `json:"post" yaml:"post"`
	User     ExternalID `json:"user" yaml:"user"`
	VoteType ExternalID `json:"vote_type" yaml:"vote_type"`
}

// Key returns the natural key.
func (v Vote) Key() string { return v.Post.String() + "/" + v.User.String() }

// Direction returns the normalized vote direction ("up" or "down"), or ""
// when VoteType is not recognized.
func (v Vote) Direction() string {
	switch strings.ToLower(strings.TrimSpace(v.VoteType.String())) {
	case "up", "1", "+1", "upvote":
		return "up"
	case "down", "-1", "downvote":
		return "down"
	default:
		return ""
	}
}

// RecordSet holds one collection per entity kind.
type RecordSet struct {
	Users      []User     `json:"users,omitempty" yaml:"users,omitempty"`
	Sections   []Section  `json:"sections,omitempty" yaml:"sections,omitempty"`
	Categories []Category `json:"categories,omitempty" yaml:"categories,omitempty"`
	Tags       []Tag      `json:"tags,omitempty" yaml:"tags,omitempty"`
	Posts      []Post     `json:"posts,omitempty" yaml:"posts,omitempty"`
	Comments   []Comment  `json:"comments,omitempty" yaml:"comments,omitempty"`
	Votes      []Vote     `json:"votes,omitempty" yaml:"votes,omitempty"`
}

// Len returns the total number of records.
func (s *RecordSet) Len() int {
	return len(s.Users) + len(s.Sections) + len(s.Categories) + len(s.Tags) +
		len(s.Posts) + len(s.Comments) + len(s.Votes)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
