package records

import (
	"fmt"
	"net/mail"
	"strings"
)

// MalformedError lists the problems found in one record.
type MalformedError struct {
	Kind     string
	Problems []string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed %s: %s", e.Kind, strings.Join(e.Problems, "; "))
}

type checker struct {
	kind     string
	problems []string
}

func (c *checker) require(field, value string) {
	if strings.TrimSpace(value) == "" {
		c.problems = append(c.problems, field+" is required")
	}
}

func (c *checker) maxLen(field, value string, n int) {
	if len([]rune(value)) > n {
		c.problems = append(c.problems, fmt.Sprintf("%s exceeds %d characters", field, n))
	}
}

func (c *checker) fail(format string, args ...any) {
	c.problems = append(c.problems, fmt.Sprintf(format, args...))
}

func (c *checker) err() error {
	if len(c.problems) == 0 {
		return nil
	}
	return &MalformedError{Kind: c.kind, Problems: c.problems}
}

// Validate checks the required fields of a user.
func (u User) Validate() error {
	c := &checker{kind: "user"}
	c.require("username", u.Username)
	c.maxLen("username", u.Username, 64)
	c.require("email", u.Email)
	if u.Email != "" {
		if _, err := mail.ParseAddress(u.Email); err != nil {
			c.fail("email %q is not a valid address", u.Email)
		}
	}
	switch u.Role {
	case "", "admin", "moderator", "user":
	default:
		c.fail("unknown role %q", u.Role)
	}
	return c.err()
}

// Validate checks the required fields of a section.
func (s Section) Validate() error {
	c := &checker{kind: "section"}
	c.require("name", s.Name)
	c.maxLen("name", s.Name, 128)
	return c.err()
}

// Validate checks the required fields of a category.
func (cat Category) Validate() error {
	c := &checker{kind: "category"}
	c.require("name", cat.Name)
	c.maxLen("name", cat.Name, 128)
	return c.err()
}

// Validate checks the required fields of a tag.
func (t Tag) Validate() error {
	c := &checker{kind: "tag"}
	c.require("name", t.Name)
	c.maxLen("name", t.Name, 64)
	return c.err()
}

// Validate checks the required fields of a post. Author and category are
// optional here since the resolver applies fallbacks for them.
func (p Post) Validate() error {
	c := &checker{kind: "post"}
	c.require("title", p.Title)
	c.maxLen("title", p.Title, 255)
	c.require("content", p.Content)
	for i, tag := range p.Tags {
		if strings.TrimSpace(tag) == "" {
			c.fail("tags[%d] is empty", i)
		}
	}
	return c.err()
}

// Validate checks the required fields of a comment.
func (cm Comment) Validate() error {
	c := &checker{kind: "comment"}
	c.require("content", cm.Content)
	c.require("post", cm.Post.String())
	if !cm.Parent.IsZero() && cm.Parent == cm.ExternalID {
		c.fail("comment %q cannot reply to itself", cm.ExternalID)
	}
	return c.err()
}

// Validate checks the required fields of a vote.
func (v Vote) Validate() error {
	c := &checker{kind: "vote"}
	c.require("post", v.Post.String())
	c.require("user", v.User.String())
	if v.Direction() == "" {
		c.fail("vote_type %q must be up or down", v.VoteType)
	}
	return c.err()
}
