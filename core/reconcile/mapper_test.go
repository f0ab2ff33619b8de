package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapper_FirstWriterWins(t *testing.T) {
	m := NewMapper()

	assert.True(t, m.Put("user", "alice", 1))
	assert.False(t, m.Put("user", "alice", 2), "second writer must be ignored")

	id, ok := m.Get("user", "alice")
	assert.True(t, ok)
	assert.Equal(t, uint(1), id)
}

func TestMapper_KindsAreNamespaced(t *testing.T) {
	m := NewMapper()
	m.Put("user", "42", 7)
	m.Put("post", "42", 9)

	id, _ := m.Get("user", "42")
	assert.Equal(t, uint(7), id)
	id, _ = m.Get("post", "42")
	assert.Equal(t, uint(9), id)

	_, ok := m.Get("tag", "42")
	assert.False(t, ok)
}

func TestMapper_EmptyKeyIgnored(t *testing.T) {
	m := NewMapper()
	assert.False(t, m.Put("user", "", 1))
	_, ok := m.Get("user", "")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len("user"))
}

func TestMapper_SnapshotIsACopy(t *testing.T) {
	m := NewMapper()
	m.Put("tag", "go", 3)

	snap := m.Snapshot()
	snap["tag"]["go"] = 99
	snap["tag"]["rust"] = 4

	id, _ := m.Get("tag", "go")
	assert.Equal(t, uint(3), id)
	assert.Equal(t, 1, m.Len("tag"))
}

func TestSummary_Counters(t *testing.T) {
	s := NewSummary()
	s.Touch("section")
	s.AddCreated("user")
	s.AddCreated("user")
	s.AddSkipped("user", "bob", ReasonDuplicateNaturalKey, "")
	s.AddFailed("post", "T", ReasonUnresolvedReference, "author")

	assert.Equal(t, KindCounts{Created: 2, Skipped: 1}, s.For("user"))
	assert.Equal(t, KindCounts{Failed: 1}, s.For("post"))
	assert.Equal(t, KindCounts{}, s.For("section"))
	assert.Equal(t, []Kind{"section", "user", "post"}, s.Kinds())
	assert.Equal(t, KindCounts{Created: 2, Skipped: 1, Failed: 1}, s.Totals())
	assert.Len(t, s.SkipsFor("post"), 1)
	assert.Equal(t, map[Reason]int{
		ReasonDuplicateNaturalKey: 1,
		ReasonUnresolvedReference: 1,
	}, s.ReasonCounts())
}
