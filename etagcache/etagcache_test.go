package etagcache

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetEtagMarksChangedOnlyWhenDifferent(t *testing.T) {
	c := New()
	c.SetEtag("u1", "a")
	assert.ElementsMatch(t, []string{"u1"}, c.ChangedRemoteIds())

	c.SetEtag("u1", "a")
	assert.ElementsMatch(t, []string{"u1"}, c.ChangedRemoteIds(), "re-setting the same etag keeps it in the changed set from the first call")

	c2 := New()
	c2.SetEtag("u2", "a")
	c2.RemoveEntry("u2")
	c2.SetEtag("u2", "a")
	assert.ElementsMatch(t, []string{"u2"}, c2.ChangedRemoteIds())
}

func TestEtagChangedPredicate(t *testing.T) {
	c := New()
	assert.True(t, c.EtagChanged("u1", "a"), "absent entry counts as changed")
	assert.False(t, c.EtagChanged("u1", "a"), "same etag is not a change")
	assert.True(t, c.EtagChanged("u1", "b"), "different etag is a change")
	assert.Equal(t, "b", c.ETag("u1"))
}

func TestValidateCacheRemovesUnobservedEntries(t *testing.T) {
	c := New()
	c.SetEtag("collection-a/1", "a")
	c.SetEtag("collection-a/2", "b")
	c.SetEtag("collection-b/1", "c")

	belongsToA := func(id string) bool { return strings.HasPrefix(id, "collection-a/") }
	removed := c.ValidateCache([]string{"collection-a/1"}, belongsToA)

	assert.ElementsMatch(t, []string{"collection-a/2"}, removed)
	assert.True(t, c.Contains("collection-a/1"))
	assert.False(t, c.Contains("collection-a/2"))
	assert.True(t, c.Contains("collection-b/1"), "entries outside the validated collection are untouched")
}

func TestSyncSeedsMissingEntriesOnly(t *testing.T) {
	c := New()
	c.SetEtag("u1", "local")

	c.Sync([]Snapshot{
		{RemoteID: "u1", ETag: "from-store"},
		{RemoteID: "u2", ETag: "seeded"},
	})

	assert.Equal(t, "local", c.ETag("u1"), "existing entries are not overwritten by sync")
	assert.Equal(t, "seeded", c.ETag("u2"))
}

func TestLastSyncedAt(t *testing.T) {
	c := New()
	_, ok := c.LastSyncedAt("https://dav.example/cal/")
	assert.False(t, ok)

	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	c.SetLastSyncedAt("https://dav.example/cal/", now)
	got, ok := c.LastSyncedAt("https://dav.example/cal/")
	assert.True(t, ok)
	assert.Equal(t, now, got)
}
