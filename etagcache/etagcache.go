// Package etagcache is the remote-id → etag bookkeeping of spec §4.14:
// the synchronizer consults it before every fetch to decide whether an
// item needs refetching, and updates it only after a successful server
// round trip (never speculatively — see SPEC_FULL.md's Open Question
// resolution).
package etagcache

import (
	"sync"
	"time"
)

// Snapshot is one (remote-id, etag) pair as the external item store
// reports it, the shape spec §4.14's sync(snapshot) and §6's
// itemStore.snapshot() both traffic in.
type Snapshot struct {
	RemoteID string
	ETag     string
}

// Cache is a remote-id → etag map guarded by a single mutex of
// whole-cache granularity, per spec §5 "Shared resources": contention
// here is negligible next to the network round trips it gates.
type Cache struct {
	mu      sync.Mutex
	entries map[string]string
	changed map[string]bool

	// lastSyncedAt records, per collection URL, when retrieveItems last
	// completed for it. The synchronizer writes it after each completed
	// listing and never reads it back — host-side UI bookkeeping only,
	// carried over from davgroupwareresource.cpp's per-collection
	// timestamp (see SPEC_FULL.md "Supplemented features" #3), not a new
	// invariant.
	lastSyncedAt map[string]time.Time
}

func New() *Cache {
	return &Cache{
		entries:      make(map[string]string),
		changed:      make(map[string]bool),
		lastSyncedAt: make(map[string]time.Time),
	}
}

// Contains reports whether id has a stored etag.
func (c *Cache) Contains(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[id]
	return ok
}

// ETag returns the stored etag for id, or "" if absent.
func (c *Cache) ETag(id string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[id]
}

// SetEtag records etag for id, marking id as changed iff the new value
// differs from what was stored (including the absent → present case).
func (c *Cache) SetEtag(id, etag string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setEtagLocked(id, etag)
}

func (c *Cache) setEtagLocked(id, etag string) {
	old, existed := c.entries[id]
	c.entries[id] = etag
	if !existed || old != etag {
		c.changed[id] = true
	}
}

// EtagChanged is the pure predicate spec §4.14 defines it to be:
// !contains(id) || stored(id) != newEtag. It also updates the cache,
// matching the teacher/source's combined check-and-record idiom.
func (c *Cache) EtagChanged(id, newEtag string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	old, existed := c.entries[id]
	changed := !existed || old != newEtag
	c.setEtagLocked(id, newEtag)
	return changed
}

// ChangedRemoteIds returns every id currently marked as changed. The
// call does not clear the changed set: an id leaves it only through
// RemoveEntry or ValidateCache. SetEtag/EtagChanged/MarkAsChanged add to it.
func (c *Cache) ChangedRemoteIds() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.changed))
	for id := range c.changed {
		out = append(out, id)
	}
	return out
}

// MarkAsChanged flags id as changed without altering its stored etag,
// used when the caller learns a remote-id changed from a source other
// than a direct SetEtag call (e.g. a CTag-triggered relist).
func (c *Cache) MarkAsChanged(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changed[id] = true
}

// RemoveEntry drops id entirely from both the etag map and the
// changed-set, used when an item is deleted locally or found gone from
// the server.
func (c *Cache) RemoveEntry(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	delete(c.changed, id)
}

// Sync reconciles the cache against an external item-store snapshot:
// entries missing from the cache are seeded (without being flagged
// changed, since the store already knows about them), per spec §4.14.
func (c *Cache) Sync(snapshot []Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range snapshot {
		if _, ok := c.entries[s.RemoteID]; !ok {
			c.entries[s.RemoteID] = s.ETag
		}
	}
}

// ValidateCache implements the "validateCache" behavior of
// davaccessor.cpp (spec §9 "Caching layer"): after a completed listing
// of a collection, entries whose remote-id was not observed in
// observedIDs are removed from the cache and returned as the set of
// ids the caller should surface as deletions.
func (c *Cache) ValidateCache(observedIDs []string, belongsTo func(id string) bool) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	observed := make(map[string]bool, len(observedIDs))
	for _, id := range observedIDs {
		observed[id] = true
	}

	var removed []string
	for id := range c.entries {
		if !belongsTo(id) || observed[id] {
			continue
		}
		removed = append(removed, id)
		delete(c.entries, id)
		delete(c.changed, id)
	}
	return removed
}

// SetLastSyncedAt records when retrieveItems last completed for
// collectionURL.
func (c *Cache) SetLastSyncedAt(collectionURL string, t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSyncedAt[collectionURL] = t
}

// LastSyncedAt returns the last recorded sync time for collectionURL,
// and whether one has been recorded at all.
func (c *Cache) LastSyncedAt(collectionURL string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.lastSyncedAt[collectionURL]
	return t, ok
}
