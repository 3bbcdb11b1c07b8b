// Package dupes groups identical files discovered during a scan.
//
// Grouping runs in two phases. While the scan streams, an Index buckets
// files by size and partial hash; only buckets that end up with two or
// more members justify reading entire files. After the walk drains, full
// digests land in a Grouper which resolves the final duplicate groups and
// elects a keeper per group.
package dupes

import (
	"sort"
	"sync"
	"time"

	"github.com/reclaimtool/reclaim/pkg/reclaim/types"
)

// Member is one file inside a candidate group.
type Member struct {
	Path    string
	Size    int64
	ModTime time.Time
	Order   uint64
}

type partialKey struct {
	size    int64
	partial uint64
}

// Index buckets files by size and partial hash during the streaming phase.
// Safe for concurrent use by pipeline workers.
type Index struct {
	mu      sync.Mutex
	buckets map[partialKey][]Member
}

// NewIndex returns an empty Index.
func NewIndex() *Index {
	return &Index{buckets: make(map[partialKey][]Member)}
}

// Add records a file under its size and partial hash.
func (ix *Index) Add(partial uint64, m Member) {
	key := partialKey{size: m.Size, partial: partial}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.buckets[key] = append(ix.buckets[key], m)
}

// Candidates returns the buckets holding at least two members, meaning
// every file in them needs a full digest before grouping can conclude.
// Buckets come back largest size first and members in discovery order,
// so repeated runs schedule the same work in the same sequence.
func (ix *Index) Candidates() [][]Member {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	keys := make([]partialKey, 0, len(ix.buckets))
	for key, members := range ix.buckets {
		if len(members) >= 2 {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].size != keys[j].size {
			return keys[i].size > keys[j].size
		}
		return keys[i].partial < keys[j].partial
	})

	candidates := make([][]Member, 0, len(keys))
	for _, key := range keys {
		members := append([]Member(nil), ix.buckets[key]...)
		sort.Slice(members, func(i, j int) bool {
			return members[i].Order < members[j].Order
		})
		candidates = append(candidates, members)
	}
	return candidates
}

type groupKey struct {
	size int64
	hash string
}

// Grouper accumulates fully hashed files and resolves duplicate groups at
// session end. Safe for concurrent use.
type Grouper struct {
	mu     sync.Mutex
	groups map[groupKey][]Member
}

// NewGrouper returns an empty Grouper.
func NewGrouper() *Grouper {
	return &Grouper{groups: make(map[groupKey][]Member)}
}

// Add records a file under its size and full digest.
func (g *Grouper) Add(hash string, m Member) {
	key := groupKey{size: m.Size, hash: hash}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.groups[key] = append(g.groups[key], m)
}

// Finalize resolves groups with at least two members, elects each group's
// keeper, and returns the groups ordered by size descending then digest.
// Files whose digest never collided are silently dropped.
func (g *Grouper) Finalize() []types.DuplicateGroup {
	g.mu.Lock()
	defer g.mu.Unlock()

	keys := make([]groupKey, 0, len(g.groups))
	for key, members := range g.groups {
		if len(members) >= 2 {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].size != keys[j].size {
			return keys[i].size > keys[j].size
		}
		return keys[i].hash < keys[j].hash
	})

	result := make([]types.DuplicateGroup, 0, len(keys))
	for _, key := range keys {
		members := append([]Member(nil), g.groups[key]...)
		sortMembers(members)

		paths := make([]string, len(members))
		for i, m := range members {
			paths[i] = m.Path
		}

		result = append(result, types.DuplicateGroup{
			Hash:    key.hash,
			Size:    key.size,
			Members: paths,
			Keeper:  members[0].Path,
		})
	}
	return result
}
