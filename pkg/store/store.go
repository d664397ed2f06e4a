package store

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gridlink/tagbridge/pkg/tag"
)

// shardCount is the number of key shards. Must be a power of two.
const shardCount = 32

// Reader is the read side of the store used by the sync scheduler.
type Reader interface {
	// Get returns the latest sample for the tag and true, or false if the
	// tag was never updated.
	Get(tagID string) (tag.Sample, bool)
}

// Store is a concurrent last-value store keyed by tag ID.
type Store struct {
	shards [shardCount]shard

	// updates counts every accepted update.
	updates atomic.Uint64
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	sample atomic.Pointer[tag.Sample]
}

// New creates an empty store.
func New() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i].entries = make(map[string]*entry)
	}
	return s
}

// Update inserts or overwrites the sample for tagID. Last write wins.
func (s *Store) Update(tagID string, v tag.Value, ts time.Time, q tag.Quality) {
	sample := &tag.Sample{Value: v, Timestamp: ts, Quality: q}
	sh := s.shardFor(tagID)

	sh.mu.RLock()
	e, ok := sh.entries[tagID]
	sh.mu.RUnlock()

	if ok {
		e.sample.Store(sample)
	} else {
		sh.insert(tagID, sample)
	}
	s.updates.Add(1)
}

// Apply stores a southbound update.
func (s *Store) Apply(u tag.Update) {
	s.Update(u.TagID, u.Value, u.Timestamp, u.Quality)
}

// Get returns the latest sample for tagID.
// The second return value is false if the tag was never updated.
func (s *Store) Get(tagID string) (tag.Sample, bool) {
	sh := s.shardFor(tagID)
	sh.mu.RLock()
	e, ok := sh.entries[tagID]
	sh.mu.RUnlock()
	if !ok {
		return tag.Sample{}, false
	}
	return *e.sample.Load(), true
}

// ListTags returns the IDs of all tags that have been updated, sorted.
func (s *Store) ListTags() []string {
	var ids []string
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		for id := range sh.entries {
			ids = append(ids, id)
		}
		sh.mu.RUnlock()
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of known tags.
func (s *Store) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		n += len(sh.entries)
		sh.mu.RUnlock()
	}
	return n
}

// UpdateCount returns the total number of updates applied since creation.
func (s *Store) UpdateCount() uint64 {
	return s.updates.Load()
}

// insert creates the entry for tagID with its first sample. If another
// writer created the entry in the meantime, the sample overwrites it.
// A new entry is only published with its sample already set.
func (sh *shard) insert(tagID string, sample *tag.Sample) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if e, ok := sh.entries[tagID]; ok {
		e.sample.Store(sample)
		return
	}
	e := &entry{}
	e.sample.Store(sample)
	sh.entries[tagID] = e
}

func (s *Store) shardFor(tagID string) *shard {
	return &s.shards[fnv32a(tagID)&(shardCount-1)]
}

// fnv32a is the 32-bit FNV-1a hash, inlined to avoid an allocation per lookup.
func fnv32a(s string) uint32 {
	const (
		offset = 2166136261
		prime  = 16777619
	)
	h := uint32(offset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}

// Compile-time interface satisfaction check.
var _ Reader = (*Store)(nil)
