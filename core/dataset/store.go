// Package dataset keeps the in-memory Dataset of every table tag. Snapshots
// are replaced wholesale and never mutated, so readers can hold on to one
// while a sync or an edit installs the next version.
package dataset

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"backoffice/core/emitter"
	"backoffice/core/logger"
	"backoffice/core/tablefilter"
	"backoffice/core/value"

	"github.com/maypok86/otter"
)

// EventReplaced is emitted with a ChangeEvent after every Replace or Drop
const EventReplaced = "dataset.replaced"

const (
	DefaultCacheSize = 10000
	DefaultCacheTTL  = 10 * time.Minute
)

// Snapshot is one immutable version of a tag's Dataset
type Snapshot struct {
	Tag      string
	Version  uint64
	Records  []value.Value
	LoadedAt time.Time
}

// Len returns the number of records in the snapshot
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Records)
}

// ChangeEvent describes a newly installed snapshot
type ChangeEvent struct {
	Event   string `json:"event"`
	Tag     string `json:"tag"`
	Version uint64 `json:"version"`
	Count   int    `json:"count"`
}

// Options configures a Store
type Options struct {
	CacheSize int
	CacheTTL  time.Duration
	Emitter   *emitter.Emitter
	Logger    logger.Logger
}

// Store holds the current snapshot per tag and caches filtered index lists
type Store struct {
	mu        sync.RWMutex
	snapshots map[string]*Snapshot
	versions  map[string]uint64

	cache   otter.Cache[filterKey, []int]
	emitter *emitter.Emitter
	logger  logger.Logger
	now     func() time.Time
}

// New creates an empty store
func New(opts Options) (*Store, error) {
	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	cache, err := otter.MustBuilder[filterKey, []int](size).
		WithTTL(ttl).
		Build()
	if err != nil {
		return nil, err
	}

	return &Store{
		snapshots: make(map[string]*Snapshot),
		versions:  make(map[string]uint64),
		cache:     cache,
		emitter:   opts.Emitter,
		logger:    log,
		now:       time.Now,
	}, nil
}

// Replace installs records as the tag's Dataset and returns the new snapshot.
// The slice is copied; the values themselves are shared and must be treated
// as read-only from here on.
func (s *Store) Replace(tag string, records []value.Value) *Snapshot {
	cp := make([]value.Value, len(records))
	copy(cp, records)

	s.mu.Lock()
	s.versions[tag]++
	snap := &Snapshot{
		Tag:      tag,
		Version:  s.versions[tag],
		Records:  cp,
		LoadedAt: s.now(),
	}
	s.snapshots[tag] = snap
	s.mu.Unlock()

	s.logger.Debug("Dataset replaced",
		logger.String("tag", tag),
		logger.Uint64("version", snap.Version),
		logger.Int("records", len(cp)))

	s.emitter.Emit(EventReplaced, ChangeEvent{Event: EventReplaced, Tag: tag, Version: snap.Version, Count: len(cp)})
	return snap
}

// Drop forgets a tag's Dataset. The version counter is kept so a later
// Replace never reuses a cached version.
func (s *Store) Drop(tag string) {
	s.mu.Lock()
	_, existed := s.snapshots[tag]
	delete(s.snapshots, tag)
	version := s.versions[tag]
	s.mu.Unlock()

	if existed {
		s.emitter.Emit(EventReplaced, ChangeEvent{Event: EventReplaced, Tag: tag, Version: version})
	}
}

// Snapshot returns the current snapshot of tag
func (s *Store) Snapshot(tag string) (*Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[tag]
	return snap, ok
}

// Records returns the current Dataset of tag, nil when none is loaded
func (s *Store) Records(tag string) []value.Value {
	if snap, ok := s.Snapshot(tag); ok {
		return snap.Records
	}
	return nil
}

// Tags lists the loaded tags in sorted order
func (s *Store) Tags() []string {
	s.mu.RLock()
	tags := make([]string, 0, len(s.snapshots))
	for tag := range s.snapshots {
		tags = append(tags, tag)
	}
	s.mu.RUnlock()
	sort.Strings(tags)
	return tags
}

// Counts returns the record count of every loaded tag
func (s *Store) Counts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.snapshots))
	for tag, snap := range s.snapshots {
		out[tag] = len(snap.Records)
	}
	return out
}

// Filter runs the table filter over the current snapshot of tag. An empty
// query yields the snapshot's own slice. Matched positions of non-empty
// queries are memoised per snapshot version.
func (s *Store) Filter(tag, query string, fields []string) ([]value.Value, *Snapshot) {
	snap, ok := s.Snapshot(tag)
	if !ok {
		return nil, nil
	}

	engine := tablefilter.New(snap.Records)
	if query == "" {
		engine.HandleFilter(query, fields)
		return engine.FilteredData(), snap
	}

	key := newFilterKey(snap, query, fields)
	if indices, hit := s.cache.Get(key); hit {
		filtered := make([]value.Value, len(indices))
		for i, idx := range indices {
			filtered[i] = snap.Records[idx]
		}
		engine.SetFilteredData(filtered)
		return engine.FilteredData(), snap
	}

	engine.HandleFilter(query, fields)
	s.cache.Set(key, engine.Matched())
	return engine.FilteredData(), snap
}

// Close releases the cache
func (s *Store) Close() {
	s.cache.Close()
}

type filterKey struct {
	tag     string
	version uint64
	query   string
	fields  string
}

// newFilterKey quotes each field so no pair of field lists collides
func newFilterKey(snap *Snapshot, query string, fields []string) filterKey {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = strconv.Quote(f)
	}
	return filterKey{
		tag:     snap.Tag,
		version: snap.Version,
		query:   strings.ToLower(query),
		fields:  strings.Join(quoted, ","),
	}
}
