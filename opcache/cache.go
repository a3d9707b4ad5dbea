// Package opcache memoizes the results of expensive public-key operations,
// keyed by the exact value of every input.
package opcache

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/cryptoengine/logging"
)

// DefaultCapacity is the entry limit used when none is configured.
const DefaultCapacity = 2000

// Entry is one cached result and its usage record.
type Entry struct {
	key            *Key
	result         Result
	successfulUses uint64
	reused         bool
	lastUsed       uint64
}

// SuccessfulUses returns the hit counter as adjusted by aging.
func (e *Entry) SuccessfulUses() uint64 { return e.successfulUses }

// Reused reports whether the entry has been hit at least once.
func (e *Entry) Reused() bool { return e.reused }

// LastUsed returns the logical time of the last insert or hit.
func (e *Entry) LastUsed() uint64 { return e.lastUsed }

// Key returns the entry's key. It must not be modified.
func (e *Entry) Key() *Key { return e.key }

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Size      int    `json:"size"`
}

type config struct {
	policy EvictionPolicy
	hasher Hasher
	name   string
	logger *logrus.Logger
}

// Option configures a Cache.
type Option func(*config)

// WithPolicy sets the eviction policy. The default is AgingPolicy.
func WithPolicy(p EvictionPolicy) Option {
	return func(c *config) {
		if p != nil {
			c.policy = p
		}
	}
}

// WithHasher replaces the bucket hash. Tests use it to force collisions.
func WithHasher(h Hasher) Option {
	return func(c *config) {
		if h != nil {
			c.hasher = h
		}
	}
}

// WithName labels the cache in log output.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// WithLogger routes sweep logs to l instead of the standard logger.
func WithLogger(l *logrus.Logger) Option {
	return func(c *config) { c.logger = l }
}

// Cache is a bounded map from Key to Result. One mutex covers lookup,
// counter updates, insertion and eviction. Keys and results are copied on
// the way in and out.
type Cache struct {
	mu       sync.Mutex
	capacity int
	cfg      config
	buckets  map[uint64][]*Entry
	size     int
	clock    uint64
	stats    Stats
}

// New returns a cache holding at most capacity entries; capacity <= 0
// selects DefaultCapacity.
func New(capacity int, opts ...Option) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	cfg := config{policy: AgingPolicy{}, hasher: XXHash, name: "opcache"}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Cache{
		capacity: capacity,
		cfg:      cfg,
		buckets:  make(map[uint64][]*Entry),
	}
}

func (c *Cache) find(h uint64, k *Key) *Entry {
	for _, e := range c.buckets[h] {
		if e.key.Equal(k) {
			return e
		}
	}
	return nil
}

// Get returns a copy of the result cached for k and counts the hit.
func (c *Cache) Get(k *Key) (Result, bool) {
	h := c.cfg.hasher(k)
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.find(h, k)
	if e == nil {
		c.stats.Misses++
		return Result{}, false
	}
	c.clock++
	e.successfulUses++
	e.reused = true
	e.lastUsed = c.clock
	c.stats.Hits++
	return e.result.clone(), true
}

// Put stores a copy of r under a copy of k. When the cache is full the
// eviction policy runs first.
func (c *Cache) Put(k *Key, r Result) {
	h := c.cfg.hasher(k)
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clock++
	if e := c.find(h, k); e != nil {
		e.result = r.clone()
		e.lastUsed = c.clock
		return
	}
	if c.size >= c.capacity {
		c.evictLocked()
	}
	c.buckets[h] = append(c.buckets[h], &Entry{key: k.Clone(), result: r.clone(), lastUsed: c.clock})
	c.size++
}

// Peek returns a snapshot of the entry for k without counting a hit.
func (c *Cache) Peek(k *Key) (Entry, bool) {
	h := c.cfg.hasher(k)
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.find(h, k)
	if e == nil {
		return Entry{}, false
	}
	snap := *e
	snap.key = e.key.Clone()
	snap.result = e.result.clone()
	return snap, true
}

func (c *Cache) evictLocked() {
	all := make([]*Entry, 0, c.size)
	for _, b := range c.buckets {
		all = append(all, b...)
	}
	victims := c.cfg.policy.Victims(all, c.capacity)
	if len(victims) == 0 {
		victims = LRUPolicy{}.Victims(all, c.capacity)
	}

	doomed := make(map[*Entry]struct{}, len(victims))
	for _, v := range victims {
		doomed[v] = struct{}{}
	}
	removed := 0
	for h, b := range c.buckets {
		kept := b[:0]
		for _, e := range b {
			if _, ok := doomed[e]; ok {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(c.buckets, h)
		} else {
			c.buckets[h] = kept
		}
	}
	c.size -= removed
	c.stats.Evictions += uint64(removed)

	logging.NewLogger("opcache", "evict").
		WithLogger(c.cfg.logger).
		WithField("cache", c.cfg.name).
		WithField("policy", c.cfg.policy.Name()).
		WithField("removed", removed).
		WithField("size", c.size).
		Debug("Cache sweep")
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Capacity returns the entry limit.
func (c *Cache) Capacity() int { return c.capacity }

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = c.size
	return s
}

// Reset drops every entry and zeroes the counters.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buckets = make(map[uint64][]*Entry)
	c.size = 0
	c.stats = Stats{}
}
