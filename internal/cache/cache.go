// Package cache implements the in-memory, TTL-based cache of resolved
// parameters.
//
// The cache is sharded so concurrent resolutions for unrelated keys never
// contend on one lock, supports negative entries (confirmed absence), and
// keeps Secret-classified values inside encrypted secure.Buffers rather
// than bare strings. It is memory-only: nothing survives a process restart.
package cache

import (
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/systmms/confres/internal/secure"
	"github.com/systmms/confres/pkg/store"
)

// Tier identifies which layer of the fallback chain produced a value.
type Tier int

const (
	TierCache Tier = iota
	TierRemote
	TierEnvVar
	TierStaticDefault
)

// String returns the tier label used in results, audit events, and reports.
func (t Tier) String() string {
	switch t {
	case TierCache:
		return "Cache"
	case TierRemote:
		return "Remote"
	case TierEnvVar:
		return "EnvVar"
	case TierStaticDefault:
		return "StaticDefault"
	}
	return "Unknown"
}

const shardCount = 32

// Entry is a materialized cache record. For negative entries the Parameter
// is zero-valued and Negative is true.
type Entry struct {
	Parameter store.Parameter
	Tier      Tier
	Negative  bool
	ExpiresAt time.Time
}

type record struct {
	param     store.Parameter
	secret    *secure.Buffer // holds the value when classification is Secret
	tier      Tier
	negative  bool
	expiresAt time.Time
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]*record
}

// Cache is the sharded TTL cache. One ResolutionEngine owns one Cache
// exclusively; there are no package-level instances.
type Cache struct {
	shards [shardCount]*shard
	now    func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock injects a clock, letting tests control expiry without sleeping.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{now: time.Now}
	for i := range c.shards {
		c.shards[i] = &shard{entries: make(map[string]*record)}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) shardFor(path string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(path))
	return c.shards[h.Sum32()%shardCount]
}

// Get returns the entry for path if present and unexpired. Expired records
// count as misses and are removed lazily. Secret values are decrypted into
// the returned Entry; the stored copy stays encrypted.
func (c *Cache) Get(path string) (Entry, bool) {
	s := c.shardFor(path)

	s.mu.RLock()
	rec, ok := s.entries[path]
	s.mu.RUnlock()
	if !ok {
		return Entry{}, false
	}

	if c.now().After(rec.expiresAt) {
		s.mu.Lock()
		// re-check under the write lock; another goroutine may have replaced it
		if cur, still := s.entries[path]; still && cur == rec {
			delete(s.entries, path)
		}
		s.mu.Unlock()
		return Entry{}, false
	}

	entry := Entry{
		Parameter: rec.param,
		Tier:      rec.tier,
		Negative:  rec.negative,
		ExpiresAt: rec.expiresAt,
	}
	if rec.secret != nil {
		value, err := rec.secret.Open()
		if err != nil {
			return Entry{}, false
		}
		entry.Parameter.Value = value
	}
	return entry, true
}

// Put stores a positively resolved parameter. Secret-classified values are
// moved into an encrypted buffer before the record lands in the shard map.
func (c *Cache) Put(path string, p store.Parameter, tier Tier, ttl time.Duration) {
	rec := &record{
		param:     p,
		tier:      tier,
		expiresAt: c.now().Add(ttl),
	}
	if p.Classification == store.Secret {
		rec.secret = secure.NewBuffer(p.Value)
		rec.param.Value = ""
	}

	s := c.shardFor(path)
	s.mu.Lock()
	s.entries[path] = rec
	s.mu.Unlock()
}

// PutNegative records a confirmed absence so repeated resolutions of a key
// known not to exist remotely do not hammer the backing store.
func (c *Cache) PutNegative(path string, ttl time.Duration) {
	rec := &record{
		negative:  true,
		tier:      TierRemote,
		expiresAt: c.now().Add(ttl),
	}

	s := c.shardFor(path)
	s.mu.Lock()
	s.entries[path] = rec
	s.mu.Unlock()
}

// Invalidate removes the entry for path, if any.
func (c *Cache) Invalidate(path string) {
	s := c.shardFor(path)
	s.mu.Lock()
	if rec, ok := s.entries[path]; ok {
		if rec.secret != nil {
			rec.secret.Destroy()
		}
		delete(s.entries, path)
	}
	s.mu.Unlock()
}

// InvalidatePrefix removes every entry whose path starts with prefix. Used
// after migration writes to drop all of an environment's cached state. Only
// shards holding matching entries take a write lock at a time, so unrelated
// reads continue.
func (c *Cache) InvalidatePrefix(prefix string) {
	for _, s := range c.shards {
		s.mu.Lock()
		for path, rec := range s.entries {
			if strings.HasPrefix(path, prefix) {
				if rec.secret != nil {
					rec.secret.Destroy()
				}
				delete(s.entries, path)
			}
		}
		s.mu.Unlock()
	}
}

// Len reports the number of live (possibly expired but not yet collected)
// entries. Test helper.
func (c *Cache) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}
