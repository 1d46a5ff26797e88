// Package predcache memoises predictions for the model generation that
// produced them.
package predcache

import (
	"math"
	"strconv"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Entry is a cached prediction.
type Entry struct {
	Suitable    bool
	Probability float64
}

// Cache stores predictions keyed by feature vector. Entries from an older
// generation are never returned.
type Cache interface {
	// Get returns the entry for in if it was stored under generation.
	Get(generation uint64, in []float64) (Entry, bool)
	// Put stores e for in. A newer generation drops everything cached so far.
	Put(generation uint64, in []float64, e Entry)
	// Len returns the number of cached vectors.
	Len() int
}

type lruCache struct {
	mu         sync.Mutex
	maxSize    int
	generation uint64
	entries    *lru.Cache[string, Entry]
}

// New creates a prediction cache. With a non-positive size it caches nothing.
func New(opts ...Option) Cache {
	c := &lruCache{maxSize: 4096}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxSize <= 0 {
		return noop{}
	}
	// lru.New only fails for a non-positive size
	c.entries, _ = lru.New[string, Entry](c.maxSize)
	return c
}

func (c *lruCache) Get(generation uint64, in []float64) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		return Entry{}, false
	}
	return c.entries.Get(key(in))
}

func (c *lruCache) Put(generation uint64, in []float64, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case generation > c.generation:
		c.entries.Purge()
		c.generation = generation
	case generation < c.generation:
		// a stale model answered after a swap
		return
	}
	c.entries.Add(key(in), e)
}

func (c *lruCache) Len() int {
	return c.entries.Len()
}

// key encodes the exact bit patterns so 0.1+0.2 and 0.3 stay distinct.
func key(in []float64) string {
	var b strings.Builder
	b.Grow(len(in) * 17)
	for i, v := range in {
		if i > 0 {
			b.WriteByte(':')
		}
		b.WriteString(strconv.FormatUint(math.Float64bits(v), 16))
	}
	return b.String()
}

type noop struct{}

func (noop) Get(uint64, []float64) (Entry, bool) { return Entry{}, false }
func (noop) Put(uint64, []float64, Entry)        {}
func (noop) Len() int                            { return 0 }
