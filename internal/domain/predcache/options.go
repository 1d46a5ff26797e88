package predcache

// Option applies a configuration option to the LRU cache.
type Option func(*lruCache)

// WithMaxSize sets how many distinct vectors are remembered per model
// generation. Zero or negative disables caching.
func WithMaxSize(maxSize int) Option {
	return func(c *lruCache) {
		c.maxSize = maxSize
	}
}
