package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is a TTL cache with expired entries swept in the background.
type Cache struct {
	ttl time.Duration
	c   *gocache.Cache
}

func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &Cache{
		ttl: ttl,
		c:   gocache.New(ttl, 2*ttl),
	}
}

func (c *Cache) Get(key string) (any, bool) {
	return c.c.Get(key)
}

func (c *Cache) Set(key string, val any) {
	c.c.Set(key, val, gocache.DefaultExpiration)
}

func (c *Cache) Delete(key string) {
	c.c.Delete(key)
}
