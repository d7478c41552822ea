package resolver

// DCSO HOSTNAMER
// Copyright (c) 2021, DCSO GmbH

import (
	"github.com/patrickmn/go-cache"
)

// Cache maps addresses to resolved names. Entries are written at most once
// and never expire.
type Cache struct {
	cache *cache.Cache
}

// MakeCache returns a new, empty Cache.
func MakeCache() *Cache {
	return &Cache{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

// Get returns the name cached for the given address, if any.
func (c *Cache) Get(address string) (string, bool) {
	val, found := c.cache.Get(address)
	if !found {
		return "", false
	}
	return val.(string), true
}

// Add stores a name for an address. It returns false if the address already
// had a name, in which case the existing one is kept.
func (c *Cache) Add(address string, name string) bool {
	return c.cache.Add(address, name, cache.NoExpiration) == nil
}

// Len returns the number of cached names.
func (c *Cache) Len() int {
	return c.cache.ItemCount()
}
