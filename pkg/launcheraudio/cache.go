// ABOUTME: Byte cache over the application-supplied sound loader
// ABOUTME: Caches encoded audio by name, with a passthrough mode
package launcheraudio

import (
	"fmt"
	"sync"
)

// Loader resolves a sound name to its encoded bytes. Applications supply
// one; names are opaque to the library.
type Loader func(name string) ([]byte, error)

// BytesCache memoizes loader results by name. Sounds are typically
// requested many times (every patch of the same id, every restart), so
// the loader runs once per name unless passthrough is enabled.
type BytesCache struct {
	load        Loader
	passthrough bool

	mu    sync.Mutex
	bytes map[string][]byte
}

// NewBytesCache wraps a loader. With passthrough set, every Get calls
// the loader directly and nothing is retained.
func NewBytesCache(load Loader, passthrough bool) *BytesCache {
	return &BytesCache{
		load:        load,
		passthrough: passthrough,
		bytes:       make(map[string][]byte),
	}
}

// Get returns the encoded bytes for a name, consulting the cache first.
// Loader failures are not cached; a later Get retries.
func (c *BytesCache) Get(name string) ([]byte, error) {
	if c.load == nil {
		return nil, fmt.Errorf("no sound loader configured, cannot load %q", name)
	}
	if c.passthrough {
		return c.load(name)
	}

	c.mu.Lock()
	data, ok := c.bytes[name]
	c.mu.Unlock()
	if ok {
		return data, nil
	}

	data, err := c.load(name)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.bytes[name] = data
	c.mu.Unlock()
	return data, nil
}

// Len returns the number of cached entries.
func (c *BytesCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.bytes)
}
