// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package chunkcache remembers recently decrunched chunks
// so that a chunk met again need not be decoded again.
package chunkcache

import (
	"bytes"
	"hash/maphash"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-tinylfu"
	"github.com/elliotnunn/xpkcrunch/internal/xpk"
)

// Backing is a slower second level, such as a chunkstore.Store
type Backing interface {
	Get(format string, sum uint64, size int) ([]byte, bool)
	Put(format string, sum uint64, data []byte) error
}

type key struct {
	format string
	sum    uint64
	size   int
}

var seed = maphash.MakeSeed()

func keyHash(k key) uint64 { return maphash.Comparable(seed, k) }

// Cache is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	lfu     *tinylfu.T[key, []byte]
	backing Backing

	hits, misses atomic.Uint64
}

// New makes a cache holding about n chunks, with an optional backing store
func New(n int, backing Backing) *Cache {
	n = max(n, 1)
	return &Cache{
		lfu:     tinylfu.New[key, []byte](n, n*10, keyHash),
		backing: backing,
	}
}

// Decompress is d.Decompress with caching.
// Chunks of stateful formats depend on what came before, so they are never cached.
func (c *Cache) Decompress(d *xpk.Decruncher, agent string, chunk, raw []byte) error {
	if xpk.IsStateful(d.Format()) {
		return d.Decompress(agent, chunk, raw)
	}

	k := key{d.Format(), xxhash.Sum64(chunk), len(raw)}
	c.mu.Lock()
	got, ok := c.lfu.Get(k)
	c.mu.Unlock()
	if ok {
		c.hits.Add(1)
		copy(raw, got)
		return nil
	}

	if c.backing != nil {
		if got, ok := c.backing.Get(k.format, k.sum, k.size); ok {
			c.hits.Add(1)
			copy(raw, got)
			c.add(k, got)
			return nil
		}
	}

	c.misses.Add(1)
	if err := d.Decompress(agent, chunk, raw); err != nil {
		return err
	}
	c.add(k, bytes.Clone(raw))
	if c.backing != nil {
		if err := c.backing.Put(k.format, k.sum, raw); err != nil {
			slog.Warn("chunkCachePut", "format", k.format, "err", err)
		}
	}
	return nil
}

func (c *Cache) add(k key, data []byte) {
	c.mu.Lock()
	c.lfu.Add(k, data)
	c.mu.Unlock()
}

// Stats reports how many lookups were satisfied without decoding
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
