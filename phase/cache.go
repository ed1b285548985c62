// SPDX-License-Identifier: MIT

package phase

import (
	"container/list"
	"strconv"
	"strings"
	"sync"

	"github.com/katalvlaran/lnpi/grid"
)

// DefaultCacheSize is the capacity used by NewCache for sizes < 1.
const DefaultCacheSize = 256

// Cache is a bounded LRU of built collections keyed by the reference grid
// identity, the mu offset from that grid and nmax. A Cache must only be
// shared by builders with identical options. Safe for concurrent use.
type Cache struct {
	mu    sync.Mutex
	size  int
	ll    *list.List
	items map[cacheKey]*list.Element
}

type cacheKey struct {
	origin *grid.Grid
	dmu    string
	nmax   int
}

type cacheEntry struct {
	key cacheKey
	c   *Collection
}

// NewCache returns an empty cache holding at most size collections.
func NewCache(size int) *Cache {
	if size < 1 {
		size = DefaultCacheSize
	}

	return &Cache{size: size, ll: list.New(), items: make(map[cacheKey]*list.Element)}
}

func keyOf(g *grid.Grid, nmax int) cacheKey {
	parts := make([]string, 0, g.NDim())
	for _, d := range g.DeltaMu() {
		parts = append(parts, strconv.FormatFloat(d, 'g', -1, 64))
	}

	return cacheKey{origin: g.Origin(), dmu: strings.Join(parts, ","), nmax: nmax}
}

// Get returns the collection built from g (a reweighted grid) with nmax.
func (c *Cache) Get(g *grid.Grid, nmax int) (*Collection, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[keyOf(g, nmax)]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)

	return el.Value.(*cacheEntry).c, true
}

// Add stores col, evicting the least recently used entry when full.
func (c *Cache) Add(g *grid.Grid, nmax int, col *Collection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := keyOf(g, nmax)
	if el, ok := c.items[k]; ok {
		c.ll.MoveToFront(el)
		el.Value.(*cacheEntry).c = col
		return
	}
	c.items[k] = c.ll.PushFront(&cacheEntry{key: k, c: col})
	if c.ll.Len() > c.size {
		last := c.ll.Back()
		c.ll.Remove(last)
		delete(c.items, last.Value.(*cacheEntry).key)
	}
}

// Len returns the number of cached collections.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Purge empties the cache.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[cacheKey]*list.Element)
}
