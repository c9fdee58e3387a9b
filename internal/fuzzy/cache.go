package fuzzy

import (
	"container/list"
	"sync"
)

// Cache provides LRU caching of match results keyed by normalized query.
// It is safe for concurrent use. Entries stay valid only as long as the
// target list they were computed against does not change.
type Cache struct {
	mu      sync.Mutex
	maxSize int
	items   map[string]*list.Element
	lru     *list.List
}

type cacheEntry struct {
	query   string
	results []Result
}

// NewCache creates a cache holding at most maxSize queries.
func NewCache(maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &Cache{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
	}
}

// Get returns a copy of the cached results for query.
func (c *Cache) Get(query string) ([]Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[query]
	if !ok {
		return nil, false
	}
	c.lru.MoveToFront(elem)
	entry := elem.Value.(*cacheEntry) //nolint:errcheck // list only contains *cacheEntry
	return copyResults(entry.results), true
}

// Set stores results for query, evicting the least recently used entry if full.
func (c *Cache) Set(query string, results []Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[query]; ok {
		c.lru.MoveToFront(elem)
		entry := elem.Value.(*cacheEntry) //nolint:errcheck // list only contains *cacheEntry
		entry.results = copyResults(results)
		return
	}

	if c.lru.Len() >= c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.lru.Remove(oldest)
			delete(c.items, oldest.Value.(*cacheEntry).query) //nolint:errcheck // list only contains *cacheEntry
		}
	}

	elem := c.lru.PushFront(&cacheEntry{query: query, results: copyResults(results)})
	c.items[query] = elem
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.lru.Init()
}

// Len returns the number of cached queries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func copyResults(results []Result) []Result {
	if results == nil {
		return nil
	}
	copied := make([]Result, len(results))
	for i, r := range results {
		copied[i] = Result{Index: r.Index, Score: r.Score}
		if r.Matches != nil {
			copied[i].Matches = append([]int(nil), r.Matches...)
		}
	}
	return copied
}
