package dashboard

import (
	"sync"
	"time"

	"github.com/gehringer/solarboard/pkg/chart"
)

// Entry is the data loaded for one tab.
type Entry struct {
	// Date is the day the data was requested for. An entry for another day
	// is stale.
	Date     string
	Data     chart.Data
	LoadedAt time.Time
}

// Cache keeps the last successful load of each tab for the life of the
// process.
type Cache struct {
	mu      sync.RWMutex
	entries map[chart.Tab]Entry
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[chart.Tab]Entry)}
}

// Get returns the entry for tab.
func (c *Cache) Get(tab chart.Tab) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[tab]
	return e, ok
}

// Has reports whether tab has an entry loaded for date.
func (c *Cache) Has(tab chart.Tab, date string) bool {
	e, ok := c.Get(tab)
	return ok && e.Date == date
}

// Set stores e for tab, replacing any previous entry.
func (c *Cache) Set(tab chart.Tab, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[tab] = e
}

// Invalidate drops the entry for tab.
func (c *Cache) Invalidate(tab chart.Tab) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, tab)
}

