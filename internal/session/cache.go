package session

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"rebase/internal/discovery"
)

// DataCache keeps the live discovery data of recently active sessions so a
// turn does not decode the persisted facts each time. Entries are only
// written after a turn commits.
type DataCache struct {
	entries *lru.Cache[string, *discovery.CollectedBusinessData]
}

func NewDataCache(size int) (*DataCache, error) {
	if size <= 0 {
		size = 1024
	}
	entries, err := lru.New[string, *discovery.CollectedBusinessData](size)
	if err != nil {
		return nil, err
	}
	return &DataCache{entries: entries}, nil
}

// Get returns a private copy of the cached data.
func (c *DataCache) Get(sessionID string) (*discovery.CollectedBusinessData, bool) {
	d, ok := c.entries.Get(sessionID)
	if !ok {
		return nil, false
	}
	return d.Clone(), true
}

func (c *DataCache) Put(sessionID string, d *discovery.CollectedBusinessData) {
	c.entries.Add(sessionID, d.Clone())
}

func (c *DataCache) Remove(sessionID string) {
	c.entries.Remove(sessionID)
}

func (c *DataCache) Len() int {
	return c.entries.Len()
}

// Load returns the cached data for a session, or decodes it from ctx and
// caches the result.
func (c *DataCache) Load(ctx *Context) (*discovery.CollectedBusinessData, error) {
	if d, ok := c.Get(ctx.SessionID); ok {
		return d, nil
	}
	d, err := ctx.Facts()
	if err != nil {
		return nil, err
	}
	c.Put(ctx.SessionID, d)
	return d, nil
}
