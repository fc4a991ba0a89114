package application

import (
	"sync"
	"time"
)

// authSetCache stores the recently computed authenticated-participant set so
// repeated scheduling calls do not re-read the whole directory. Registration
// and removal invalidate it.
type authSetCache struct {
	mu        sync.RWMutex
	now       func() time.Time
	ttl       time.Duration
	ids       []string
	valid     bool
	expiresAt time.Time
}

func newAuthSetCache(ttl time.Duration, now func() time.Time) *authSetCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if now == nil {
		now = time.Now
	}
	return &authSetCache{now: now, ttl: ttl}
}

func (c *authSetCache) Get() ([]string, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.valid || c.now().After(c.expiresAt) {
		return nil, false
	}
	return cloneIDs(c.ids), true
}

func (c *authSetCache) Store(ids []string) {
	if c == nil {
		return
	}
	cloned := cloneIDs(ids)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = cloned
	c.valid = true
	c.expiresAt = expiry
}

func (c *authSetCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.ids = nil
	c.valid = false
	c.mu.Unlock()
}

func cloneIDs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}
