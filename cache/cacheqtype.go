package cache

import (
	"sync"
	"time"
)

type cacheQtype struct {
	mu    sync.RWMutex
	cache map[cacheKey]Entry
}

func newCacheQtype() *cacheQtype {
	return &cacheQtype{cache: make(map[cacheKey]Entry)}
}

func (cq *cacheQtype) entries() (n int) {
	cq.mu.RLock()
	n = len(cq.cache)
	cq.mu.RUnlock()
	return
}

func (cq *cacheQtype) set(key cacheKey, e Entry, limit int) {
	cq.mu.Lock()
	defer cq.mu.Unlock()
	if _, ok := cq.cache[key]; !ok && limit > 0 && len(cq.cache) >= limit {
		cq.cleanLocked(e.Created)
		for len(cq.cache) >= limit {
			cq.evictOldestLocked()
		}
	}
	cq.cache[key] = e
}

func (cq *cacheQtype) get(key cacheKey, now time.Time) (e Entry, ok bool) {
	cq.mu.RLock()
	e, ok = cq.cache[key]
	cq.mu.RUnlock()
	if ok && !e.Valid(now) {
		cq.mu.Lock()
		// the entry may have been refreshed since the read lock was released
		if cur, found := cq.cache[key]; found && !cur.Valid(now) {
			delete(cq.cache, key)
		}
		cq.mu.Unlock()
		e, ok = Entry{}, false
	}
	return
}

func (cq *cacheQtype) evictOldestLocked() {
	var oldest cacheKey
	var expires time.Time
	first := true
	for key, e := range cq.cache {
		if first || e.Expires().Before(expires) {
			oldest, expires, first = key, e.Expires(), false
		}
	}
	delete(cq.cache, oldest)
}

func (cq *cacheQtype) clear() {
	cq.clean(time.Time{})
}

func (cq *cacheQtype) clean(now time.Time) (n int) {
	cq.mu.Lock()
	defer cq.mu.Unlock()
	return cq.cleanLocked(now)
}

func (cq *cacheQtype) cleanLocked(now time.Time) (n int) {
	for key, e := range cq.cache {
		if now.IsZero() || !e.Valid(now) {
			delete(cq.cache, key)
			n++
		}
	}
	return
}
