// Package cache keeps resolved IPv4 addresses keyed by name and record type.
//
// Entries expire lazily: an expired entry is removed by the lookup that
// finds it, or by Clean. Storage is sharded by record type, each shard
// with its own lock and its own capacity bound.
package cache

import (
	"net/netip"
	"strings"
	"sync/atomic"
	"time"
)

const DefaultMaxEntries = 4096 // per record type
const MaxQtype = 260           // record types above share one shard

type Cache struct {
	MaxEntries int              // bound per record type, zero or less means unbounded
	Now        func() time.Time // clock, time.Now when nil
	count      atomic.Uint64
	hits       atomic.Uint64
	cq         []*cacheQtype
}

func New() *Cache {
	cq := make([]*cacheQtype, MaxQtype+2)
	for i := range cq {
		cq[i] = newCacheQtype()
	}
	return &Cache{
		MaxEntries: DefaultMaxEntries,
		cq:         cq,
	}
}

// HitRatio returns the hit ratio as a percentage.
func (cache *Cache) HitRatio() (n float64) {
	if cache != nil {
		if count := cache.count.Load(); count > 0 {
			n = float64(cache.hits.Load()*100) / float64(count)
		}
	}
	return
}

// Entries returns the number of entries in the cache, expired ones included.
func (cache *Cache) Entries() (n int) {
	if cache != nil {
		for _, cq := range cache.cq {
			n += cq.entries()
		}
	}
	return
}

// Lookup returns the entry for name and qtype if it is present and valid.
// An expired entry is removed and reported absent.
func (cache *Cache) Lookup(name string, qtype uint16) (e Entry, ok bool) {
	if cache != nil {
		e, ok = cache.lookup(name, qtype, cache.now())
	}
	return
}

// Get returns the address stored for name and qtype and how long it stays
// valid, both read at the same instant of the cache's clock.
func (cache *Cache) Get(name string, qtype uint16) (addr netip.Addr, ttl time.Duration, ok bool) {
	if cache != nil {
		now := cache.now()
		var e Entry
		if e, ok = cache.lookup(name, qtype, now); ok {
			addr, ttl = e.Addr, e.Remaining(now)
		}
	}
	return
}

func (cache *Cache) lookup(name string, qtype uint16, now time.Time) (e Entry, ok bool) {
	cache.count.Add(1)
	if e, ok = cache.shard(qtype).get(makeKey(name, qtype), now); ok {
		cache.hits.Add(1)
	}
	return
}

// Store records addr for name and qtype, valid for ttl from now. Any
// existing entry is replaced.
func (cache *Cache) Store(name string, qtype uint16, addr netip.Addr, ttl time.Duration) {
	if cache != nil {
		e := Entry{Addr: addr, Created: cache.now(), TTL: ttl}
		cache.shard(qtype).set(makeKey(name, qtype), e, cache.MaxEntries)
	}
}

// Clear removes all entries.
func (cache *Cache) Clear() {
	if cache != nil {
		for _, cq := range cache.cq {
			cq.clear()
		}
	}
}

// Clean removes expired entries and returns how many were dropped.
func (cache *Cache) Clean() (n int) {
	if cache != nil {
		now := cache.now()
		for _, cq := range cache.cq {
			n += cq.clean(now)
		}
	}
	return
}

func (cache *Cache) now() time.Time {
	if cache.Now != nil {
		return cache.Now()
	}
	return time.Now()
}

func (cache *Cache) shard(qtype uint16) *cacheQtype {
	return cache.cq[min(int(qtype), MaxQtype+1)]
}

// makeKey folds case and drops a trailing dot; names compare the way
// DNS compares them.
func makeKey(name string, qtype uint16) cacheKey {
	return cacheKey{name: strings.ToLower(strings.TrimSuffix(name, ".")), qtype: qtype}
}
