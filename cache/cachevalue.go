package cache

import (
	"net/netip"
	"time"
)

// Entry is a cached resolution.
type Entry struct {
	Addr    netip.Addr
	Created time.Time
	TTL     time.Duration
}

// Valid reports whether the entry is still usable at now.
func (e Entry) Valid(now time.Time) bool {
	return now.Sub(e.Created) < e.TTL
}

// Expires returns the first instant the entry is no longer valid.
func (e Entry) Expires() time.Time {
	return e.Created.Add(e.TTL)
}

// Remaining returns how long the entry stays valid after now, never
// negative.
func (e Entry) Remaining(now time.Time) (d time.Duration) {
	if d = e.Expires().Sub(now); d < 0 {
		d = 0
	}
	return
}

type cacheKey struct {
	name  string
	qtype uint16
}
