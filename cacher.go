package resolver

import (
	"net/netip"
	"time"

	"github.com/LOOK4869/DNS-Resolver/cache"
)

type Cacher interface {
	// Get returns the address for name and qtype if it is present and still
	// valid, with the time left before it expires. Expired entries must be
	// reported absent.
	Get(name string, qtype uint16) (addr netip.Addr, ttl time.Duration, ok bool)

	// Store records addr for name and qtype, valid for ttl from now,
	// replacing any existing entry.
	Store(name string, qtype uint16, addr netip.Addr, ttl time.Duration)
}

var _ Cacher = (*cache.Cache)(nil)
