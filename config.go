package resolver

import (
	"net/netip"
	"time"
)

//go:generate go run ./cmd/genhints roothints.gen.go

const (
	DefaultTimeout          = 2 * time.Second   // per upstream attempt
	DefaultCacheTTL         = 300 * time.Second // lifetime of every cached answer
	DefaultIterativeServers = 3                 // root servers tried before escalating
)

// PublicResolvers are the well-known recursive resolvers tried, in order,
// once the root servers gave no answer.
var PublicResolvers = []netip.Addr{
	netip.AddrFrom4([4]byte{8, 8, 8, 8}),        // Google
	netip.AddrFrom4([4]byte{1, 1, 1, 1}),        // Cloudflare
	netip.AddrFrom4([4]byte{9, 9, 9, 9}),        // Quad9
	netip.AddrFrom4([4]byte{208, 67, 222, 222}), // OpenDNS
	netip.AddrFrom4([4]byte{128, 59, 1, 3}),     // Columbia
}

// Config holds the ordered server lists and policies a Service is built
// from. New copies it; later changes have no effect on the Service.
type Config struct {
	RootServers      []netip.Addr   // ordered root server addresses
	IterativeServers int            // how many of RootServers to try
	PublicResolvers  []netip.Addr   // ordered recursive resolvers
	Fallback         *FallbackTable // last resort, never nil after New
	Timeout          time.Duration  // per upstream attempt
	CacheTTL         time.Duration  // policy TTL for stored answers
	CacheSize        int            // cache bound per record type, zero means cache.DefaultMaxEntries

	// ReferralFallback makes any non-empty root server reply resolve the
	// name through Fallback, even when it carries no address record.
	ReferralFallback bool

	// UseSystemResolver makes the public stage ask the host's resolver once
	// per entry of PublicResolvers instead of querying those servers.
	UseSystemResolver bool
}

// DefaultConfig returns the configuration of a stock resolver.
func DefaultConfig() Config {
	return Config{
		RootServers:      Roots4,
		IterativeServers: DefaultIterativeServers,
		PublicResolvers:  PublicResolvers,
		Fallback:         DefaultFallback(),
		Timeout:          DefaultTimeout,
		CacheTTL:         DefaultCacheTTL,
	}
}
