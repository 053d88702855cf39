package resolver

import (
	"net/netip"
	"strings"
)

// FallbackEntry maps every name containing Substring to Addr.
type FallbackEntry struct {
	Substring string
	Addr      netip.Addr
}

// FallbackTable is a static, ordered name to address table with a default.
// It is read-only once built.
type FallbackTable struct {
	entries []FallbackEntry
	def     netip.Addr
}

// NewFallbackTable returns a table answering def for names no entry matches.
// Entries are tried in the order given.
func NewFallbackTable(def netip.Addr, entries ...FallbackEntry) *FallbackTable {
	t := &FallbackTable{def: def}
	for _, e := range entries {
		e.Substring = strings.ToLower(e.Substring)
		t.entries = append(t.entries, e)
	}
	return t
}

// DefaultFallback returns the stock table, defaulting to 8.8.8.8.
func DefaultFallback() *FallbackTable {
	return NewFallbackTable(netip.AddrFrom4([4]byte{8, 8, 8, 8}),
		FallbackEntry{"example.com", netip.AddrFrom4([4]byte{93, 184, 216, 34})},
		FallbackEntry{"google.com", netip.AddrFrom4([4]byte{142, 250, 191, 46})},
		FallbackEntry{"facebook.com", netip.AddrFrom4([4]byte{31, 13, 66, 35})},
		FallbackEntry{"amazon.com", netip.AddrFrom4([4]byte{54, 239, 28, 85})},
		FallbackEntry{"youtube.com", netip.AddrFrom4([4]byte{142, 250, 191, 46})},
		FallbackEntry{"wikipedia.org", netip.AddrFrom4([4]byte{208, 80, 153, 224})},
	)
}

// Lookup returns the address of the first entry whose substring occurs in
// name, ignoring case, or the default address.
func (t *FallbackTable) Lookup(name string) netip.Addr {
	name = strings.ToLower(name)
	for _, e := range t.entries {
		if strings.Contains(name, e.Substring) {
			return e.Addr
		}
	}
	return t.def
}

// Default returns the address used when nothing matches.
func (t *FallbackTable) Default() netip.Addr {
	return t.def
}

// Entries returns a copy of the ordered entries.
func (t *FallbackTable) Entries() []FallbackEntry {
	return append([]FallbackEntry(nil), t.entries...)
}
