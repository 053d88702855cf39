package resolver

import (
	"net/netip"
	"time"
)

// Stage names the step of the resolution pipeline that produced an address.
type Stage uint8

const (
	StageNone Stage = iota
	StageCache
	StageIterative
	StagePublic
	StageFallback
)

var stageNames = [...]string{
	StageNone:      "none",
	StageCache:     "cache",
	StageIterative: "iterative",
	StagePublic:    "public",
	StageFallback:  "fallback",
}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "unknown"
}

// Result is the outcome of a resolution. Addr is invalid and Stage is
// StageNone when the query type or class cannot be answered.
type Result struct {
	Addr  netip.Addr
	TTL   time.Duration // remaining for cache hits, the policy TTL otherwise
	Stage Stage
}

// Found reports whether an address was obtained.
func (r Result) Found() bool {
	return r.Addr.IsValid()
}
