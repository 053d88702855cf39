package resolver

import (
	"context"
	"net/netip"
	"sort"
	"sync"
	"time"
)

// ProbeResult is the measured TCP connect latency of one server.
type ProbeResult struct {
	Addr netip.Addr
	RTT  time.Duration // average over the probes
	Err  error         // last dial error, if any
}

// Reachable reports whether every probe connected.
func (pr ProbeResult) Reachable() bool {
	return pr.Err == nil
}

const numProbes = 3

// Probe measures the TCP connect latency of each address in parallel and
// returns the results sorted fastest first. Servers that failed to connect
// or averaged above cutoff are left out.
func (u *NetUpstream) Probe(ctx context.Context, addrs []netip.Addr, cutoff time.Duration) (l []ProbeResult) {
	if _, ok := ctx.Deadline(); !ok {
		newctx, cancel := context.WithTimeout(ctx, cutoff*2)
		defer cancel()
		ctx = newctx
	}
	results := make([]ProbeResult, len(addrs))
	var wg sync.WaitGroup
	for i, addr := range addrs {
		results[i].Addr = addr
		wg.Add(1)
		go u.timeServer(ctx, &wg, &results[i])
	}
	wg.Wait()
	for _, pr := range results {
		if pr.Reachable() && pr.RTT <= cutoff {
			l = append(l, pr)
		}
	}
	sort.SliceStable(l, func(i, j int) bool { return l[i].RTT < l[j].RTT })
	return
}

func (u *NetUpstream) timeServer(ctx context.Context, wg *sync.WaitGroup, pr *ProbeResult) {
	defer wg.Done()
	network := formatProto("tcp", pr.Addr)
	var rtt time.Duration
	for i := 0; i < numProbes; i++ {
		now := time.Now()
		conn, err := u.DialContext(ctx, network, u.addrPort(pr.Addr).String())
		if err != nil {
			pr.Err = err
			pr.RTT = time.Hour
			return
		}
		rtt += time.Since(now)
		_ = conn.Close()
	}
	pr.RTT = rtt / numProbes
}
