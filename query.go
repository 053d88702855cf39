package resolver

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/netip"
	"time"

	"github.com/LOOK4869/DNS-Resolver/wire"
	"github.com/miekg/dns"
	"go.uber.org/zap"
)

type query struct {
	*Service
	ctx    context.Context
	writer io.Writer
	start  time.Time
	depth  int
}

// Resolve finds an IPv4 address for name, trying the cache, the root
// servers, the public resolvers and the fallback table in that order.
// Addresses not served from the cache are stored with the policy TTL.
// A trace of every step is written to logw if it is not nil.
//
// Only types A and ANY are answered; for other types the Result is empty.
// The error is non-nil only if ctx is already done.
func (s *Service) Resolve(ctx context.Context, name string, qtype uint16, logw io.Writer) (res Result, err error) {
	q := query{
		Service: s,
		ctx:     ctx,
		writer:  logw,
		start:   time.Now(),
	}
	return q.resolve(name, qtype)
}

func (q *query) resolve(name string, qtype uint16) (res Result, err error) {
	if err = q.ctx.Err(); err == nil {
		q.logf("RESOLVE %s %q", dns.Type(qtype), name)
		if qtype != wire.TypeA && qtype != wire.TypeANY {
			q.logf("UNANSWERED %s %q", dns.Type(qtype), name)
			return
		}
		var ok bool
		if res, ok = q.fromCache(name, qtype); !ok {
			if res, ok = q.iterative(name); !ok {
				if res, ok = q.public(name); !ok {
					res = q.fallback(name)
				}
			}
			res.TTL = q.cfg.CacheTTL
			if q.Cache != nil {
				q.Cache.Store(name, qtype, res.Addr, res.TTL)
			}
		}
		q.logf("ANSWER %s %q => %s (%s, ttl %v)", dns.Type(qtype), name, res.Addr, res.Stage, res.TTL.Round(time.Second))
		if ce := q.Logger.Check(zap.DebugLevel, "resolved"); ce != nil {
			ce.Write(
				zap.String("name", name),
				zap.Stringer("qtype", dns.Type(qtype)),
				zap.Stringer("addr", res.Addr),
				zap.Stringer("stage", res.Stage),
				zap.Duration("ttl", res.TTL),
				zap.Duration("elapsed", time.Since(q.start)),
			)
		}
	}
	return
}

func (q *query) fromCache(name string, qtype uint16) (res Result, ok bool) {
	if q.Cache != nil {
		if res.Addr, res.TTL, ok = q.Cache.Get(name, qtype); ok {
			res.Stage = StageCache
			q.logf("CACHED %q => %s", name, res.Addr)
		}
	}
	return
}

// iterative asks the first IterativeServers root servers without recursion.
func (q *query) iterative(name string) (res Result, ok bool) {
	q.dive()
	defer q.surface()
	for _, server := range q.cfg.RootServers[:q.cfg.IterativeServers] {
		resp, err := q.exchange(name, server, false)
		if err == nil {
			var addr netip.Addr
			if addr, err = answerAddr(resp); err == nil {
				return Result{Addr: addr, Stage: StageIterative}, true
			}
			if q.cfg.ReferralFallback && len(resp) > wire.HeaderSize {
				addr = q.cfg.Fallback.Lookup(name)
				q.logf("REFERRAL @%s %q => %s from fallback table", server, name, addr)
				return Result{Addr: addr, Stage: StageIterative}, true
			}
		}
		q.failed(StageIterative, server, err)
	}
	return
}

// public asks each public resolver in order, or the system resolver once
// per listed resolver when UseSystemResolver is set.
func (q *query) public(name string) (res Result, ok bool) {
	q.dive()
	defer q.surface()
	for _, server := range q.cfg.PublicResolvers {
		var addr netip.Addr
		var err error
		if q.cfg.UseSystemResolver {
			addr, err = q.system(name)
		} else {
			var resp []byte
			if resp, err = q.exchange(name, server, true); err == nil {
				addr, err = answerAddr(resp)
			}
		}
		if err == nil {
			return Result{Addr: addr, Stage: StagePublic}, true
		}
		q.failed(StagePublic, server, err)
	}
	return
}

func (q *query) fallback(name string) Result {
	q.dive()
	defer q.surface()
	addr := q.cfg.Fallback.Lookup(name)
	q.logf("FALLBACK %q => %s", name, addr)
	return Result{Addr: addr, Stage: StageFallback}
}

func (q *query) exchange(name string, server netip.Addr, recursive bool) (resp []byte, err error) {
	ctx, cancel := context.WithTimeout(q.ctx, q.cfg.Timeout)
	defer cancel()
	q.logf("SENDING  @%s A %q", server, name)
	start := time.Now()
	if resp, err = q.Upstream.Query(ctx, UpstreamRequest{
		Name:      name,
		Type:      wire.TypeA,
		Server:    server,
		Timeout:   q.cfg.Timeout,
		Recursive: recursive,
	}); err == nil {
		q.logf("RECEIVED @%s A %q => %d bytes (%v)", server, name, len(resp), time.Since(start).Round(time.Millisecond))
	}
	return
}

func (q *query) system(name string) (addr netip.Addr, err error) {
	ctx, cancel := context.WithTimeout(q.ctx, q.cfg.Timeout)
	defer cancel()
	q.logf("SYSTEM   A %q", name)
	var addrs []netip.Addr
	if addrs, err = q.LookupNetIP(ctx, "ip4", name); err == nil {
		err = ErrNoAnswer
		for _, a := range addrs {
			if a = a.Unmap(); a.Is4() {
				return a, nil
			}
		}
	}
	return
}

func (q *query) failed(stage Stage, server netip.Addr, err error) {
	q.logf("FAILED   @%s: %v", server, err)
	if ce := q.Logger.Check(zap.DebugLevel, "attempt failed"); ce != nil {
		ce.Write(
			zap.Stringer("stage", stage),
			zap.Stringer("server", server),
			zap.Bool("timeout", IsTimeout(err)),
			zap.String("ede", ExtendedErrorText(err)),
			zap.Error(err),
		)
	}
}

func (q *query) dive() {
	q.depth++
}

func (q *query) surface() {
	q.depth--
}

func (q *query) logf(format string, args ...any) {
	if q.writer != nil {
		_, _ = fmt.Fprintf(q.writer, "\n[%6dms]%*s", time.Since(q.start).Milliseconds(), 1+q.depth*2, "")
		_, _ = fmt.Fprintf(q.writer, format, args...)
	}
}

// answerAddr returns the first IPv4 address in the answer section of resp.
func answerAddr(resp []byte) (addr netip.Addr, err error) {
	var msg dns.Msg
	if err = msg.Unpack(resp); err == nil {
		err = ErrNoAnswer
		for _, rr := range msg.Answer {
			if a, ok := rr.(*dns.A); ok {
				if addr = ipToAddr(a.A); addr.IsValid() {
					return addr, nil
				}
			}
		}
	}
	return
}

func ipToAddr(ip net.IP) (addr netip.Addr) {
	if v4 := ip.To4(); v4 != nil {
		addr = netip.AddrFrom4([4]byte(v4))
	}
	return
}
