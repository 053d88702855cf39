// Package resolver answers IPv4 address queries through a layered pipeline:
// a local cache, a few root servers, well-known public resolvers and finally
// a static fallback table, so every decodable query gets a well-formed reply.
//
// Only Internet-class queries of type A or ANY are resolved and answered with
// one A record. Any other type or class gets a reply with no answers and
// never reaches the pipeline.
package resolver

import (
	"context"
	"net"
	"net/netip"
	"time"

	"github.com/LOOK4869/DNS-Resolver/cache"
	"github.com/LOOK4869/DNS-Resolver/wire"
	"go.uber.org/zap"
)

type Service struct {
	Upstream    Upstream
	Logger      *zap.Logger
	Cache       Cacher // nil disables caching
	LookupNetIP func(ctx context.Context, network, host string) ([]netip.Addr, error)
	cfg         Config
}

// New returns a Service using cfg, a fresh cache, a NetUpstream, the
// system resolver and a no-op logger.
//
// A Timeout or CacheTTL of zero or less is replaced by its default, a nil
// Fallback by DefaultFallback(), and IterativeServers is clamped to the
// number of RootServers.
func New(cfg Config) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.Fallback == nil {
		cfg.Fallback = DefaultFallback()
	}
	cfg.RootServers = append([]netip.Addr(nil), cfg.RootServers...)
	cfg.PublicResolvers = append([]netip.Addr(nil), cfg.PublicResolvers...)
	cfg.IterativeServers = max(0, min(cfg.IterativeServers, len(cfg.RootServers)))

	c := cache.New()
	if cfg.CacheSize != 0 {
		c.MaxEntries = cfg.CacheSize
	}
	return &Service{
		Upstream:    NewNetUpstream(),
		Logger:      zap.NewNop(),
		Cache:       c,
		LookupNetIP: net.DefaultResolver.LookupNetIP,
		cfg:         cfg,
	}
}

// Config returns a copy of the configuration in effect.
func (s *Service) Config() (cfg Config) {
	cfg = s.cfg
	cfg.RootServers = append([]netip.Addr(nil), s.cfg.RootServers...)
	cfg.PublicResolvers = append([]netip.Addr(nil), s.cfg.PublicResolvers...)
	return
}

// Handle answers one raw query message. It returns an error and no reply
// if the query cannot be decoded; the caller must then send nothing.
// Queries for types other than A or ANY, or classes other than IN, get a
// reply without answers.
func (s *Service) Handle(ctx context.Context, req []byte) (reply []byte, err error) {
	var msg *wire.Message
	if msg, err = wire.DecodeQuery(req); err == nil {
		q := msg.Questions[0]
		var res Result
		if q.Class == wire.ClassINET {
			res, err = s.Resolve(ctx, q.Name, q.Type, nil)
		}
		if err == nil {
			reply, err = s.respond(req, res)
		}
	}
	return
}

func (s *Service) respond(req []byte, res Result) ([]byte, error) {
	var answers []wire.Answer
	if res.Found() {
		a, err := wire.ARecord(res.Addr, uint32(res.TTL/time.Second))
		if err == nil {
			answers = append(answers, a)
		} else {
			s.Logger.Warn("answer dropped", zap.Stringer("addr", res.Addr), zap.Error(err))
		}
	}
	return wire.EncodeReply(req, answers)
}
