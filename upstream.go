package resolver

import (
	"context"
	"encoding/binary"
	"net"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/LOOK4869/DNS-Resolver/wire"
	"github.com/miekg/dns"
	"golang.org/x/net/proxy"
)

// UpstreamRequest describes one query sent to one server.
type UpstreamRequest struct {
	Name      string
	Type      uint16
	Server    netip.Addr
	Timeout   time.Duration // per attempt, DefaultTimeout if zero or less
	Recursive bool          // set the RD bit
}

// Upstream sends a query to a server and returns the raw reply.
type Upstream interface {
	Query(ctx context.Context, req UpstreamRequest) ([]byte, error)
}

// NetUpstream queries servers over UDP, retrying over TCP when the reply
// is truncated or UDP is unavailable.
type NetUpstream struct {
	proxy.ContextDialer
	DNSPort uint16
	mu      sync.RWMutex // protects following
	useIPv6 bool
	useUDP  bool
}

var _ Upstream = &NetUpstream{}

func NewNetUpstream() *NetUpstream {
	return &NetUpstream{
		ContextDialer: &net.Dialer{},
		DNSPort:       53,
		useIPv6:       true,
		useUDP:        true,
	}
}

// Query sends req and returns the raw reply. Errors are *UpstreamError
// values unless the query itself cannot be encoded.
func (u *NetUpstream) Query(ctx context.Context, req UpstreamRequest) (resp []byte, err error) {
	var msg []byte
	if msg, err = wire.EncodeQuery(req.Name, req.Type, wire.ClassINET); err == nil {
		if req.Recursive {
			binary.BigEndian.PutUint16(msg[2:], binary.BigEndian.Uint16(msg[2:])|wire.FlagRD)
		}
		if resp, err = u.exchange(ctx, "udp", msg, req); err != nil {
			if u.maybeDisableUdp(err) {
				resp, err = u.exchange(ctx, "tcp", msg, req)
			}
		} else if resp == nil || truncated(resp) {
			resp, err = u.exchange(ctx, "tcp", msg, req)
		}
		if err == nil && resp == nil {
			err = &UpstreamError{Network: "tcp", Server: u.addrPort(req.Server), Err: ErrNoTransport}
		}
	}
	return
}

func (u *NetUpstream) exchange(ctx context.Context, network string, msg []byte, req UpstreamRequest) (resp []byte, err error) {
	if u.usable(network, req.Server) {
		network = formatProto(network, req.Server)
		addrPort := u.addrPort(req.Server)
		var dnsConn *dns.Conn
		if dnsConn, err = u.dialDNSConn(ctx, network, req.Server); err == nil {
			defer dnsConn.Close()
			_ = dnsConn.SetDeadline(deadline(ctx, req.Timeout))
			if _, err = dnsConn.Write(msg); err == nil {
				var hdr dns.Header
				if resp, err = dnsConn.ReadMsgHeader(&hdr); err == nil {
					if hdr.Id != binary.BigEndian.Uint16(msg) {
						resp = nil
						err = ErrIDMismatch
					}
				}
			}
		}
		if err != nil {
			err = &UpstreamError{Network: network, Server: addrPort, Err: err}
		}
	}
	return
}

func (u *NetUpstream) dialDNSConn(ctx context.Context, network string, server netip.Addr) (dnsConn *dns.Conn, err error) {
	var rawConn net.Conn
	if rawConn, err = u.DialContext(ctx, network, u.addrPort(server).String()); err == nil {
		dnsConn = &dns.Conn{Conn: rawConn}
		if strings.HasPrefix(network, "udp") {
			dnsConn.UDPSize = wire.MaxUDPSize
		}
	} else if server.Is6() {
		u.maybeDisableIPv6(err)
	}
	return
}

func (u *NetUpstream) addrPort(addr netip.Addr) netip.AddrPort {
	return netip.AddrPortFrom(addr, u.DNSPort)
}

// deadline returns the earlier of now+timeout and the context deadline.
func deadline(ctx context.Context, timeout time.Duration) time.Time {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	limit := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(limit) {
		limit = d
	}
	return limit
}

func truncated(resp []byte) bool {
	return len(resp) >= 4 && wire.Header{Flags: binary.BigEndian.Uint16(resp[2:])}.Truncated()
}

func formatProto(network string, addr netip.Addr) string {
	suffix := "6"
	if addr.Is4() {
		suffix = "4"
	}
	return network + suffix
}
