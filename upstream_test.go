package resolver

import (
	"errors"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/miekg/dns"
)

var loopback = netip.MustParseAddr("127.0.0.1")

func serveUDP(t *testing.T, handle func(req *dns.Msg) *dns.Msg) uint16 {
	t.Helper()
	pc, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = pc.Close() })
	go func() {
		buf := make([]byte, 512)
		for {
			n, from, err := pc.ReadFrom(buf)
			if err != nil {
				return
			}
			req := new(dns.Msg)
			if req.Unpack(buf[:n]) != nil {
				continue
			}
			if resp := handle(req); resp != nil {
				if b, err := resp.Pack(); err == nil {
					_, _ = pc.WriteTo(b, from)
				}
			}
		}
	}()
	return uint16(pc.LocalAddr().(*net.UDPAddr).Port)
}

func serveTCP(t *testing.T, port uint16, handle func(req *dns.Msg) *dns.Msg) {
	t.Helper()
	l, err := net.Listen("tcp4", netip.AddrPortFrom(loopback, port).String())
	if err != nil {
		t.Skip("tcp port not available:", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			go func() {
				co := &dns.Conn{Conn: c}
				defer co.Close()
				if req, err := co.ReadMsg(); err == nil {
					if resp := handle(req); resp != nil {
						_ = co.WriteMsg(resp)
					}
				}
			}()
		}
	}()
}

func answerWith(addr string) func(req *dns.Msg) *dns.Msg {
	return func(req *dns.Msg) *dns.Msg {
		resp := new(dns.Msg)
		resp.SetReply(req)
		resp.Answer = append(resp.Answer, &dns.A{
			Hdr: dns.RR_Header{Name: req.Question[0].Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 30},
			A:   net.ParseIP(addr),
		})
		return resp
	}
}

func testUpstream(port uint16) *NetUpstream {
	u := NewNetUpstream()
	u.DNSPort = port
	return u
}

func TestNetUpstreamUDP(t *testing.T) {
	t.Parallel()
	rd := make(chan bool, 2)
	port := serveUDP(t, func(req *dns.Msg) *dns.Msg {
		rd <- req.RecursionDesired
		return answerWith("192.0.2.44")(req)
	})
	u := testUpstream(port)
	for _, recursive := range []bool{false, true} {
		resp, err := u.Query(t.Context(), UpstreamRequest{
			Name:      "host.example",
			Type:      dns.TypeA,
			Server:    loopback,
			Timeout:   time.Second,
			Recursive: recursive,
		})
		if err != nil {
			t.Fatal(err)
		}
		if x := <-rd; x != recursive {
			t.Errorf("RD=%v, want %v", x, recursive)
		}
		addr, err := answerAddr(resp)
		if err != nil {
			t.Fatal(err)
		}
		if addr.String() != "192.0.2.44" {
			t.Error(addr)
		}
	}
}

func TestNetUpstreamIDMismatch(t *testing.T) {
	t.Parallel()
	port := serveUDP(t, func(req *dns.Msg) *dns.Msg {
		resp := answerWith("192.0.2.45")(req)
		resp.Id = req.Id + 1
		return resp
	})
	_, err := testUpstream(port).Query(t.Context(), UpstreamRequest{
		Name:    "host.example",
		Type:    dns.TypeA,
		Server:  loopback,
		Timeout: time.Second,
	})
	if !errors.Is(err, ErrIDMismatch) {
		t.Errorf("got %v", err)
	}
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("got %v", err)
	}
	var ue *UpstreamError
	if !errors.As(err, &ue) || ue.Network != "udp4" || ue.Server.Port() != port {
		t.Errorf("got %#v", ue)
	}
}

func TestNetUpstreamTimeout(t *testing.T) {
	t.Parallel()
	port := serveUDP(t, func(req *dns.Msg) *dns.Msg { return nil })
	start := time.Now()
	_, err := testUpstream(port).Query(t.Context(), UpstreamRequest{
		Name:    "host.example",
		Type:    dns.TypeA,
		Server:  loopback,
		Timeout: 50 * time.Millisecond,
	})
	if !errors.Is(err, ErrUpstreamTimeout) || !IsTimeout(err) {
		t.Errorf("got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout took %v", elapsed)
	}
}

func TestNetUpstreamTruncatedRetriesTCP(t *testing.T) {
	t.Parallel()
	port := serveUDP(t, func(req *dns.Msg) *dns.Msg {
		resp := new(dns.Msg)
		resp.SetReply(req)
		resp.Truncated = true
		return resp
	})
	serveTCP(t, port, answerWith("192.0.2.46"))
	resp, err := testUpstream(port).Query(t.Context(), UpstreamRequest{
		Name:    "big.example",
		Type:    dns.TypeA,
		Server:  loopback,
		Timeout: time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	addr, err := answerAddr(resp)
	if err != nil {
		t.Fatal(err)
	}
	if addr.String() != "192.0.2.46" {
		t.Error(addr)
	}
}

func TestNetUpstreamWithoutUDP(t *testing.T) {
	t.Parallel()
	port := serveUDP(t, answerWith("192.0.2.47"))
	serveTCP(t, port, answerWith("192.0.2.48"))
	u := testUpstream(port)
	u.useUDP = false
	resp, err := u.Query(t.Context(), UpstreamRequest{
		Name:    "host.example",
		Type:    dns.TypeA,
		Server:  loopback,
		Timeout: time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	addr, err := answerAddr(resp)
	if err != nil {
		t.Fatal(err)
	}
	if addr.String() != "192.0.2.48" {
		t.Error(addr)
	}
}

func TestNetUpstreamUnusableIPv6(t *testing.T) {
	t.Parallel()
	u := NewNetUpstream()
	u.useIPv6 = false
	_, err := u.Query(t.Context(), UpstreamRequest{
		Name:   "host.example",
		Type:   dns.TypeA,
		Server: netip.MustParseAddr("2001:db8::1"),
	})
	if !errors.Is(err, ErrNoTransport) {
		t.Errorf("got %v", err)
	}
}

func TestMaybeDisableIPv6(t *testing.T) {
	t.Parallel()
	u := NewNetUpstream()
	if u.maybeDisableIPv6(errors.New("connection refused")) {
		t.Error("disabled on unrelated error")
	}
	if !u.maybeDisableIPv6(&net.OpError{Op: "dial", Err: errors.New("connect: network is unreachable")}) {
		t.Error("not disabled")
	}
	if u.usable("tcp", netip.MustParseAddr("2001:db8::1")) {
		t.Error("IPv6 still usable")
	}
	if !u.usable("udp", loopback) {
		t.Error("IPv4 not usable")
	}
	if udp, ipv6 := u.Transports(); !udp || ipv6 {
		t.Errorf("udp=%v ipv6=%v", udp, ipv6)
	}
	if u.maybeDisableIPv6(&net.OpError{Op: "dial", Err: errors.New("connect: no route to host")}) {
		t.Error("disabled twice")
	}
}

func TestMaybeDisableUdp(t *testing.T) {
	t.Parallel()
	u := NewNetUpstream()
	timeout := &net.OpError{Op: "read", Err: stubNetError{timeout: true}}
	if u.maybeDisableUdp(timeout) {
		t.Error("disabled on timeout")
	}
	if !u.maybeDisableUdp(&net.OpError{Op: "dial", Net: "udp4", Err: errors.New("network not implemented")}) {
		t.Error("not disabled")
	}
	if u.usable("udp", loopback) {
		t.Error("UDP still usable")
	}
	if !u.usable("tcp", loopback) {
		t.Error("TCP not usable")
	}
}

func TestDeadline(t *testing.T) {
	t.Parallel()
	before := time.Now()
	if d := deadline(t.Context(), 0); d.Before(before.Add(DefaultTimeout)) {
		t.Errorf("zero timeout gave %v", d.Sub(before))
	}
	if d := deadline(t.Context(), -time.Second); d.Before(before.Add(DefaultTimeout)) {
		t.Errorf("negative timeout gave %v", d.Sub(before))
	}
}

func TestProbe(t *testing.T) {
	t.Parallel()
	l, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			_ = c.Close()
		}
	}()
	u := testUpstream(uint16(l.Addr().(*net.TCPAddr).Port))
	blackhole := netip.MustParseAddr("192.0.2.1")
	results := u.Probe(t.Context(), []netip.Addr{blackhole, loopback}, 500*time.Millisecond)
	if len(results) != 1 {
		t.Fatalf("got %v", results)
	}
	if results[0].Addr != loopback || !results[0].Reachable() || results[0].RTT <= 0 {
		t.Errorf("%+v", results[0])
	}
}
