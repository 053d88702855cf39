package resolver

import (
	"errors"
	"net"
	"net/netip"
	"strings"
	"syscall"
)

// Transports reports whether UDP and IPv6 are still in use. Each is
// switched off for good by the first error showing the host lacks it.
func (u *NetUpstream) Transports() (udp, ipv6 bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.useUDP, u.useIPv6
}

func (u *NetUpstream) usable(network string, addr netip.Addr) bool {
	udp, ipv6 := u.Transports()
	if strings.HasPrefix(network, "udp") && !udp {
		return false
	}
	return addr.Is4() || ipv6
}

func (u *NetUpstream) maybeDisableIPv6(err error) bool {
	return err != nil && unreachable(err) && u.disable(&u.useIPv6)
}

func (u *NetUpstream) maybeDisableUdp(err error) bool {
	return err != nil && unsupported(err) && u.disable(&u.useUDP)
}

// disable clears flag and reports whether it was set.
func (u *NetUpstream) disable(flag *bool) (was bool) {
	u.mu.Lock()
	was, *flag = *flag, false
	u.mu.Unlock()
	return
}

func unreachable(err error) bool {
	if errors.Is(err, syscall.ENETUNREACH) || errors.Is(err, syscall.EHOSTUNREACH) {
		return true
	}
	errstr := err.Error()
	return strings.Contains(errstr, "network is unreachable") || strings.Contains(errstr, "no route to host")
}

func unsupported(err error) bool {
	var ne net.Error
	if !errors.As(err, &ne) || ne.Timeout() {
		return false
	}
	return errors.Is(err, syscall.ENOSYS) || errors.Is(err, syscall.EPROTONOSUPPORT) ||
		strings.Contains(err.Error(), "network not implemented")
}
