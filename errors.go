package resolver

import (
	"context"
	"errors"
	"io"
	"net"
	"net/netip"
	"os"

	"github.com/LOOK4869/DNS-Resolver/wire"
	"github.com/miekg/dns"
)

var (
	// ErrUpstream matches every *UpstreamError.
	ErrUpstream = errors.New("upstream query failed")
	// ErrUpstreamTimeout matches an *UpstreamError caused by a timeout.
	ErrUpstreamTimeout = errors.New("upstream query timed out")
	// ErrIDMismatch is returned when a reply does not carry the query's ID.
	ErrIDMismatch = errors.New("reply ID does not match query")
	// ErrNoTransport is returned when neither UDP nor TCP can reach a server.
	ErrNoTransport = errors.New("no usable transport")
	// ErrNoAnswer is returned when a reply holds no A record.
	ErrNoAnswer = errors.New("reply holds no address record")
)

// UpstreamError reports a failed attempt against one server.
type UpstreamError struct {
	Network string
	Server  netip.AddrPort
	Err     error
}

func (e *UpstreamError) Error() string {
	return "upstream " + e.Network + " @" + e.Server.String() + ": " + e.Err.Error()
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream || (target == ErrUpstreamTimeout && isTimeout(e.Err))
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is, or wraps, a timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrUpstreamTimeout) || isTimeout(err)
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.Is(err, os.ErrDeadlineExceeded) ||
		errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &ne) && ne.Timeout())
}

var errorsToCodes = []struct {
	sample error
	code   uint16
}{
	{ErrNoAnswer, dns.ExtendedErrorCodeNoReachableAuthority},
	{ErrIDMismatch, dns.ExtendedErrorCodeInvalidData},
	{ErrNoTransport, dns.ExtendedErrorCodeNetworkError},
	{wire.ErrDecode, dns.ExtendedErrorCodeInvalidData},
	{wire.ErrEncoding, dns.ExtendedErrorCodeInvalidData},
	{dns.ErrShortRead, dns.ExtendedErrorCodeInvalidData},
	{io.ErrNoProgress, dns.ExtendedErrorCodeNotReady},
	{os.ErrPermission, dns.ExtendedErrorCodeProhibited},
	{os.ErrDeadlineExceeded, dns.ExtendedErrorCodeNoReachableAuthority},
	{context.DeadlineExceeded, dns.ExtendedErrorCodeNoReachableAuthority},
	{net.ErrClosed, dns.ExtendedErrorCodeNetworkError},
	{io.ErrClosedPipe, dns.ExtendedErrorCodeNetworkError},
	{os.ErrInvalid, dns.ExtendedErrorCodeInvalidData},
	{io.ErrShortBuffer, dns.ExtendedErrorCodeInvalidData},
	{io.ErrUnexpectedEOF, dns.ExtendedErrorCodeInvalidData},
}

// ExtendedErrorCode maps err to the closest DNS Extended Error code (RFC 8914).
// It understands the resolver's own errors, the wire codec's errors and
// well-known errors from the os, io and net packages, and returns
// dns.ExtendedErrorCodeOther if no mapping is known.
func ExtendedErrorCode(err error) (code uint16) {
	code = dns.ExtendedErrorCodeOther
	if err != nil {
		for _, m := range errorsToCodes {
			if errors.Is(err, m.sample) {
				return m.code
			}
		}

		var unknownNet net.UnknownNetworkError
		if errors.As(err, &unknownNet) {
			return dns.ExtendedErrorCodeNetworkError
		}
		var addrErr *net.AddrError
		if errors.As(err, &addrErr) {
			return dns.ExtendedErrorCodeInvalidData
		}
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) {
			switch {
			case dnsErr.IsTimeout, dnsErr.IsNotFound:
				return dns.ExtendedErrorCodeNoReachableAuthority
			case dnsErr.IsTemporary:
				return dns.ExtendedErrorCodeNotReady
			default:
				return dns.ExtendedErrorCodeNetworkError
			}
		}

		var netErr net.Error
		if errors.As(err, &netErr) {
			if netErr.Timeout() {
				return dns.ExtendedErrorCodeNoReachableAuthority
			}
			return dns.ExtendedErrorCodeNetworkError
		}
	}
	return
}

// ExtendedErrorText returns the RFC 8914 name of ExtendedErrorCode(err).
func ExtendedErrorText(err error) string {
	return dns.ExtendedErrorCodeToString[ExtendedErrorCode(err)]
}
