// Package wire implements the part of the RFC 1035 message format the
// resolver speaks: query encoding and decoding, A-record replies and
// domain-name label compression.
//
// All multi-byte fields are big-endian. A message starts with a 12-byte
// header followed by the question and answer sections:
//
//	[ID:16][FLAGS:16][QDCOUNT:16][ANCOUNT:16][NSCOUNT:16][ARCOUNT:16]
//	question = name [QTYPE:16][QCLASS:16]
//	answer   = name-or-pointer [TYPE:16][CLASS:16][TTL:32][RDLENGTH:16][RDATA]
package wire

import "encoding/binary"

const (
	HeaderSize  = 12  // fixed header length
	MaxLabelLen = 63  // longest label a length octet may announce
	MaxNameLen  = 255 // longest encoded domain name, terminator included
	MaxUDPSize  = 512 // classic datagram limit, no EDNS0
)

const (
	TypeA     uint16 = 1   // IPv4 address
	TypeANY   uint16 = 255 // any record type
	ClassINET uint16 = 1   // Internet
)

// Header flag bits.
const (
	FlagQR uint16 = 1 << 15 // response
	FlagAA uint16 = 1 << 10 // authoritative answer
	FlagTC uint16 = 1 << 9  // truncated
	FlagRD uint16 = 1 << 8  // recursion desired
	FlagRA uint16 = 1 << 7  // recursion available

	// ReplyFlags is the fixed flags word of every reply: response,
	// recursion desired and available, no error.
	ReplyFlags = FlagQR | FlagRD | FlagRA
)

const (
	pointerMask  = 0xC0
	pointerLimit = 0x3FFF

	// questionPointer refers to the first question name, which always
	// starts right after the header.
	questionPointer = 0xC000 | HeaderSize
)

// Header is the fixed 12-byte message header.
type Header struct {
	ID      uint16
	Flags   uint16
	QDCount uint16
	ANCount uint16
	NSCount uint16
	ARCount uint16
}

// Response reports whether the QR bit is set.
func (h Header) Response() bool {
	return h.Flags&FlagQR != 0
}

// Truncated reports whether the TC bit is set.
func (h Header) Truncated() bool {
	return h.Flags&FlagTC != 0
}

func (h *Header) unpack(b []byte) {
	h.ID = binary.BigEndian.Uint16(b[0:2])
	h.Flags = binary.BigEndian.Uint16(b[2:4])
	h.QDCount = binary.BigEndian.Uint16(b[4:6])
	h.ANCount = binary.BigEndian.Uint16(b[6:8])
	h.NSCount = binary.BigEndian.Uint16(b[8:10])
	h.ARCount = binary.BigEndian.Uint16(b[10:12])
}

func (h Header) append(b []byte) []byte {
	b = binary.BigEndian.AppendUint16(b, h.ID)
	b = binary.BigEndian.AppendUint16(b, h.Flags)
	b = binary.BigEndian.AppendUint16(b, h.QDCount)
	b = binary.BigEndian.AppendUint16(b, h.ANCount)
	b = binary.BigEndian.AppendUint16(b, h.NSCount)
	return binary.BigEndian.AppendUint16(b, h.ARCount)
}

// Question is a single entry of the question section. Name holds the
// labels joined by '.', case preserved, without a trailing dot.
type Question struct {
	Name  string
	Type  uint16
	Class uint16
}

// Answer is a resource record of the answer section.
type Answer struct {
	Name  string
	Type  uint16
	Class uint16
	TTL   uint32 // seconds
	Data  []byte
}

// Message is a decoded DNS message. When encoding, each count in the
// header must equal the length of its section.
type Message struct {
	Header
	Questions []Question
	Answers   []Answer
}
