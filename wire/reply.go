package wire

import (
	"encoding/binary"
	"fmt"
	"net/netip"
)

// EncodeReply answers query. The transaction ID and the first question are
// copied from query unchanged, the flags word is ReplyFlags, and each answer
// refers to the question name through a pointer instead of repeating it.
// The answers' Name fields are therefore ignored.
func EncodeReply(query []byte, answers []Answer) ([]byte, error) {
	_, end, err := decodeQuestion(query, HeaderSize)
	if err != nil {
		return nil, &EncodingError{Reason: "query holds no parseable question", Err: err}
	}
	if len(answers) > 0xFFFF {
		return nil, &EncodingError{Reason: fmt.Sprintf("too many answers: %d", len(answers))}
	}
	size := end
	for _, a := range answers {
		if len(a.Data) > 0xFFFF {
			return nil, &EncodingError{Reason: fmt.Sprintf("record data too long: %d bytes", len(a.Data))}
		}
		size += 12 + len(a.Data)
	}

	b := make([]byte, 0, size)
	b = Header{
		ID:      binary.BigEndian.Uint16(query),
		Flags:   ReplyFlags,
		QDCount: 1,
		ANCount: uint16(len(answers)),
	}.append(b)
	b = append(b, query[HeaderSize:end]...)
	for _, a := range answers {
		b = binary.BigEndian.AppendUint16(b, questionPointer)
		b = appendRecordFields(b, a)
	}
	return b, nil
}

func appendRecordFields(b []byte, a Answer) []byte {
	b = binary.BigEndian.AppendUint16(b, a.Type)
	b = binary.BigEndian.AppendUint16(b, a.Class)
	b = binary.BigEndian.AppendUint32(b, a.TTL)
	b = binary.BigEndian.AppendUint16(b, uint16(len(a.Data)))
	return append(b, a.Data...)
}

// ARecord returns an Internet-class A answer holding addr.
func ARecord(addr netip.Addr, ttl uint32) (Answer, error) {
	addr = addr.Unmap()
	if !addr.Is4() {
		return Answer{}, &EncodingError{Reason: fmt.Sprintf("not an IPv4 address: %v", addr)}
	}
	a4 := addr.As4()
	return Answer{Type: TypeA, Class: ClassINET, TTL: ttl, Data: a4[:]}, nil
}
