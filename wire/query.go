package wire

import (
	"encoding/binary"
	"math/rand/v2"
)

// EncodeQuery builds a standard query for name with a random transaction
// ID, all flags clear and a single question.
func EncodeQuery(name string, qtype, qclass uint16) ([]byte, error) {
	return AppendQuery(make([]byte, 0, MaxUDPSize), uint16(rand.Uint32()), name, qtype, qclass)
}

// AppendQuery appends a query with the given ID to b.
func AppendQuery(b []byte, id uint16, name string, qtype, qclass uint16) ([]byte, error) {
	b = Header{ID: id, QDCount: 1}.append(b)
	b, err := appendName(b, name)
	if err != nil {
		return nil, err
	}
	b = binary.BigEndian.AppendUint16(b, qtype)
	return binary.BigEndian.AppendUint16(b, qclass), nil
}

// DecodeQuery parses the header and question section of b. Answer,
// authority and additional sections are not read.
func DecodeQuery(b []byte) (*Message, error) {
	if len(b) < HeaderSize {
		return nil, decodeErr(len(b), "message shorter than header")
	}
	msg := &Message{}
	msg.Header.unpack(b)
	if msg.QDCount == 0 {
		return nil, decodeErr(4, "no question")
	}
	msg.Questions = make([]Question, 0, min(int(msg.QDCount), 4))
	off := HeaderSize
	for i := 0; i < int(msg.QDCount); i++ {
		q, next, err := decodeQuestion(b, off)
		if err != nil {
			return nil, err
		}
		msg.Questions = append(msg.Questions, q)
		off = next
	}
	return msg, nil
}

func decodeQuestion(b []byte, off int) (q Question, next int, err error) {
	if q.Name, next, err = DecodeName(b, off); err == nil {
		if next+4 > len(b) {
			return Question{}, 0, decodeErr(next, "truncated question")
		}
		q.Type = binary.BigEndian.Uint16(b[next:])
		q.Class = binary.BigEndian.Uint16(b[next+2:])
		next += 4
	}
	return
}
