package wire

import "fmt"

// Pack encodes m, compressing every name against the names written
// before it. Authority and additional sections are not carried, so their
// counts must be zero.
func (m *Message) Pack() ([]byte, error) {
	switch {
	case int(m.QDCount) != len(m.Questions):
		return nil, &EncodingError{Reason: fmt.Sprintf("question count %d, have %d questions", m.QDCount, len(m.Questions))}
	case int(m.ANCount) != len(m.Answers):
		return nil, &EncodingError{Reason: fmt.Sprintf("answer count %d, have %d answers", m.ANCount, len(m.Answers))}
	case m.NSCount != 0 || m.ARCount != 0:
		return nil, &EncodingError{Reason: "authority and additional sections are not supported"}
	}

	var err error
	seen := make(map[string]int)
	b := m.Header.append(make([]byte, 0, MaxUDPSize))
	for _, q := range m.Questions {
		if b, err = appendCompressedName(b, q.Name, seen); err != nil {
			return nil, err
		}
		b = append(b, byte(q.Type>>8), byte(q.Type), byte(q.Class>>8), byte(q.Class))
	}
	for _, a := range m.Answers {
		if len(a.Data) > 0xFFFF {
			return nil, &EncodingError{Reason: fmt.Sprintf("record data too long: %d bytes", len(a.Data))}
		}
		if b, err = appendCompressedName(b, a.Name, seen); err != nil {
			return nil, err
		}
		b = appendRecordFields(b, a)
	}
	return b, nil
}
