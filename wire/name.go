package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// DecodeName reads the domain name starting at off and returns it with
// the offset of the first byte after it.
//
// A compression pointer ends the name; it consumes two bytes at the
// position where it is found and decoding continues at its target. Every
// pointer must refer to a position before the label run it terminates and
// after the header, so the targets strictly decrease and decoding always
// ends. Labels containing a dot are rejected since the dotted form of the
// name could not tell them apart from a label boundary.
func DecodeName(b []byte, off int) (name string, next int, err error) {
	var buf []byte
	next = -1
	start := off
	wireLen := 1
	for {
		if off < 0 || off >= len(b) {
			return "", 0, decodeErr(off, "name out of bounds")
		}
		l := int(b[off])
		switch l & pointerMask {
		case 0x00:
			if l == 0 {
				if next < 0 {
					next = off + 1
				}
				return string(buf), next, nil
			}
			if off+1+l > len(b) {
				return "", 0, decodeErr(off, "label out of bounds")
			}
			if wireLen += 1 + l; wireLen > MaxNameLen {
				return "", 0, decodeErr(off, "name too long")
			}
			label := b[off+1 : off+1+l]
			if bytes.IndexByte(label, '.') >= 0 {
				return "", 0, decodeErr(off, "label contains a dot")
			}
			if len(buf) > 0 {
				buf = append(buf, '.')
			}
			buf = append(buf, label...)
			off += 1 + l
		case pointerMask:
			if off+2 > len(b) {
				return "", 0, decodeErr(off, "truncated compression pointer")
			}
			ptr := int(binary.BigEndian.Uint16(b[off:]) & pointerLimit)
			if ptr >= start {
				return "", 0, decodeErr(off, "compression pointer does not point backward")
			}
			if ptr < HeaderSize {
				return "", 0, decodeErr(off, "compression pointer into header")
			}
			if next < 0 {
				next = off + 2
			}
			off, start = ptr, ptr
		default:
			return "", 0, decodeErr(off, fmt.Sprintf("reserved label type 0x%02x", l&pointerMask))
		}
	}
}

// splitLabels returns the non-empty labels of name, so "example.com." and
// "example.com" encode the same.
func splitLabels(name string) (labels []string, err error) {
	wireLen := 1
	for _, label := range strings.Split(name, ".") {
		if label == "" {
			continue
		}
		if len(label) > MaxLabelLen {
			return nil, &EncodingError{Reason: fmt.Sprintf("label too long (%d > %d): %q", len(label), MaxLabelLen, label)}
		}
		if wireLen += 1 + len(label); wireLen > MaxNameLen {
			return nil, &EncodingError{Reason: fmt.Sprintf("name too long: %q", name)}
		}
		labels = append(labels, label)
	}
	return
}

func appendLabels(b []byte, labels []string) []byte {
	for _, label := range labels {
		b = append(b, byte(len(label)))
		b = append(b, label...)
	}
	return append(b, 0)
}

// appendName writes name as literal length-prefixed labels.
func appendName(b []byte, name string) ([]byte, error) {
	labels, err := splitLabels(name)
	if err != nil {
		return nil, err
	}
	return appendLabels(b, labels), nil
}

// appendCompressedName writes name, replacing the longest suffix already
// present in seen by a pointer. Offsets of the suffixes written here are
// added to seen. Suffixes are matched case-sensitively so decoding gives
// back the exact name.
func appendCompressedName(b []byte, name string, seen map[string]int) ([]byte, error) {
	labels, err := splitLabels(name)
	if err != nil {
		return nil, err
	}
	for i := range labels {
		suffix := strings.Join(labels[i:], ".")
		if off, ok := seen[suffix]; ok {
			return binary.BigEndian.AppendUint16(b, uint16(0xC000|off)), nil
		}
		if len(b) <= pointerLimit {
			seen[suffix] = len(b)
		}
		b = append(b, byte(len(labels[i])))
		b = append(b, labels[i]...)
	}
	return append(b, 0), nil
}
