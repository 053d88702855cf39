package wire

import (
	"errors"
	"strconv"
)

// ErrDecode matches every *DecodeError via errors.Is.
var ErrDecode = errors.New("wire: malformed message")

// ErrEncoding matches every *EncodingError via errors.Is.
var ErrEncoding = errors.New("wire: cannot encode message")

// DecodeError reports truncated or malformed input.
type DecodeError struct {
	Offset int    // position in the buffer where decoding failed
	Reason string // what was wrong there
}

func (e *DecodeError) Error() string {
	return "wire: " + e.Reason + " at offset " + strconv.Itoa(e.Offset)
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// EncodingError reports a message that cannot be put on the wire.
type EncodingError struct {
	Reason string
	Err    error // underlying cause, if any
}

func (e *EncodingError) Error() string {
	if e.Err != nil {
		return "wire: " + e.Reason + ": " + e.Err.Error()
	}
	return "wire: " + e.Reason
}

func (e *EncodingError) Is(target error) bool {
	return target == ErrEncoding
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

func decodeErr(off int, reason string) error {
	return &DecodeError{Offset: off, Reason: reason}
}
