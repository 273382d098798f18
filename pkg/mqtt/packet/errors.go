package packet

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedLength is returned when the remaining length needs more than four bytes.
	ErrMalformedLength = errors.New("malformed remaining length")

	// ErrPacketTooLarge is returned when a body exceeds the reader limit.
	ErrPacketTooLarge = errors.New("packet exceeds maximum size")

	// ErrShortBody is returned when a field runs past the end of the body.
	ErrShortBody = errors.New("body too short")

	// ErrInvalidQoS is returned for the reserved QoS value 3.
	ErrInvalidQoS = errors.New("invalid qos")
)

// DecodeError reports a packet that could not be decoded.
type DecodeError struct {
	Type  Type
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s %s: %v", e.Type, e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsDecodeError reports whether err is or wraps a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
