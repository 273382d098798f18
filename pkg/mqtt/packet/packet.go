// Package packet implements the subset of MQTT 3.1.1 framing spoken by
// printers on their control port: CONNECT/CONNACK, PUBLISH/PUBACK,
// SUBSCRIBE/SUBACK, PINGREQ/PINGRESP and DISCONNECT.
package packet

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// Type is the control packet type carried in the high nibble of the first byte.
type Type byte

const (
	TypeConnect     Type = 1
	TypeConnack     Type = 2
	TypePublish     Type = 3
	TypePuback      Type = 4
	TypeSubscribe   Type = 8
	TypeSuback      Type = 9
	TypeUnsubscribe Type = 10
	TypeUnsuback    Type = 11
	TypePingreq     Type = 12
	TypePingresp    Type = 13
	TypeDisconnect  Type = 14
)

var typeNames = map[Type]string{
	TypeConnect:     "CONNECT",
	TypeConnack:     "CONNACK",
	TypePublish:     "PUBLISH",
	TypePuback:      "PUBACK",
	TypeSubscribe:   "SUBSCRIBE",
	TypeSuback:      "SUBACK",
	TypeUnsubscribe: "UNSUBSCRIBE",
	TypeUnsuback:    "UNSUBACK",
	TypePingreq:     "PINGREQ",
	TypePingresp:    "PINGRESP",
	TypeDisconnect:  "DISCONNECT",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TYPE(%d)", byte(t))
}

// MaxRemainingLength is the largest value four length bytes can carry.
const MaxRemainingLength = 268_435_455

// maxLengthBytes bounds the variable length encoding.
const maxLengthBytes = 4

// FixedHeader is the first part of every control packet.
type FixedHeader struct {
	Type            Type
	Flags           byte
	RemainingLength int
}

func (h FixedHeader) String() string {
	return fmt.Sprintf("%s flags=0x%x len=%d", h.Type, h.Flags, h.RemainingLength)
}

// appendTo writes the header byte and the base-128 remaining length.
func (h FixedHeader) appendTo(dst []byte) []byte {
	dst = append(dst, byte(h.Type)<<4|h.Flags&0x0F)
	return AppendRemainingLength(dst, h.RemainingLength)
}

// AppendRemainingLength appends n as a variable byte integer:
// seven data bits per byte, high bit set while more bytes follow.
func AppendRemainingLength(dst []byte, n int) []byte {
	for {
		b := byte(n % 128)
		n /= 128
		if n > 0 {
			b |= 0x80
		}
		dst = append(dst, b)
		if n == 0 {
			return dst
		}
	}
}

// ReadFixedHeader reads a packet type, flags and remaining length from r.
// A clean end of stream before the first byte yields io.EOF.
func ReadFixedHeader(r io.ByteReader) (FixedHeader, error) {
	first, err := r.ReadByte()
	if err != nil {
		return FixedHeader{}, err
	}

	h := FixedHeader{Type: Type(first >> 4), Flags: first & 0x0F}

	multiplier := 1
	for i := 0; ; i++ {
		if i == maxLengthBytes {
			return h, &DecodeError{Type: h.Type, Field: "remaining length", Err: ErrMalformedLength}
		}
		b, err := r.ReadByte()
		if err != nil {
			return h, &DecodeError{Type: h.Type, Field: "remaining length", Err: unexpected(err)}
		}
		h.RemainingLength += int(b&0x7F) * multiplier
		if b&0x80 == 0 {
			return h, nil
		}
		multiplier *= 128
	}
}

// Reader reads whole control packets from a stream.
type Reader struct {
	r       *bufio.Reader
	maxSize int
}

// NewReader returns a Reader that rejects bodies larger than maxSize bytes.
// maxSize <= 0 only applies the protocol limit.
func NewReader(r io.Reader, maxSize int) *Reader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	if maxSize <= 0 || maxSize > MaxRemainingLength {
		maxSize = MaxRemainingLength
	}
	return &Reader{r: br, maxSize: maxSize}
}

// ReadPacket returns the next fixed header and its complete body.
// io.EOF means the peer closed cleanly between packets; every other error
// leaves the stream out of sync and the connection should be closed.
func (r *Reader) ReadPacket() (FixedHeader, []byte, error) {
	h, err := ReadFixedHeader(r.r)
	if err != nil {
		return h, nil, err
	}
	if h.RemainingLength > r.maxSize {
		return h, nil, &DecodeError{Type: h.Type, Field: "remaining length", Err: ErrPacketTooLarge}
	}

	body := make([]byte, h.RemainingLength)
	if _, err := io.ReadFull(r.r, body); err != nil {
		return h, nil, &DecodeError{Type: h.Type, Field: "body", Err: unexpected(err)}
	}
	return h, body, nil
}

func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
