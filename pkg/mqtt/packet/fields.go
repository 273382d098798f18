package packet

import "encoding/binary"

// fieldReader walks a packet body. The first failure sticks and later reads
// return zero values.
type fieldReader struct {
	typ Type
	buf []byte
	off int
	err error
}

func newFieldReader(t Type, body []byte) *fieldReader {
	return &fieldReader{typ: t, buf: body}
}

func (r *fieldReader) fail(field string) {
	if r.err == nil {
		r.err = &DecodeError{Type: r.typ, Field: field, Err: ErrShortBody}
	}
}

func (r *fieldReader) remaining() int { return len(r.buf) - r.off }

func (r *fieldReader) byte(field string) byte {
	if r.err != nil || r.remaining() < 1 {
		r.fail(field)
		return 0
	}
	b := r.buf[r.off]
	r.off++
	return b
}

func (r *fieldReader) uint16(field string) uint16 {
	if r.err != nil || r.remaining() < 2 {
		r.fail(field)
		return 0
	}
	v := binary.BigEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v
}

// bytes reads a two-byte length followed by that many bytes.
func (r *fieldReader) bytes(field string) []byte {
	n := int(r.uint16(field))
	if r.err != nil || r.remaining() < n {
		r.fail(field)
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *fieldReader) string(field string) string {
	return string(r.bytes(field))
}

func (r *fieldReader) rest() []byte {
	if r.err != nil {
		return nil
	}
	b := r.buf[r.off:]
	r.off = len(r.buf)
	return b
}

func appendUint16(dst []byte, v uint16) []byte {
	return binary.BigEndian.AppendUint16(dst, v)
}

func appendBytes(dst, b []byte) []byte {
	dst = appendUint16(dst, uint16(len(b)))
	return append(dst, b...)
}

func appendString(dst []byte, s string) []byte {
	dst = appendUint16(dst, uint16(len(s)))
	return append(dst, s...)
}

// frame prefixes body with a fixed header.
func frame(t Type, flags byte, body []byte) []byte {
	h := FixedHeader{Type: t, Flags: flags, RemainingLength: len(body)}
	out := make([]byte, 0, len(body)+1+maxLengthBytes)
	out = h.appendTo(out)
	return append(out, body...)
}
