package stream

import (
	"math/rand/v2"
	"strconv"
)

// jfifHeader is SOI followed by a minimal APP0 segment.
var jfifHeader = []byte{
	0xFF, 0xD8,
	0xFF, 0xE0, 0x00, 0x10,
	'J', 'F', 'I', 'F', 0x00,
	0x01, 0x01,
	0x00,
	0x00, 0x01, 0x00, 0x01,
	0x00, 0x00,
}

var eoi = []byte{0xFF, 0xD9}

// Boundary separates the parts of the multipart stream.
const Boundary = "frame"

// ResponseHeader opens the stream.
const ResponseHeader = "HTTP/1.1 200 OK\r\n" +
	"Content-Type: multipart/x-mixed-replace; boundary=" + Boundary + "\r\n" +
	"Cache-Control: no-cache\r\n" +
	"Connection: close\r\n" +
	"\r\n"

// frameGenerator builds placeholder JPEG frames. It is not safe for
// concurrent use; each connection owns one.
type frameGenerator struct {
	size int
	rng  *rand.Rand
	buf  []byte
}

func newFrameGenerator(size int, seed uint64) *frameGenerator {
	return &frameGenerator{size: size, rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// next returns one multipart part: boundary, part headers, image and CRLF.
// The returned slice is reused by the following call.
func (g *frameGenerator) next() []byte {
	imageLen := len(jfifHeader) + g.size + len(eoi)

	b := g.buf[:0]
	b = append(b, "--"+Boundary+"\r\nContent-Type: image/jpeg\r\nContent-Length: "...)
	b = strconv.AppendInt(b, int64(imageLen), 10)
	b = append(b, "\r\n\r\n"...)
	b = append(b, jfifHeader...)
	for range g.size {
		b = append(b, byte(g.rng.Uint32()))
	}
	b = append(b, eoi...)
	b = append(b, "\r\n"...)

	g.buf = b
	return b
}
