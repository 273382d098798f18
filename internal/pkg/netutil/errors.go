// Package netutil holds the accept loop and connection bookkeeping shared
// by the TLS listeners.
package netutil

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// ConnError is an I/O failure that ends a connection.
type ConnError struct {
	Op     string
	Remote string
	Err    error
}

func (e *ConnError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Remote, e.Err)
}

func (e *ConnError) Unwrap() error { return e.Err }

// HandshakeError is a failed TLS handshake. Only that connection is affected.
type HandshakeError struct {
	Remote string
	Err    error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("tls handshake with %s: %v", e.Remote, e.Err)
}

func (e *HandshakeError) Unwrap() error { return e.Err }

// IsClosed reports whether err is the ordinary end of a connection: the peer
// went away or the socket was closed locally.
func IsClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}
