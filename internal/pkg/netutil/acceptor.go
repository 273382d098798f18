package netutil

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/autopeer-io/printersim/internal/pkg/metrics"
	"github.com/autopeer-io/printersim/pkg/log"
)

const defaultHandshakeTimeout = 10 * time.Second

// Handler serves one connection after a successful handshake. It returns
// when the connection is done; the acceptor closes the socket afterwards.
// ctx carries a logger tagged with the remote address, see log.FromContext.
type Handler func(ctx context.Context, conn *tls.Conn)

// Acceptor runs a TLS accept loop with one goroutine per connection.
type Acceptor struct {
	// Name labels logs and metrics, e.g. "control".
	Name             string
	TLSConfig        *tls.Config
	HandshakeTimeout time.Duration
	Handler          Handler
	Logger           log.Logger

	tracker Tracker
	wg      sync.WaitGroup
}

// Serve accepts on ln until ctx is cancelled or ln fails. On return the
// listener and every connection it accepted are closed and all handlers
// have exited.
func (a *Acceptor) Serve(ctx context.Context, ln net.Listener) error {
	logger := a.Logger
	if logger == nil {
		logger = log.WithName(a.Name)
	}

	shutdown := func() {
		_ = ln.Close()
		a.tracker.CloseAll()
	}
	stop := context.AfterFunc(ctx, shutdown)
	defer func() {
		if stop() {
			shutdown()
		}
		a.wg.Wait()
	}()

	logger.Info("Listening", "addr", ln.Addr().String())

	var backoff time.Duration
	for {
		raw, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				backoff = min(max(2*backoff, 5*time.Millisecond), time.Second)
				logger.Warn("Accept failed, retrying", "error", err, "backoff", backoff)
				time.Sleep(backoff)
				continue
			}
			return err
		}
		backoff = 0

		if !a.tracker.Add(raw) {
			_ = raw.Close()
			continue
		}
		a.wg.Add(1)
		go a.serveConn(ctx, raw, logger)
	}
}

// Conns returns the number of open connections.
func (a *Acceptor) Conns() int { return a.tracker.Len() }

func (a *Acceptor) serveConn(ctx context.Context, raw net.Conn, logger log.Logger) {
	defer a.wg.Done()
	defer a.tracker.Remove(raw)
	defer raw.Close()

	logger = logger.WithValues("remote", raw.RemoteAddr().String())
	conn := tls.Server(raw, a.TLSConfig)
	if err := Handshake(ctx, conn, a.HandshakeTimeout); err != nil {
		metrics.TLSHandshakeFailuresTotal.WithLabelValues(a.Name).Inc()
		logger.Debug("TLS handshake failed", "error", err)
		return
	}
	a.Handler(log.IntoContext(ctx, logger), conn)
}

// Handshake runs the server handshake bounded by timeout.
func Handshake(ctx context.Context, conn *tls.Conn, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = defaultHandshakeTimeout
	}
	hctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := conn.HandshakeContext(hctx); err != nil {
		return &HandshakeError{Remote: conn.RemoteAddr().String(), Err: err}
	}
	return nil
}
