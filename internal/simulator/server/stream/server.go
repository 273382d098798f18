// Package stream serves the synthetic camera feed: an endless
// multipart/x-mixed-replace sequence of placeholder JPEG frames over TLS.
package stream

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/autopeer-io/printersim/internal/pkg/metrics"
	"github.com/autopeer-io/printersim/internal/pkg/netutil"
	"github.com/autopeer-io/printersim/pkg/log"
	"github.com/autopeer-io/printersim/pkg/options"
)

type Server struct {
	opts     *options.StreamOptions
	acceptor *netutil.Acceptor
	seq      atomic.Uint64
	ready    atomic.Bool
	log      log.Logger
}

func NewServer(opts *options.StreamOptions, tlsConfig *tls.Config, handshakeTimeout time.Duration) *Server {
	s := &Server{opts: opts, log: log.WithName("stream")}
	s.acceptor = &netutil.Acceptor{
		Name:             "stream",
		TLSConfig:        tlsConfig,
		HandshakeTimeout: handshakeTimeout,
		Handler:          s.handleConn,
		Logger:           s.log,
	}
	return s
}

// Start listens on the configured address and streams until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("stream listen on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.ready.Store(true)
	defer s.ready.Store(false)
	return s.acceptor.Serve(ctx, ln)
}

func (s *Server) Ready() bool { return s.ready.Load() }

func (s *Server) handleConn(ctx context.Context, conn *tls.Conn) {
	metrics.StreamClients.Inc()
	defer metrics.StreamClients.Dec()

	logger := log.FromContext(ctx)
	logger.Info("Camera client connected")

	err := s.stream(ctx, conn)
	if err != nil && !netutil.IsClosed(err) && ctx.Err() == nil {
		logger.Warn("Camera stream ended", "error", err)
		return
	}
	logger.Info("Camera client disconnected")
}

func (s *Server) stream(ctx context.Context, conn net.Conn) error {
	if err := s.write(conn, []byte(ResponseHeader)); err != nil {
		return err
	}

	limiter := rate.NewLimiter(rate.Limit(s.opts.FrameRate), 1)
	gen := newFrameGenerator(s.opts.FrameSize, s.seq.Add(1))
	for {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		if err := s.write(conn, gen.next()); err != nil {
			return err
		}
		metrics.StreamFramesTotal.Inc()
	}
}

func (s *Server) write(conn net.Conn, b []byte) error {
	if s.opts.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
	}
	if _, err := conn.Write(b); err != nil {
		return &netutil.ConnError{Op: "write", Remote: conn.RemoteAddr().String(), Err: err}
	}
	return nil
}
