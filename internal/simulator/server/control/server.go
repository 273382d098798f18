// Package control serves the printer's MQTT-framed control protocol over TLS.
//
// It is not a broker: PUBLISH bodies sent by a client are commands for the
// simulated printer, and everything the printer says goes back on the
// device's report topic.
package control

import (
	"context"
	"crypto/subtle"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/autopeer-io/printersim/internal/pkg/metrics"
	"github.com/autopeer-io/printersim/internal/pkg/netutil"
	"github.com/autopeer-io/printersim/internal/simulator/command"
	"github.com/autopeer-io/printersim/internal/simulator/printer"
	"github.com/autopeer-io/printersim/pkg/log"
	"github.com/autopeer-io/printersim/pkg/mqtt/packet"
	"github.com/autopeer-io/printersim/pkg/mqtt/topic"
	"github.com/autopeer-io/printersim/pkg/options"
)

// maxPacketSize bounds a single control packet body.
const maxPacketSize = 1 << 20

// ErrNotAuthorized is the reason a CONNECT was refused.
var ErrNotAuthorized = errors.New("not authorized")

var errDisconnect = errors.New("client sent DISCONNECT")

// Printer is what the control server needs from the simulated device.
type Printer interface {
	command.Printer
	Tick(ctx context.Context) (*printer.Record, error)
}

// Server accepts control connections and runs one worker per connection.
type Server struct {
	opts       *options.ControlOptions
	printer    Printer
	dispatcher *command.Dispatcher
	registry   *Registry
	acceptor   *netutil.Acceptor

	requestTopic string
	reportTopic  string

	ready atomic.Bool
	log   log.Logger
}

// NewServer creates a control server. tlsConfig must carry a server certificate.
func NewServer(opts *options.ControlOptions, tlsConfig *tls.Config, p Printer) *Server {
	logger := log.WithName("control")
	topics := topic.NewTopicBuilder(opts.TopicRoot)

	s := &Server{
		opts:         opts,
		printer:      p,
		dispatcher:   command.NewDispatcher(p, logger.WithName("command")),
		registry:     NewRegistry(),
		requestTopic: topics.Request(opts.Serial),
		reportTopic:  topics.Report(opts.Serial),
		log:          logger,
	}
	s.acceptor = &netutil.Acceptor{
		Name:             "control",
		TLSConfig:        tlsConfig,
		HandshakeTimeout: opts.HandshakeTimeout,
		Handler:          s.handleConn,
		Logger:           logger,
	}
	return s
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("control listen on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.ready.Store(true)
	defer s.ready.Store(false)
	return s.acceptor.Serve(ctx, ln)
}

// Ready reports whether the listener is accepting connections.
func (s *Server) Ready() bool { return s.ready.Load() }

// Registry returns the live sessions.
func (s *Server) Registry() *Registry { return s.registry }

func (s *Server) handleConn(ctx context.Context, conn *tls.Conn) {
	sess := newSession(conn, s.opts.WriteTimeout)
	s.registry.Add(sess)
	defer s.registry.Remove(sess)

	logger := log.FromContext(ctx).WithValues("session", sess.ID)
	ctx = log.IntoContext(ctx, logger)
	logger.Info("Client connected")

	r := packet.NewReader(conn, maxPacketSize)
	for {
		h, body, err := r.ReadPacket()
		if err != nil {
			if netutil.IsClosed(err) || ctx.Err() != nil {
				logger.Info("Client disconnected")
			} else {
				logger.Warn("Closing connection", "error", err)
			}
			return
		}
		metrics.PacketsReceivedTotal.WithLabelValues(h.Type.String()).Inc()

		err = s.handlePacket(ctx, sess, h, body)
		switch {
		case err == nil:
		case errors.Is(err, errDisconnect):
			logger.Info("Client disconnected", "reason", err.Error())
			return
		case packet.IsDecodeError(err):
			logger.Warn("Dropping malformed packet", "packet", h.String(), "error", err)
		default:
			logger.Warn("Closing connection", "error", err)
			return
		}
	}
}

func (s *Server) handlePacket(ctx context.Context, sess *Session, h packet.FixedHeader, body []byte) error {
	switch h.Type {
	case packet.TypeConnect:
		p, err := packet.DecodeConnect(body)
		if err != nil {
			return err
		}
		return s.handleConnect(ctx, sess, p)

	case packet.TypePublish:
		p, err := packet.DecodePublish(h.Flags, body)
		if err != nil {
			return err
		}
		if !sess.Authenticated() {
			log.FromContext(ctx).Debug("Ignoring PUBLISH from unauthenticated session")
			return nil
		}
		return s.handlePublish(ctx, sess, p)

	case packet.TypeSubscribe:
		p, err := packet.DecodeSubscribe(body)
		if err != nil {
			return err
		}
		if !sess.Authenticated() {
			log.FromContext(ctx).Debug("Ignoring SUBSCRIBE from unauthenticated session")
			return nil
		}
		for _, sub := range p.Subscriptions {
			log.FromContext(ctx).Debug("Subscribe", "topic", sub.Topic, "qos", sub.QoS)
		}
		return sess.Write(p.Grant().Encode())

	case packet.TypePingreq:
		return sess.Write(packet.Pingresp())

	case packet.TypeDisconnect:
		return errDisconnect
	}

	log.FromContext(ctx).Debug("Ignoring unsupported packet", "packet", h.String())
	return nil
}

// handleConnect authenticates the session. A refused CONNECT leaves the
// connection open so the client may retry.
func (s *Server) handleConnect(ctx context.Context, sess *Session, p *packet.ConnectPacket) error {
	sess.clientID = p.ClientID
	logger := log.FromContext(ctx).WithValues("clientID", p.ClientID)

	if !s.authorize(p) {
		sess.setAuthenticated(false)
		metrics.AuthAttemptsTotal.WithLabelValues("refused").Inc()
		logger.Warn("Authentication failed", "username", p.Username, "error", ErrNotAuthorized)
		return sess.Write((&packet.ConnackPacket{ReturnCode: packet.ConnackNotAuthorized}).Encode())
	}

	metrics.AuthAttemptsTotal.WithLabelValues("accepted").Inc()
	if err := sess.Write((&packet.ConnackPacket{ReturnCode: packet.ConnackAccepted}).Encode()); err != nil {
		return err
	}
	sess.setAuthenticated(true)
	logger.Info("Authentication successful")

	return s.pushStatus(sess)
}

func (s *Server) authorize(p *packet.ConnectPacket) bool {
	userOK := subtle.ConstantTimeCompare([]byte(p.Username), []byte(s.opts.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(p.Password), []byte(s.opts.AccessCode)) == 1
	return p.UsernameFlag && p.PasswordFlag && userOK && passOK
}

func (s *Server) handlePublish(ctx context.Context, sess *Session, p *packet.PublishPacket) error {
	// QoS 2 is handled like QoS 0: printers never see it in practice.
	if p.QoS == 1 {
		if err := sess.Write((&packet.PubackPacket{PacketID: p.PacketID}).Encode()); err != nil {
			return err
		}
	}
	if p.Topic != s.requestTopic {
		log.FromContext(ctx).Debug("PUBLISH on unexpected topic", "topic", p.Topic)
	}

	replies, err := s.dispatcher.Handle(ctx, p.Payload)
	if err != nil {
		log.FromContext(ctx).Warn("Invalid command payload", "error", err)
	}
	for _, reply := range replies {
		if err := s.publish(sess, reply); err != nil {
			return err
		}
	}
	return nil
}

// pushStatus sends a full status report to one session.
func (s *Server) pushStatus(sess *Session) error {
	return s.publish(sess, command.StatusPush(s.printer.Snapshot("0")))
}

func (s *Server) publish(sess *Session, reply command.Reply) error {
	pkt, err := s.encodeReport(reply)
	if err != nil {
		return err
	}
	return sess.Write(pkt)
}

func (s *Server) encodeReport(reply command.Reply) ([]byte, error) {
	payload, err := json.Marshal(reply)
	if err != nil {
		return nil, fmt.Errorf("encode reply: %w", err)
	}
	return (&packet.PublishPacket{Topic: s.reportTopic, Payload: payload}).Encode(), nil
}
