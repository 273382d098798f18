package control

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/autopeer-io/printersim/internal/pkg/metrics"
	"github.com/autopeer-io/printersim/internal/pkg/netutil"
)

// Session is one TLS connection on the control port. Replies from the
// connection's worker and status broadcasts share the socket, so writes go
// through Write.
type Session struct {
	ID     string
	Remote string

	conn         net.Conn
	writeTimeout time.Duration
	wmu          sync.Mutex

	authenticated atomic.Bool
	// clientID is only touched by the worker goroutine.
	clientID string
}

func newSession(conn net.Conn, writeTimeout time.Duration) *Session {
	return &Session{
		ID:           uuid.NewString(),
		Remote:       conn.RemoteAddr().String(),
		conn:         conn,
		writeTimeout: writeTimeout,
	}
}

// Write sends one complete packet, bounded by the write timeout.
func (s *Session) Write(pkt []byte) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	if s.writeTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	if _, err := s.conn.Write(pkt); err != nil {
		return &netutil.ConnError{Op: "write", Remote: s.Remote, Err: err}
	}
	return nil
}

// Authenticated reports whether the last CONNECT on this session succeeded.
func (s *Session) Authenticated() bool { return s.authenticated.Load() }

func (s *Session) setAuthenticated(v bool) {
	if s.authenticated.Swap(v) == v {
		return
	}
	if v {
		metrics.SessionsAuthenticated.Inc()
	} else {
		metrics.SessionsAuthenticated.Dec()
	}
}

// Close closes the underlying connection, which ends the worker.
func (s *Session) Close() error { return s.conn.Close() }

// Registry tracks the live sessions of a server.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	metrics.SessionsActive.Inc()
}

func (r *Registry) Remove(s *Session) {
	r.mu.Lock()
	_, ok := r.sessions[s.ID]
	delete(r.sessions, s.ID)
	r.mu.Unlock()
	if !ok {
		return
	}
	s.setAuthenticated(false)
	metrics.SessionsActive.Dec()
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Authenticated returns the sessions that currently pass authentication.
func (r *Registry) Authenticated() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		if s.Authenticated() {
			out = append(out, s)
		}
	}
	return out
}
