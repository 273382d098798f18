package http

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/autopeer-io/printersim/internal/pkg/metrics"
	"github.com/autopeer-io/printersim/internal/simulator/printer"
	"github.com/autopeer-io/printersim/pkg/log"
	"github.com/autopeer-io/printersim/pkg/options"
)

// ReadyFunc reports whether a component can serve traffic.
type ReadyFunc func() bool

// StatusSource provides the snapshot served on /api/v1/status.
type StatusSource interface {
	Snapshot(seq string) printer.StatusReport
}

type Server struct {
	server  *http.Server
	options *options.HttpOptions
	log     log.Logger
}

// NewServer builds the side server. Every check in ready must pass for /readyz to succeed.
func NewServer(opts *options.HttpOptions, status StatusSource, ready map[string]ReadyFunc) *Server {
	s := &Server{options: opts, log: log.WithName("http")}
	s.server = &http.Server{
		Addr:    opts.Addr,
		Handler: NewRouter(opts, status, ready),
	}
	return s
}

// NewRouter returns the handler of the side server.
func NewRouter(opts *options.HttpOptions, status StatusSource, ready map[string]ReadyFunc) http.Handler {
	r := mux.NewRouter()

	// Basic Liveness Probe
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		for name, fn := range ready {
			if !fn() {
				http.Error(w, name+" not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(status.Snapshot("0")); err != nil {
			log.Error(err, "Failed to write status")
		}
	}).Methods(http.MethodGet)
	api.Handle("/watch", &watcher{status: status, interval: opts.WatchInterval}).Methods(http.MethodGet)

	return r
}

func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.log.Info("Starting HTTP Server", "addr", ln.Addr().String())

	// Hijacked websocket connections are not closed by Shutdown; they end
	// when their request context does.
	s.server.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.options.ShutdownTimeout)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}
