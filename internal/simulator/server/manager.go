package server

import (
	"context"
	"crypto/tls"

	"golang.org/x/sync/errgroup"

	"github.com/autopeer-io/printersim/internal/simulator/printer"
	"github.com/autopeer-io/printersim/internal/simulator/server/control"
	"github.com/autopeer-io/printersim/internal/simulator/server/http"
	"github.com/autopeer-io/printersim/internal/simulator/server/stream"
	"github.com/autopeer-io/printersim/pkg/log"
)

// Server defines the common interface for all sub-servers (control, stream, http, scheduler).
type Server interface {
	Start(ctx context.Context) error
}

// Manager manages the lifecycle of all servers.
type Manager struct {
	servers []Server
	control *control.Server
}

// NewManager creates a new server manager and initializes all sub-servers.
func NewManager(cfg *Config, p *printer.Printer, tlsConfig *tls.Config) *Manager {
	var servers []Server
	ready := map[string]http.ReadyFunc{}

	// 1. Control listener and the simulation driving it
	controlSrv := control.NewServer(cfg.ControlOptions, tlsConfig, p)
	servers = append(servers, controlSrv, control.NewScheduler(cfg.SimulationOptions, controlSrv))
	ready["control"] = controlSrv.Ready

	// 2. Camera stream
	if cfg.StreamOptions.Enabled {
		streamSrv := stream.NewServer(cfg.StreamOptions, tlsConfig, cfg.ControlOptions.HandshakeTimeout)
		servers = append(servers, streamSrv)
		ready["stream"] = streamSrv.Ready
	}

	// 3. Health, metrics and status
	if cfg.HttpOptions.Enabled {
		servers = append(servers, http.NewServer(cfg.HttpOptions, p, ready))
	}

	return &Manager{servers: servers, control: controlSrv}
}

// Control returns the control server.
func (m *Manager) Control() *control.Server { return m.control }

// Start launches all servers in parallel and waits for termination.
// The first failing server cancels the others.
func (m *Manager) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, srv := range m.servers {
		g.Go(func() error {
			return srv.Start(ctx)
		})
	}

	log.Info("All servers starting...")
	return g.Wait()
}
