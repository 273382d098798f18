// Package simulator runs a simulated networked 3D printer.
package simulator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/autopeer-io/printersim/internal/pkg/certs"
	"github.com/autopeer-io/printersim/internal/simulator/printer"
	"github.com/autopeer-io/printersim/internal/simulator/server"
	"github.com/autopeer-io/printersim/pkg/log"
)

// Simulator is the main application struct of p2s-sim.
type Simulator struct {
	serverManager *server.Manager
	certs         *certs.Loader
	watchCerts    bool
	printer       *printer.Printer
}

// Printer returns the simulated device.
func (s *Simulator) Printer() *printer.Printer { return s.printer }

// Run serves until ctx is cancelled or a server fails.
func (s *Simulator) Run(ctx context.Context) error {
	log.Info("Starting printer simulator...", "serial", s.printer.Serial())
	defer log.Info("Printer simulator stopped")

	g, ctx := errgroup.WithContext(ctx)
	if s.watchCerts {
		g.Go(func() error { return s.certs.Watch(ctx) })
	}
	g.Go(func() error { return s.serverManager.Start(ctx) })
	return g.Wait()
}
