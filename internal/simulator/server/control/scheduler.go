package control

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/autopeer-io/printersim/internal/pkg/metrics"
	"github.com/autopeer-io/printersim/internal/simulator/command"
	"github.com/autopeer-io/printersim/pkg/log"
	"github.com/autopeer-io/printersim/pkg/options"
)

// broadcastParallelism bounds concurrent writes of one broadcast.
const broadcastParallelism = 16

// Scheduler advances the simulation and pushes status to every
// authenticated session, independently of any connection.
type Scheduler struct {
	server            *Server
	tickInterval      time.Duration
	broadcastInterval time.Duration
	log               log.Logger
}

func NewScheduler(opts *options.SimulationOptions, server *Server) *Scheduler {
	return &Scheduler{
		server:            server,
		tickInterval:      opts.TickInterval,
		broadcastInterval: opts.BroadcastInterval,
		log:               log.WithName("scheduler"),
	}
}

// Start runs until ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	tick := time.NewTicker(s.tickInterval)
	defer tick.Stop()
	broadcast := time.NewTicker(s.broadcastInterval)
	defer broadcast.Stop()

	s.log.Info("Simulation started", "tick", s.tickInterval, "broadcast", s.broadcastInterval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			rec, err := s.server.printer.Tick(ctx)
			if err != nil {
				s.log.Error(err, "Simulation tick failed")
			}
			if rec != nil {
				s.log.Info("Job recorded", "id", rec.ID, "result", rec.Result)
			}
		case <-broadcast.C:
			s.server.Broadcast(ctx)
		}
	}
}

// Broadcast writes one full status report to every authenticated session.
// A session whose write fails is closed; its worker then cleans up.
func (s *Server) Broadcast(ctx context.Context) {
	sessions := s.registry.Authenticated()
	if len(sessions) == 0 {
		return
	}

	pkt, err := s.encodeReport(command.StatusPush(s.printer.Snapshot("0")))
	if err != nil {
		s.log.Error(err, "Failed to encode status")
		return
	}

	var g errgroup.Group
	g.SetLimit(broadcastParallelism)
	for _, sess := range sessions {
		g.Go(func() error {
			if err := sess.Write(pkt); err != nil {
				s.log.Warn("Broadcast failed, closing session", "session", sess.ID, "error", err)
				_ = sess.Close()
				return nil
			}
			metrics.BroadcastsTotal.Inc()
			return nil
		})
	}
	_ = g.Wait()
}
