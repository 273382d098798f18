package simulator

import (
	"fmt"

	"github.com/autopeer-io/printersim/internal/pkg/certs"
	"github.com/autopeer-io/printersim/internal/simulator/printer"
	"github.com/autopeer-io/printersim/internal/simulator/server"
	"github.com/autopeer-io/printersim/pkg/log"
	"github.com/autopeer-io/printersim/pkg/options"
)

type Config struct {
	ControlOptions    *options.ControlOptions
	StreamOptions     *options.StreamOptions
	HttpOptions       *options.HttpOptions
	TLSOptions        *options.TLSOptions
	SimulationOptions *options.SimulationOptions
}

// NewSimulator wires the printer, its listeners and the certificate loader.
func (cfg *Config) NewSimulator() (*Simulator, error) {
	// 1. TLS material shared by both listeners
	loader, err := certs.NewLoader(cfg.TLSOptions.CertFile, cfg.TLSOptions.KeyFile, log.WithName("certs"))
	if err != nil {
		return nil, fmt.Errorf("failed to load tls material: %w", err)
	}

	// 2. The device
	p := printer.New(printer.Config{
		Serial:       cfg.ControlOptions.Serial,
		HistoryLimit: cfg.SimulationOptions.HistoryLimit,
		SeedHistory:  cfg.SimulationOptions.SeedHistory,
		Logger:       log.WithName("printer"),
	})

	// 3. Servers
	serverConfig := &server.Config{
		ControlOptions:    cfg.ControlOptions,
		StreamOptions:     cfg.StreamOptions,
		HttpOptions:       cfg.HttpOptions,
		SimulationOptions: cfg.SimulationOptions,
	}
	srvManager := server.NewManager(serverConfig, p, loader.TLSConfig())

	return &Simulator{
		serverManager: srvManager,
		certs:         loader,
		watchCerts:    cfg.TLSOptions.Watch,
		printer:       p,
	}, nil
}
