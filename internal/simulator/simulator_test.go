package simulator

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/autopeer-io/printersim/internal/pkg/certs"
	"github.com/autopeer-io/printersim/internal/simulator/printer"
	"github.com/autopeer-io/printersim/pkg/options"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()

	tlsOpts := options.NewTLSOptions()
	tlsOpts.CertFile = filepath.Join(dir, "server.crt")
	tlsOpts.KeyFile = filepath.Join(dir, "server.key")

	control := options.NewControlOptions()
	control.Addr = "127.0.0.1:0"
	stream := options.NewStreamOptions()
	stream.Addr = "127.0.0.1:0"
	http := options.NewHttpOptions()
	http.Addr = "127.0.0.1:0"

	return &Config{
		ControlOptions:    control,
		StreamOptions:     stream,
		HttpOptions:       http,
		TLSOptions:        tlsOpts,
		SimulationOptions: options.NewSimulationOptions(),
	}
}

func TestNewSimulatorRequiresCertificates(t *testing.T) {
	if _, err := testConfig(t).NewSimulator(); err == nil {
		t.Error("NewSimulator() succeeded without tls material")
	}
}

func TestSimulatorRunsUntilCancelled(t *testing.T) {
	cfg := testConfig(t)
	if err := certs.WriteFiles(cfg.TLSOptions.CertFile, cfg.TLSOptions.KeyFile, certs.GenerateOptions{}); err != nil {
		t.Fatal(err)
	}

	sim, err := cfg.NewSimulator()
	if err != nil {
		t.Fatalf("NewSimulator() error = %v", err)
	}
	if got := sim.Printer().Serial(); got != cfg.ControlOptions.Serial {
		t.Errorf("serial = %q, want %q", got, cfg.ControlOptions.Serial)
	}
	if page := sim.Printer().History(printer.Query{Count: 10}); page.Total != 3 {
		t.Errorf("seeded history = %d records, want 3", page.Total)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sim.Run(ctx) }()

	time.Sleep(200 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
