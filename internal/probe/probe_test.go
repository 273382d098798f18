package probe

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/autopeer-io/printersim/internal/pkg/certs"
	"github.com/autopeer-io/printersim/internal/simulator/command"
	"github.com/autopeer-io/printersim/internal/simulator/printer"
	"github.com/autopeer-io/printersim/internal/simulator/server/control"
	"github.com/autopeer-io/printersim/pkg/log"
	"github.com/autopeer-io/printersim/pkg/options"
)

const testSerial = "01S00A123456789"

// startSimulator serves the control protocol on a loopback port and returns
// the broker URL.
func startSimulator(t *testing.T) (string, *printer.Printer) {
	t.Helper()

	certPEM, keyPEM, err := certs.Generate(certs.GenerateOptions{})
	if err != nil {
		t.Fatal(err)
	}
	pair, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		t.Fatal(err)
	}

	opts := options.NewControlOptions()
	opts.Serial = testSerial
	p := printer.New(printer.Config{Serial: testSerial, SeedHistory: true, Logger: log.NewNopLogger()})
	srv := control.NewServer(opts, &tls.Config{Certificates: []tls.Certificate{pair}}, p)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx, ln)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return "ssl://" + ln.Addr().String(), p
}

func newTestClient(t *testing.T, broker, password string) (*Client, error) {
	t.Helper()
	opts := options.NewMqttOptions()
	opts.Broker = broker
	opts.Password = password
	opts.Serial = testSerial
	opts.ConnectTimeout = 2 * time.Second

	c, err := New(opts, log.NewNopLogger())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	t.Cleanup(func() { c.Close(context.Background()) })
	return c, nil
}

func TestClientAgainstSimulator(t *testing.T) {
	broker, p := startSimulator(t)
	c, err := newTestClient(t, broker, "test1234")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	status, err := c.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.GcodeState != printer.StatusIdle || status.AMS.TrayNow != printer.NoTray {
		t.Errorf("initial status = %s tray %d, want IDLE tray %d", status.GcodeState, status.AMS.TrayNow, printer.NoTray)
	}

	res, err := c.StartPrint(ctx, "cube.gcode", 1)
	if err != nil {
		t.Fatalf("StartPrint() error = %v", err)
	}
	if diff := cmp.Diff(command.ResultSuccess, res.Result); diff != "" {
		t.Errorf("StartPrint() result mismatch (-want +got):\n%s", diff)
	}
	if got := p.Status(); got != printer.StatusRunning {
		t.Errorf("printer status = %s, want RUNNING", got)
	}

	status, err = c.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if status.GcodeFile != "cube.gcode" || status.AMS.TrayNow != 1 {
		t.Errorf("running status file %q tray %d, want cube.gcode tray 1", status.GcodeFile, status.AMS.TrayNow)
	}

	if _, err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	hist, err := c.History(ctx, printer.Query{Count: 10, Filter: printer.FilterFailed})
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	// One seeded failure plus the cancelled job.
	if hist.Total != 2 || len(hist.Records) != 2 {
		t.Fatalf("History() total %d records %d, want 2 and 2", hist.Total, len(hist.Records))
	}
	if got := hist.Records[0]; got.GcodeFile != "cube.gcode" || got.Reason != printer.ReasonCancelled {
		t.Errorf("newest record = %s reason %d, want cube.gcode reason %d", got.GcodeFile, got.Reason, printer.ReasonCancelled)
	}

	version, err := c.Version(ctx)
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if diff := cmp.Diff(printer.Modules(testSerial), version.Module); diff != "" {
		t.Errorf("Version() modules mismatch (-want +got):\n%s", diff)
	}

	_, err = c.ChangeFilament(ctx, 9)
	if !errors.Is(err, ErrFailed) {
		t.Fatalf("ChangeFilament(9) error = %v, want ErrFailed", err)
	}
	if !strings.Contains(err.Error(), "Invalid tray") {
		t.Errorf("ChangeFilament(9) error = %v, want the reason", err)
	}
}

func TestClientWrongAccessCode(t *testing.T) {
	broker, _ := startSimulator(t)
	if _, err := newTestClient(t, broker, "wrong"); err == nil {
		t.Fatal("Connect() with a wrong access code succeeded")
	}
}

func TestTables(t *testing.T) {
	p := printer.New(printer.Config{Serial: testSerial, SeedHistory: true, Logger: log.NewNopLogger()})
	report := p.Snapshot("1")

	out := StatusTable(&report).String()
	for _, want := range []string{"IDLE", "none", "PLA"} {
		if !strings.Contains(out, want) {
			t.Errorf("StatusTable() missing %q:\n%s", want, out)
		}
	}

	page := p.History(printer.Query{Count: 10, Filter: printer.FilterAll})
	out = HistoryTable(&command.HistoryResult{
		Total: page.Total, Start: page.Start, Count: len(page.Records), Records: page.Records,
	}).String()
	if !strings.Contains(out, "showing 3 from 0 of 3") {
		t.Errorf("HistoryTable() footer missing:\n%s", out)
	}

	out = ResultTable(&command.Result{Command: "stop", SequenceID: "4", Result: command.ResultFailed, Reason: "busy"}).String()
	if !strings.Contains(out, "busy") {
		t.Errorf("ResultTable() missing reason:\n%s", out)
	}
}
