package app

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"net"
	"strings"
	"testing"

	"github.com/autopeer-io/printersim/internal/pkg/certs"
	"github.com/autopeer-io/printersim/internal/simulator/command"
	"github.com/autopeer-io/printersim/internal/simulator/printer"
	"github.com/autopeer-io/printersim/internal/simulator/server/control"
	"github.com/autopeer-io/printersim/pkg/log"
	"github.com/autopeer-io/printersim/pkg/options"
)

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
	p := printer.New(printer.Config{Serial: opts.Serial, SeedHistory: true, Logger: log.NewNopLogger()})
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

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewApp().Command()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SilenceErrors = true
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestStartThenStatus(t *testing.T) {
	broker, p := startSimulator(t)

	out, err := execute(t, "start", "--mqtt.broker", broker, "--file", "benchy.gcode", "--tray", "2")
	if err != nil {
		t.Fatalf("start: %v\n%s", err, out)
	}
	if !strings.Contains(out, command.ResultSuccess) {
		t.Errorf("start output missing result:\n%s", out)
	}
	if got := p.Status(); got != printer.StatusRunning {
		t.Errorf("printer status = %s, want RUNNING", got)
	}

	out, err = execute(t, "status", "--mqtt.broker", broker, "-o", "json")
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	var report printer.StatusReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("status output is not JSON: %v\n%s", err, out)
	}
	if report.GcodeFile != "benchy.gcode" || report.AMS.TrayNow != 2 {
		t.Errorf("status file %q tray %d, want benchy.gcode tray 2", report.GcodeFile, report.AMS.TrayNow)
	}
}

func TestHistoryTable(t *testing.T) {
	broker, _ := startSimulator(t)

	out, err := execute(t, "history", "--mqtt.broker", broker, "--filter", "failed")
	if err != nil {
		t.Fatalf("history: %v\n%s", err, out)
	}
	if !strings.Contains(out, "showing 1 from 0 of 1") {
		t.Errorf("history output:\n%s", out)
	}
}

func TestFailedCommandPrintsReason(t *testing.T) {
	broker, _ := startSimulator(t)

	out, err := execute(t, "change-filament", "--mqtt.broker", broker, "--tray", "7")
	if err == nil {
		t.Fatal("change-filament to tray 7 succeeded")
	}
	if !strings.Contains(out, "Invalid tray") {
		t.Errorf("output missing reason:\n%s", out)
	}
}

func TestInvalidOutputRejected(t *testing.T) {
	if _, err := execute(t, "status", "-o", "yaml"); err == nil {
		t.Fatal("status -o yaml succeeded")
	}
}
