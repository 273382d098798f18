package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/autopeer-io/printersim/internal/simulator/printer"
	"github.com/autopeer-io/printersim/pkg/log"
	"github.com/autopeer-io/printersim/pkg/options"
)

func newTestRouter(ready bool) http.Handler {
	p := printer.New(printer.Config{Serial: "01S00A123456789", Logger: log.NewNopLogger()})
	return NewRouter(options.NewHttpOptions(), p, map[string]ReadyFunc{"control": func() bool { return ready }})
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestProbes(t *testing.T) {
	tests := []struct {
		name  string
		ready bool
		path  string
		want  int
	}{
		{"healthz", false, "/healthz", http.StatusOK},
		{"ready", true, "/readyz", http.StatusOK},
		{"not ready", false, "/readyz", http.StatusServiceUnavailable},
		{"unknown path", true, "/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := get(t, newTestRouter(tt.ready), tt.path).Code; got != tt.want {
				t.Errorf("GET %s = %d, want %d", tt.path, got, tt.want)
			}
		})
	}
}

func TestMetrics(t *testing.T) {
	rec := get(t, newTestRouter(true), "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "p2s_sim_printer_status") {
		t.Error("printer status gauge missing from /metrics")
	}
}

func TestStatus(t *testing.T) {
	rec := get(t, newTestRouter(true), "/api/v1/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/status = %d", rec.Code)
	}
	var r printer.StatusReport
	if err := json.NewDecoder(rec.Body).Decode(&r); err != nil {
		t.Fatal(err)
	}
	if r.GcodeState != printer.StatusIdle || len(r.AMS.Units) != 1 || len(r.AMS.Units[0].Trays) != printer.TrayCount {
		t.Errorf("status = %+v", r)
	}
}

func TestWatchStreamsSnapshots(t *testing.T) {
	p := printer.New(printer.Config{Serial: "01S00A123456789", Logger: log.NewNopLogger()})
	opts := options.NewHttpOptions()
	opts.WatchInterval = 20 * time.Millisecond
	srv := httptest.NewServer(NewRouter(opts, p, nil))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/watch"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial(%s) error = %v", url, err)
	}
	defer conn.Close()

	var first map[string]printer.StatusReport
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatal(err)
	}
	if got := first["print"]; got.Command != printer.CommandPushStatus || got.GcodeState != printer.StatusIdle {
		t.Fatalf("first push = %+v, want an idle push_status", got)
	}

	if err := p.Start(context.Background(), printer.StartRequest{File: "cube.gcode"}); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		var next map[string]printer.StatusReport
		if err := conn.ReadJSON(&next); err != nil {
			t.Fatalf("no RUNNING push before deadline: %v", err)
		}
		if next["print"].GcodeState == printer.StatusRunning {
			break
		}
	}
}
