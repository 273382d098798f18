package command

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/autopeer-io/printersim/internal/simulator/printer"
	"github.com/autopeer-io/printersim/pkg/log"
)

func newTestDispatcher(seed bool) (*Dispatcher, *printer.Printer) {
	now := time.Unix(1_700_000_000, 0)
	p := printer.New(printer.Config{
		Serial:      "01S00A123456789",
		SeedHistory: seed,
		Clock: func() time.Time {
			now = now.Add(time.Second)
			return now
		},
		Logger: log.NewNopLogger(),
	})
	return NewDispatcher(p, log.NewNopLogger()), p
}

// handle runs payload and decodes each reply body as a generic object.
func handle(t *testing.T, d *Dispatcher, payload string) []map[string]any {
	t.Helper()
	replies, err := d.Handle(context.Background(), []byte(payload))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	out := make([]map[string]any, 0, len(replies))
	for _, r := range replies {
		data, err := json.Marshal(r)
		if err != nil {
			t.Fatalf("marshal reply: %v", err)
		}
		var env map[string]map[string]any
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("unmarshal reply: %v", err)
		}
		body, ok := env[r.Domain]
		if !ok {
			t.Fatalf("reply %s is not wrapped in domain %q", data, r.Domain)
		}
		out = append(out, body)
	}
	return out
}

func TestDispatchStartAndStop(t *testing.T) {
	d, p := newTestDispatcher(false)

	got := handle(t, d, `{"print":{"command":"project_file","sequence_id":"5","gcode_file":"benchy.gcode","ams_tray":1}}`)
	if got[0]["command"] != NameStartPrint || got[0]["result"] != ResultSuccess || got[0]["sequence_id"] != "5" {
		t.Errorf("start reply = %v", got[0])
	}
	if p.Status() != printer.StatusRunning {
		t.Fatalf("status = %s, want RUNNING", p.Status())
	}
	if r := p.Snapshot("0"); r.AMS.TrayNow != 1 || r.NozzleTarget != 200 {
		t.Errorf("tray_now = %d nozzle target = %v, want 1 and 200", r.AMS.TrayNow, r.NozzleTarget)
	}

	got = handle(t, d, `{"print":{"command":"stop","sequence_id":6}}`)
	if got[0]["result"] != ResultSuccess || got[0]["sequence_id"] != "6" {
		t.Errorf("stop reply = %v", got[0])
	}
	page := p.History(printer.Query{Count: 10, Filter: printer.FilterFailed})
	if page.Total != 1 || page.Records[0].Reason != printer.ReasonCancelled {
		t.Errorf("history after stop = %+v", page)
	}
}

func TestDispatchChangeFilament(t *testing.T) {
	d, p := newTestDispatcher(false)

	got := handle(t, d, `{"print":{"command":"change_filament","target_ams":2}}`)
	if got[0]["result"] != ResultSuccess {
		t.Fatalf("reply = %v", got[0])
	}

	got = handle(t, d, `{"print":{"command":"change_filament","target_ams":7}}`)
	if got[0]["result"] != ResultFailed || got[0]["reason"] != "Invalid tray" {
		t.Errorf("out of range reply = %v", got[0])
	}
	if tray := p.Snapshot("0").AMS.TrayNow; tray != 2 {
		t.Errorf("tray_now = %d, want 2", tray)
	}
}

func TestDispatchHistory(t *testing.T) {
	d, _ := newTestDispatcher(true)

	got := handle(t, d, `{"print":{"command":"get_history","start":0,"count":2,"filter":"all"}}`)[0]
	if got["total"] != float64(3) || got["count"] != float64(2) || got["start"] != float64(0) {
		t.Errorf("history reply = %v", got)
	}
	records, _ := got["records"].([]any)
	if len(records) != 2 {
		t.Fatalf("records = %v", got["records"])
	}
	if first := records[0].(map[string]any); first["gcode_file"] != "test_print_1.gcode" {
		t.Errorf("newest record = %v", first)
	}

	got = handle(t, d, `{"print":{"command":"get_history","filter":"failed"}}`)[0]
	if got["total"] != float64(1) {
		t.Errorf("failed history total = %v, want 1", got["total"])
	}
}

func TestDispatchReadOnlyCommands(t *testing.T) {
	d, _ := newTestDispatcher(false)

	got := handle(t, d, `{"print":{"command":"push_all","sequence_id":"3"}}`)[0]
	if got["command"] != printer.CommandPushStatus || got["gcode_state"] != string(printer.StatusIdle) || got["sequence_id"] != "3" {
		t.Errorf("push_all reply = %v", got)
	}

	got = handle(t, d, `{"info":{"command":"get_version"}}`)[0]
	modules, _ := got["module"].([]any)
	if len(modules) != 4 {
		t.Fatalf("module = %v", got["module"])
	}
	if mc := modules[1].(map[string]any); mc["name"] != "mc" || mc["sn"] != "01S00A123456789" {
		t.Errorf("mc module = %v", mc)
	}

	got = handle(t, d, `{"print":{"command":"calibrate","sequence_id":"8"}}`)[0]
	if got["result"] != ResultUnknown || got["command"] != "calibrate" {
		t.Errorf("unknown reply = %v", got)
	}
}

func TestDispatchGcode(t *testing.T) {
	d, p := newTestDispatcher(false)

	handle(t, d, `{"print":{"command":"gcode_line","gcode":"M104 S210\nM140 S60\nM106 S255"}}`)
	r := p.Snapshot("0")
	if r.NozzleTarget != 210 || r.BedTargetTemper != 60 || r.FanGear != 100 {
		t.Errorf("targets nozzle=%v bed=%v fan=%d", r.NozzleTarget, r.BedTargetTemper, r.FanGear)
	}
}

func TestHandleInvalidJSON(t *testing.T) {
	d, _ := newTestDispatcher(false)
	replies, err := d.Handle(context.Background(), []byte("not json"))
	if err == nil || len(replies) != 0 {
		t.Errorf("Handle() = %v, %v; want no replies and an error", replies, err)
	}
}
