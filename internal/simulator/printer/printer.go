// Package printer models a single printer: its job status, temperatures,
// AMS trays and job history.
package printer

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/autopeer-io/printersim/internal/pkg/metrics"
	"github.com/autopeer-io/printersim/pkg/log"
)

// Simulation constants, applied once per tick.
const (
	nozzleHeatRate = 0.05
	nozzleCoolStep = 0.5
	bedHeatRate    = 0.03
	bedCoolStep    = 0.3

	progressStep       = 10
	secondsPerPercent  = 36
	defaultTotalLayers = 100
	defaultJobSeconds  = 3600

	filamentMMPerPercent = 50
	gramsPerMM           = 0.0075
)

// Config configures a Printer.
type Config struct {
	Serial       string
	HistoryLimit int
	SeedHistory  bool

	// Clock defaults to time.Now.
	Clock  func() time.Time
	Logger log.Logger
}

// Printer owns all mutable device state behind one mutex. Every command and
// every tick is a single critical section, so a transition and the history
// record it produces are observed together.
type Printer struct {
	mu sync.Mutex

	serial  string
	state   State
	trays   [TrayCount]Tray
	machine *StatusMachine
	ledger  *Ledger
	job     job

	now func() time.Time
	log log.Logger
}

// job is the print in progress, if any.
type job struct {
	active  bool
	started time.Time
}

// New returns an idle printer with four loaded PLA trays.
func New(cfg Config) *Printer {
	logger := cfg.Logger
	if logger == nil {
		logger = log.WithName("printer")
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	p := &Printer{
		serial:  cfg.Serial,
		state:   initialState(),
		trays:   defaultTrays(),
		machine: NewStatusMachine(logger),
		ledger:  NewLedger(cfg.HistoryLimit),
		now:     now,
		log:     logger,
	}
	if cfg.SeedHistory {
		for _, r := range seedRecords(now().Unix()) {
			p.ledger.Add(r)
		}
	}
	return p
}

// Serial returns the device serial number.
func (p *Printer) Serial() string { return p.serial }

// StartRequest describes a new job.
type StartRequest struct {
	File string
	// Tray selects the AMS tray; out of range values leave temperatures and tray alone.
	Tray int
}

// Start begins a new job from any status, replacing a job in progress.
func (p *Printer) Start(ctx context.Context, req StartRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.machine.Fire(ctx, EventStart); err != nil {
		return err
	}

	s := &p.state
	s.CurrentFile = req.File
	s.Progress = 0
	s.Layer = 0
	s.TotalLayers = defaultTotalLayers
	s.RemainingTime = defaultJobSeconds

	if validTray(req.Tray) {
		t := p.trays[req.Tray]
		s.BedTarget = float64(t.BedTemp)
		s.NozzleTarget = float64(t.NozzleTempMin + 10)
		p.selectTray(req.Tray)
	}

	p.job = job{active: true, started: p.now()}
	p.log.Info("Print started", "file", req.File, "tray", req.Tray)
	return nil
}

// Pause suspends progress.
func (p *Printer) Pause(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.machine.Fire(ctx, EventPause)
}

// Resume continues progress.
func (p *Printer) Resume(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.machine.Fire(ctx, EventResume)
}

// Stop cancels the job from any status and records it as failed with
// ReasonCancelled.
func (p *Printer) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec := p.finishJob(ResultFailed, ReasonCancelled)
	p.log.Info("Print cancelled", "id", rec.ID, "file", rec.GcodeFile, "layers", rec.Layers)
	if err := p.machine.Fire(ctx, EventStop); err != nil {
		return err
	}

	s := &p.state
	s.Progress = 0
	s.BedTarget = 0
	s.NozzleTarget = 0
	p.clearTray()
	return nil
}

// ApplyGcode runs the supported M-codes in script and returns how many were applied.
func (p *Printer) ApplyGcode(script string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.applyGcode(script)
}

// ChangeFilament selects tray idx. An out of range index returns a
// *ValidationError and leaves the selection unchanged.
func (p *Printer) ChangeFilament(idx int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !validTray(idx) {
		return &ValidationError{Field: "target_ams", Value: idx, Reason: "Invalid tray"}
	}
	p.selectTray(idx)
	return nil
}

// Tick advances the simulation by one step. It returns the history record
// of a job that finished during this tick, if any.
func (p *Printer) Tick(ctx context.Context) (*Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := &p.state
	s.NozzleTemp = approach(s.NozzleTemp, s.NozzleTarget, nozzleHeatRate, nozzleCoolStep)
	s.BedTemp = approach(s.BedTemp, s.BedTarget, bedHeatRate, bedCoolStep)

	if p.machine.Status() != StatusRunning {
		return nil, nil
	}

	s.Progress = min(s.Progress+progressStep, 100)
	s.RemainingTime = (100 - s.Progress) * secondsPerPercent
	s.Layer = s.Progress

	if validTray(s.TrayNow) {
		t := &p.trays[s.TrayNow]
		if t.Remain > 0 {
			t.Remain = max(0, t.Remain-0.01)
		}
	}

	if s.Progress < 100 {
		return nil, nil
	}

	rec := p.finishJob(ResultSuccess, 0)
	p.log.Info("Print finished", "id", rec.ID, "file", rec.GcodeFile, "costTime", rec.CostTime)
	if err := p.machine.Fire(ctx, EventFinish); err != nil {
		return &rec, err
	}
	s.Progress = 100
	s.RemainingTime = 0
	return &rec, nil
}

// Snapshot returns a full status push body tagged with seq.
func (p *Printer) Snapshot(seq string) StatusReport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.report(seq)
}

// Status returns the current job status.
func (p *Printer) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.machine.Status()
}

// History answers a history query.
func (p *Printer) History(q Query) Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ledger.Query(q)
}

// Modules returns the firmware inventory.
func (p *Printer) Modules() []Module {
	return Modules(p.serial)
}

// finishJob appends a record for the current job. A job that was never
// started, such as a resume from IDLE, is stamped as starting now. Callers
// hold the lock.
func (p *Printer) finishJob(result Result, reason int) Record {
	s := &p.state
	end := p.now()
	started := p.job.started
	if !p.job.active {
		started = end
	}

	mm := s.Progress * filamentMMPerPercent
	grams := round1(float64(mm) * gramsPerMM)

	rec := p.ledger.Add(Record{
		GcodeFile:      s.CurrentFile,
		SubtaskName:    s.CurrentFile,
		ProfileID:      "0",
		Weight:         grams,
		Length:         mm,
		StartTime:      started.Unix(),
		EndTime:        end.Unix(),
		CostTime:       max(1, int64(math.Ceil(end.Sub(started).Seconds()))),
		Result:         result,
		Reason:         reason,
		BedType:        "auto",
		NozzleDiameter: 0.4,
		FilamentUsedG:  grams,
		FilamentUsedMM: mm,
		Layers:         s.Layer,
	})
	p.job = job{}
	metrics.PrintJobsTotal.WithLabelValues(string(result)).Inc()
	return rec
}

func (p *Printer) selectTray(idx int) {
	s := &p.state
	s.TrayPre = s.TrayNow
	s.TrayNow = idx
	s.TrayTar = idx
}

func (p *Printer) clearTray() {
	s := &p.state
	if s.TrayNow != NoTray {
		s.TrayPre = s.TrayNow
	}
	s.TrayNow = NoTray
	s.TrayTar = NoTray
}

// approach moves cur toward a positive target by rate of the gap, or cools
// toward ambient by step when the heater is off.
func approach(cur, target, rate, step float64) float64 {
	if target > 0 {
		return cur + (target-cur)*rate
	}
	return max(AmbientTemp, cur-step)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
