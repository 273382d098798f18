package printer

import (
	"context"

	"github.com/looplab/fsm"

	"github.com/autopeer-io/printersim/internal/pkg/metrics"
	fsmutil "github.com/autopeer-io/printersim/internal/pkg/util/fsm"
	"github.com/autopeer-io/printersim/pkg/log"
)

const (
	// EventStart begins a new job from any state.
	EventStart = "event_start"
	// EventPause suspends progress.
	EventPause = "event_pause"
	// EventResume continues progress.
	EventResume = "event_resume"
	// EventStop cancels the job.
	EventStop = "event_stop"
	// EventFinish ends a running job that reached 100%.
	EventFinish = "event_finish"
)

var anyStatus = []string{string(StatusIdle), string(StatusRunning), string(StatusPaused)}

// StatusMachine tracks the job status. Callers serialize access.
type StatusMachine struct {
	*fsm.FSM
	log log.Logger
}

// NewStatusMachine returns a machine in IDLE that logs transitions to logger.
func NewStatusMachine(logger log.Logger) *StatusMachine {
	m := &StatusMachine{log: logger}

	events := fsm.Events{
		{Name: EventStart, Src: anyStatus, Dst: string(StatusRunning)},
		{Name: EventPause, Src: anyStatus, Dst: string(StatusPaused)},
		{Name: EventResume, Src: anyStatus, Dst: string(StatusRunning)},
		{Name: EventStop, Src: anyStatus, Dst: string(StatusIdle)},
		{Name: EventFinish, Src: []string{string(StatusRunning)}, Dst: string(StatusIdle)},
	}

	callbacks := fsm.Callbacks{
		"enter_state": fsmutil.WrapEvent(m.ActionEnterState),
	}

	m.FSM = fsm.NewFSM(string(StatusIdle), events, callbacks)
	publishStatus(StatusIdle)
	return m
}

// Fire runs event. A self transition is not an error.
func (m *StatusMachine) Fire(ctx context.Context, event string) error {
	return fsmutil.IgnoreNoTransition(m.Event(ctx, event))
}

// Status returns the current status.
func (m *StatusMachine) Status() Status {
	return Status(m.Current())
}

// ActionEnterState logs every real transition and updates the status gauge.
func (m *StatusMachine) ActionEnterState(ctx context.Context, e *fsm.Event) error {
	m.log.Info("Print status changed", "event", e.Event, "from", e.Src, "to", e.Dst)
	publishStatus(Status(e.Dst))
	return nil
}

func publishStatus(s Status) {
	all := make([]string, len(AllStatuses))
	for i, st := range AllStatuses {
		all[i] = string(st)
	}
	metrics.SetPrinterStatus(string(s), all...)
}
