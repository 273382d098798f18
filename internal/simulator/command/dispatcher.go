package command

import (
	"context"
	"errors"
	"time"

	"github.com/autopeer-io/printersim/internal/pkg/metrics"
	"github.com/autopeer-io/printersim/internal/simulator/printer"
	"github.com/autopeer-io/printersim/pkg/log"
)

// Printer is the device the dispatcher drives. *printer.Printer implements it.
type Printer interface {
	Start(ctx context.Context, req printer.StartRequest) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Stop(ctx context.Context) error
	ApplyGcode(script string) int
	ChangeFilament(idx int) error
	Snapshot(seq string) printer.StatusReport
	History(q printer.Query) printer.Page
	Modules() []printer.Module
}

var _ Printer = (*printer.Printer)(nil)

// Dispatcher applies commands to a Printer and builds the replies.
type Dispatcher struct {
	printer Printer
	log     log.Logger
}

func NewDispatcher(p Printer, logger log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.WithName("command")
	}
	return &Dispatcher{printer: p, log: logger}
}

// Handle parses payload and executes each command in order, returning one
// reply per command. A non-nil error together with replies means some
// domains were skipped; with no replies the payload was unusable.
func (d *Dispatcher) Handle(ctx context.Context, payload []byte) ([]Reply, error) {
	cmds, err := Parse(payload)
	replies := make([]Reply, 0, len(cmds))
	for _, cmd := range cmds {
		replies = append(replies, d.Execute(ctx, cmd))
	}
	return replies, err
}

// Execute applies a single command.
func (d *Dispatcher) Execute(ctx context.Context, cmd Command) Reply {
	start := time.Now()
	h := cmd.Meta()
	name := Canonical(cmd)

	body, result := d.execute(ctx, cmd, name)

	label := name
	if _, ok := cmd.(Unknown); ok {
		label = "unknown"
	}
	metrics.CommandsTotal.WithLabelValues(label, result).Inc()
	metrics.CommandLatency.WithLabelValues(label).Observe(time.Since(start).Seconds())

	d.log.Debug("Command handled", "domain", h.Domain, "command", h.Name, "sequenceID", h.SequenceID, "result", result)
	return Reply{Domain: h.Domain, Body: body}
}

func (d *Dispatcher) execute(ctx context.Context, cmd Command, name string) (any, string) {
	h := cmd.Meta()
	ack := func(err error) (any, string) {
		r := Result{Command: name, SequenceID: h.SequenceID, Result: ResultSuccess}
		if err != nil {
			r.Result = ResultFailed
			r.Reason = err.Error()
			var verr *printer.ValidationError
			if errors.As(err, &verr) {
				r.Reason = verr.Reason
			} else {
				d.log.Error(err, "Command failed", "command", name, "sequenceID", h.SequenceID)
			}
		}
		return r, r.Result
	}

	switch c := cmd.(type) {
	case StartPrint:
		return ack(d.printer.Start(ctx, printer.StartRequest{File: c.File, Tray: c.Tray}))
	case Pause:
		return ack(d.printer.Pause(ctx))
	case Resume:
		return ack(d.printer.Resume(ctx))
	case Stop:
		return ack(d.printer.Stop(ctx))
	case GcodeLine:
		applied := d.printer.ApplyGcode(c.Gcode)
		d.log.Debug("G-code applied", "lines", applied)
		return ack(nil)
	case ChangeFilament:
		return ack(d.printer.ChangeFilament(c.Tray))
	case PushAll:
		return d.printer.Snapshot(h.SequenceID), ResultSuccess
	case GetHistory:
		page := d.printer.History(c.Query)
		return HistoryResult{
			Command:    name,
			SequenceID: h.SequenceID,
			Result:     ResultSuccess,
			Total:      page.Total,
			Start:      page.Start,
			Count:      len(page.Records),
			Records:    page.Records,
		}, ResultSuccess
	case GetVersion:
		return VersionResult{
			Command:    name,
			SequenceID: h.SequenceID,
			Result:     ResultSuccess,
			Module:     d.printer.Modules(),
		}, ResultSuccess
	}

	d.log.Info("Unknown command", "command", h.Name, "domain", h.Domain)
	return Result{Command: h.Name, SequenceID: h.SequenceID, Result: ResultUnknown}, ResultUnknown
}
