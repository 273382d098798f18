package app

import (
	"context"
	"strings"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/autopeer-io/printersim/cmd/p2s-probe/app/options"
	"github.com/autopeer-io/printersim/internal/probe"
	"github.com/autopeer-io/printersim/internal/simulator/command"
	"github.com/autopeer-io/printersim/internal/simulator/printer"
)

func newCommands(opts *options.ProbeOptions) []*cobra.Command {
	return []*cobra.Command{
		newCommand(opts, "status", "Request a full status push", status),
		newCommand(opts, "version", "List firmware modules", version),
		newHistoryCommand(opts),
		newStartCommand(opts),
		newCommand(opts, "pause", "Pause the running job", ackAction((*probe.Client).Pause)),
		newCommand(opts, "resume", "Resume a paused job", ackAction((*probe.Client).Resume)),
		newCommand(opts, "stop", "Cancel the current job", ackAction((*probe.Client).Stop)),
		newGcodeCommand(opts),
		newChangeFilamentCommand(opts),
	}
}

func status(ctx context.Context, c *probe.Client) (any, *uitable.Table, error) {
	report, err := c.Status(ctx)
	if err != nil {
		return nil, nil, err
	}
	return report, probe.StatusTable(report), nil
}

func version(ctx context.Context, c *probe.Client) (any, *uitable.Table, error) {
	res, err := c.Version(ctx)
	if res == nil {
		return nil, nil, err
	}
	return res, probe.VersionTable(res), err
}

func ackAction(fn func(*probe.Client, context.Context) (*command.Result, error)) action {
	return func(ctx context.Context, c *probe.Client) (any, *uitable.Table, error) {
		res, err := fn(c, ctx)
		if res == nil {
			return nil, nil, err
		}
		return res, probe.ResultTable(res), err
	}
}

func newHistoryCommand(opts *options.ProbeOptions) *cobra.Command {
	q := printer.Query{Count: 10, Filter: printer.FilterAll}
	var filter string
	cmd := newCommand(opts, "history", "Show finished jobs, newest first",
		func(ctx context.Context, c *probe.Client) (any, *uitable.Table, error) {
			q.Filter = printer.Filter(filter)
			res, err := c.History(ctx, q)
			if res == nil {
				return nil, nil, err
			}
			return res, probe.HistoryTable(res), err
		})
	cmd.Flags().IntVar(&q.Start, "start", q.Start, "Index of the first record.")
	cmd.Flags().IntVar(&q.Count, "count", q.Count, "Number of records.")
	cmd.Flags().StringVar(&filter, "filter", string(q.Filter), "One of all, success or failed.")
	return cmd
}

func newStartCommand(opts *options.ProbeOptions) *cobra.Command {
	var (
		file string
		tray int
	)
	cmd := newCommand(opts, "start", "Start printing a file", ackAction(func(c *probe.Client, ctx context.Context) (*command.Result, error) {
		return c.StartPrint(ctx, file, tray)
	}))
	cmd.Flags().StringVar(&file, "file", "test.gcode", "File to print.")
	cmd.Flags().IntVar(&tray, "tray", 0, "AMS tray to feed from.")
	return cmd
}

func newGcodeCommand(opts *options.ProbeOptions) *cobra.Command {
	var gcode string
	cmd := newCommand(opts, "gcode", "Send raw G-code", ackAction(func(c *probe.Client, ctx context.Context) (*command.Result, error) {
		return c.Gcode(ctx, strings.ReplaceAll(gcode, `\n`, "\n"))
	}))
	cmd.Flags().StringVar(&gcode, "gcode", "", "G-code to send, lines separated by \\n.")
	_ = cmd.MarkFlagRequired("gcode")
	return cmd
}

func newChangeFilamentCommand(opts *options.ProbeOptions) *cobra.Command {
	var tray int
	cmd := newCommand(opts, "change-filament", "Switch the active AMS tray", ackAction(func(c *probe.Client, ctx context.Context) (*command.Result, error) {
		return c.ChangeFilament(ctx, tray)
	}))
	cmd.Flags().IntVar(&tray, "tray", 0, "Target tray, 0 to 3.")
	return cmd
}
