package probe

import (
	"fmt"
	"time"

	"github.com/gosuri/uitable"

	"github.com/autopeer-io/printersim/internal/simulator/command"
	"github.com/autopeer-io/printersim/internal/simulator/printer"
)

const maxColWidth = 60

func newTable() *uitable.Table {
	table := uitable.New()
	table.MaxColWidth = maxColWidth
	table.Wrap = true
	return table
}

// StatusTable renders the interesting part of a status push.
func StatusTable(r *printer.StatusReport) *uitable.Table {
	table := newTable()
	table.AddRow("STATE:", r.GcodeState)
	table.AddRow("FILE:", r.GcodeFile)
	table.AddRow("PROGRESS:", fmt.Sprintf("%d%%", r.McPercent))
	table.AddRow("REMAINING:", fmt.Sprintf("%dm", r.McRemainingTime))
	table.AddRow("LAYER:", fmt.Sprintf("%d/%d", r.LayerNum, r.TotalLayerNum))
	table.AddRow("NOZZLE:", fmt.Sprintf("%.1f/%.0f", r.NozzleTemper, r.NozzleTarget))
	table.AddRow("BED:", fmt.Sprintf("%.1f/%.0f", r.BedTemper, r.BedTargetTemper))
	table.AddRow("FAN:", r.FanGear)
	table.AddRow("TRAY:", trayName(r.AMS.TrayNow))
	for _, unit := range r.AMS.Units {
		for _, tray := range unit.Trays {
			table.AddRow(fmt.Sprintf("  AMS %s/%s:", unit.ID, tray.ID), fmt.Sprintf("%s #%s %.0f%%", tray.Type, tray.Color, tray.Remain))
		}
	}
	return table
}

// HistoryTable renders one history page, newest first.
func HistoryTable(res *command.HistoryResult) *uitable.Table {
	table := newTable()
	table.AddRow("ID", "FILE", "RESULT", "STARTED", "DURATION", "REASON")
	for _, rec := range res.Records {
		table.AddRow(
			rec.ID,
			rec.GcodeFile,
			rec.Result,
			time.Unix(rec.StartTime, 0).Format(time.DateTime),
			(time.Duration(rec.CostTime) * time.Second).String(),
			rec.Reason,
		)
	}
	table.AddRow("")
	table.AddRow(fmt.Sprintf("showing %d from %d of %d", res.Count, res.Start, res.Total))
	return table
}

// VersionTable renders the firmware inventory.
func VersionTable(res *command.VersionResult) *uitable.Table {
	table := newTable()
	table.AddRow("MODULE", "SW", "HW", "SN")
	for _, m := range res.Module {
		table.AddRow(m.Name, m.SwVer, m.HwVer, m.SN)
	}
	return table
}

// ResultTable renders a plain acknowledgement.
func ResultTable(res *command.Result) *uitable.Table {
	table := newTable()
	table.AddRow("COMMAND:", res.Command)
	table.AddRow("SEQUENCE:", res.SequenceID)
	table.AddRow("RESULT:", res.Result)
	if res.Reason != "" {
		table.AddRow("REASON:", res.Reason)
	}
	return table
}

func trayName(i int) string {
	if i == printer.NoTray {
		return "none"
	}
	return fmt.Sprint(i)
}
