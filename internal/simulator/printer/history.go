package printer

import (
	"slices"
	"strconv"
)

// Result of a finished job.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailed  Result = "failed"
)

const (
	// ReasonCancelled is the firmware reason code of a user-cancelled job.
	ReasonCancelled = 50331648
	// ReasonFilamentRunout is the reason code of the seeded failed job.
	ReasonFilamentRunout = 16777216
)

// DefaultHistoryLimit is the number of records kept by a Ledger.
const DefaultHistoryLimit = 50

// Record describes one finished job in get_history replies.
type Record struct {
	ID             string  `json:"id"`
	GcodeFile      string  `json:"gcode_file"`
	SubtaskName    string  `json:"subtask_name"`
	ProfileID      string  `json:"profile_id"`
	TaskID         string  `json:"task_id"`
	Weight         float64 `json:"weight"`
	Length         int     `json:"length"`
	StartTime      int64   `json:"start_time"`
	EndTime        int64   `json:"end_time"`
	CostTime       int64   `json:"cost_time"`
	Result         Result  `json:"result"`
	Reason         int     `json:"reason"`
	BedType        string  `json:"bed_type"`
	NozzleDiameter float64 `json:"nozzle_diameter"`
	FilamentUsedG  float64 `json:"filament_used_g"`
	FilamentUsedMM int     `json:"filament_used_mm"`
	Layers         int     `json:"layers"`
	Thumbnail      string  `json:"thumbnail"`
}

// Filter selects records by result.
type Filter string

const (
	FilterAll     Filter = "all"
	FilterSuccess Filter = "success"
	FilterFailed  Filter = "failed"
)

func (f Filter) match(r Result) bool {
	switch f {
	case FilterSuccess:
		return r == ResultSuccess
	case FilterFailed:
		return r == ResultFailed
	default:
		return true
	}
}

// Query selects a page of history.
type Query struct {
	Start  int
	Count  int
	Filter Filter
}

// Page is the answer to a Query. Total counts every record passing the filter.
type Page struct {
	Total   int
	Start   int
	Records []Record
}

// Ledger keeps finished jobs newest first, bounded by limit.
// It is not safe for concurrent use; Printer guards it.
type Ledger struct {
	records []Record
	limit   int
	nextID  int
}

// NewLedger returns an empty ledger holding at most limit records. A
// non-positive limit selects DefaultHistoryLimit.
func NewLedger(limit int) *Ledger {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &Ledger{limit: limit, nextID: 1}
}

// Add assigns the next id and inserts r at the front, dropping the oldest
// records beyond the limit.
func (l *Ledger) Add(r Record) Record {
	id := strconv.Itoa(l.nextID)
	l.nextID++
	r.ID = id
	if r.TaskID == "" {
		r.TaskID = id
	}

	l.records = slices.Insert(l.records, 0, r)
	if len(l.records) > l.limit {
		clear(l.records[l.limit:])
		l.records = l.records[:l.limit]
	}
	return r
}

// Len returns the number of stored records.
func (l *Ledger) Len() int { return len(l.records) }

// Query filters, orders by start time (newest first) and slices.
func (l *Ledger) Query(q Query) Page {
	filtered := make([]Record, 0, len(l.records))
	for _, r := range l.records {
		if q.Filter.match(r.Result) {
			filtered = append(filtered, r)
		}
	}
	slices.SortStableFunc(filtered, func(a, b Record) int {
		switch {
		case a.StartTime > b.StartTime:
			return -1
		case a.StartTime < b.StartTime:
			return 1
		}
		return 0
	})

	start := max(q.Start, 0)
	page := Page{Total: len(filtered), Start: start, Records: []Record{}}
	if q.Count <= 0 || start >= len(filtered) {
		return page
	}
	end := min(start+q.Count, len(filtered))
	page.Records = filtered[start:end]
	return page
}

// seedRecords returns the demo jobs a fresh printer reports, relative to now.
func seedRecords(now int64) []Record {
	base := Record{ProfileID: "0", BedType: "auto", NozzleDiameter: 0.4}

	failed := base
	failed.GcodeFile, failed.SubtaskName = "failed_print.gcode", "Failed Print"
	failed.Weight, failed.Length = 10.0, 2000
	failed.StartTime, failed.EndTime, failed.CostTime = now-21600, now-20400, 1200
	failed.Result, failed.Reason = ResultFailed, ReasonFilamentRunout
	failed.FilamentUsedG, failed.FilamentUsedMM, failed.Layers = 5.2, 1100, 35

	second := base
	second.GcodeFile, second.SubtaskName = "test_print_2.gcode", "Test Print 2"
	second.Weight, second.Length = 25.3, 5700
	second.StartTime, second.EndTime, second.CostTime = now-14400, now-10800, 3600
	second.Result = ResultSuccess
	second.FilamentUsedG, second.FilamentUsedMM, second.Layers = 25.3, 5700, 150

	first := base
	first.GcodeFile, first.SubtaskName = "test_print_1.gcode", "Test Print 1"
	first.Weight, first.Length = 15.5, 3500
	first.StartTime, first.EndTime, first.CostTime = now-7200, now-3600, 3600
	first.Result = ResultSuccess
	first.FilamentUsedG, first.FilamentUsedMM, first.Layers = 15.5, 3500, 100

	// Oldest first so that Add leaves the newest at the front.
	return []Record{failed, second, first}
}
