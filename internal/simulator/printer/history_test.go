package printer

import (
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func seededLedger() *Ledger {
	l := NewLedger(DefaultHistoryLimit)
	for _, r := range seedRecords(1_700_000_000) {
		l.Add(r)
	}
	return l
}

func files(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.GcodeFile
	}
	return out
}

func TestLedgerQuery(t *testing.T) {
	tests := []struct {
		name      string
		query     Query
		wantTotal int
		wantFiles []string
	}{
		{
			name:      "failed only",
			query:     Query{Start: 0, Count: 10, Filter: FilterFailed},
			wantTotal: 1,
			wantFiles: []string{"failed_print.gcode"},
		},
		{
			name:      "success only",
			query:     Query{Start: 0, Count: 10, Filter: FilterSuccess},
			wantTotal: 2,
			wantFiles: []string{"test_print_1.gcode", "test_print_2.gcode"},
		},
		{
			name:      "first page of two",
			query:     Query{Start: 0, Count: 2, Filter: FilterAll},
			wantTotal: 3,
			wantFiles: []string{"test_print_1.gcode", "test_print_2.gcode"},
		},
		{
			name:      "second page",
			query:     Query{Start: 2, Count: 2, Filter: FilterAll},
			wantTotal: 3,
			wantFiles: []string{"failed_print.gcode"},
		},
		{
			name:      "start past end",
			query:     Query{Start: 5, Count: 2},
			wantTotal: 3,
			wantFiles: []string{},
		},
		{
			name:      "zero count",
			query:     Query{Start: 0, Count: 0},
			wantTotal: 3,
			wantFiles: []string{},
		},
		{
			name:      "negative start",
			query:     Query{Start: -4, Count: 1},
			wantTotal: 3,
			wantFiles: []string{"test_print_1.gcode"},
		},
		{
			name:      "unknown filter means all",
			query:     Query{Count: 10, Filter: "cancelled"},
			wantTotal: 3,
			wantFiles: []string{"test_print_1.gcode", "test_print_2.gcode", "failed_print.gcode"},
		},
	}

	l := seededLedger()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := l.Query(tt.query)
			if page.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", page.Total, tt.wantTotal)
			}
			if diff := cmp.Diff(tt.wantFiles, files(page.Records)); diff != "" {
				t.Errorf("records mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLedgerSeedReasons(t *testing.T) {
	page := seededLedger().Query(Query{Count: 10, Filter: FilterFailed})
	if got := page.Records[0].Reason; got != ReasonFilamentRunout {
		t.Errorf("seeded failure reason = %d, want %d", got, ReasonFilamentRunout)
	}
}

func TestLedgerLimit(t *testing.T) {
	l := NewLedger(DefaultHistoryLimit)
	for i := range 60 {
		l.Add(Record{GcodeFile: strconv.Itoa(i), StartTime: int64(i), Result: ResultSuccess})
	}

	if l.Len() != DefaultHistoryLimit {
		t.Fatalf("Len() = %d, want %d", l.Len(), DefaultHistoryLimit)
	}
	page := l.Query(Query{Count: 100})
	if first := page.Records[0]; first.GcodeFile != "59" || first.ID != "60" {
		t.Errorf("newest record = %+v, want file 59 id 60", first)
	}
	if last := page.Records[len(page.Records)-1]; last.GcodeFile != "10" {
		t.Errorf("oldest kept record = %q, want 10", last.GcodeFile)
	}
}

func TestLedgerStableOrder(t *testing.T) {
	l := NewLedger(10)
	l.Add(Record{GcodeFile: "older", StartTime: 100})
	l.Add(Record{GcodeFile: "same-1", StartTime: 200})
	l.Add(Record{GcodeFile: "same-2", StartTime: 200})

	got := files(l.Query(Query{Count: 10}).Records)
	want := []string{"same-2", "same-1", "older"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}
