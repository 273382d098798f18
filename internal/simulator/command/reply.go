package command

import (
	"encoding/json"

	"github.com/autopeer-io/printersim/internal/simulator/printer"
)

// Reply results.
const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
	ResultUnknown = "unknown_command"
)

// Reply is one message published on the report topic, wrapped in its domain.
type Reply struct {
	Domain string
	Body   any
}

func (r Reply) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{r.Domain: r.Body})
}

// Result acknowledges a command that carries no data.
type Result struct {
	Command    string `json:"command"`
	SequenceID string `json:"sequence_id"`
	Result     string `json:"result"`
	Reason     string `json:"reason,omitempty"`
}

// HistoryResult answers get_history.
type HistoryResult struct {
	Command    string           `json:"command"`
	SequenceID string           `json:"sequence_id"`
	Result     string           `json:"result"`
	Total      int              `json:"total"`
	Start      int              `json:"start"`
	Count      int              `json:"count"`
	Records    []printer.Record `json:"records"`
}

// VersionResult answers get_version.
type VersionResult struct {
	Command    string           `json:"command"`
	SequenceID string           `json:"sequence_id"`
	Result     string           `json:"result"`
	Module     []printer.Module `json:"module"`
}

// StatusPush wraps a full status report in the print domain.
func StatusPush(r printer.StatusReport) Reply {
	return Reply{Domain: DomainPrint, Body: r}
}
