// Package command turns JSON request bodies into typed printer commands and
// applies them.
//
// A request is an envelope keyed by domain:
//
//	{"print": {"command": "pause", "sequence_id": "7"}}
//
// Every domain in the envelope carries one command. Replies are published
// under the same domain key and echo the sequence id.
package command

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/autopeer-io/printersim/internal/simulator/printer"
)

// DomainPrint is the domain used for status pushes and by most clients.
const DomainPrint = "print"

// Wire names of the supported commands.
const (
	NameStartPrint     = "start_print"
	NameProjectFile    = "project_file"
	NameStart          = "start"
	NamePause          = "pause"
	NameResume         = "resume"
	NameStop           = "stop"
	NameGcodeLine      = "gcode_line"
	NameChangeFilament = "change_filament"
	NameAMSChange      = "ams_change_filament"
	NamePushAll        = "push_all"
	NameGetHistory     = "get_history"
	NameGetVersion     = "get_version"
)

const (
	defaultSequenceID   = "0"
	defaultGcodeFile    = "test.gcode"
	defaultHistoryCount = 10
)

// ErrNotObject is returned when a payload is not a JSON object.
var ErrNotObject = errors.New("payload is not a JSON object")

// Header identifies where a command came from.
type Header struct {
	Domain     string
	Name       string
	SequenceID string
}

// Command is one of the types declared in this package.
type Command interface {
	Meta() Header
}

func (h Header) Meta() Header { return h }

type StartPrint struct {
	Header
	File string
	Tray int
}

type Pause struct{ Header }

type Resume struct{ Header }

type Stop struct{ Header }

type GcodeLine struct {
	Header
	Gcode string
}

type ChangeFilament struct {
	Header
	Tray int
}

type PushAll struct{ Header }

type GetHistory struct {
	Header
	Query printer.Query
}

type GetVersion struct{ Header }

// Unknown is any command name the simulator does not implement.
type Unknown struct{ Header }

// SequenceID accepts a JSON string or number.
type SequenceID string

func (s *SequenceID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		return nil
	case len(data) > 0 && data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = SequenceID(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("sequence_id: %w", err)
	}
	*s = SequenceID(n.String())
	return nil
}

// body is the union of every parameter any command reads.
type body struct {
	Command     string     `json:"command"`
	SequenceID  SequenceID `json:"sequence_id"`
	GcodeFile   string     `json:"gcode_file"`
	File        string     `json:"file"`
	SubtaskName string     `json:"subtask_name"`
	AMSTray     *int       `json:"ams_tray"`
	Gcode       string     `json:"gcode"`
	TargetAMS   *int       `json:"target_ams"`
	Target      *int       `json:"target"`
	Start       int        `json:"start"`
	Count       *int       `json:"count"`
	Filter      string     `json:"filter"`
}

// ParseError reports a domain whose body could not be decoded.
type ParseError struct {
	Domain string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("domain %q: %v", e.Domain, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse decodes every domain of payload in document order. Domains that
// fail to decode are skipped and reported through the returned aggregate
// error; the commands that did decode are still returned.
func Parse(payload []byte) ([]Command, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, ErrNotObject
	}

	var (
		cmds []Command
		errs []error
	)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return cmds, fmt.Errorf("read domain: %w", err)
		}
		domain, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return cmds, fmt.Errorf("read domain %q: %w", domain, err)
		}

		cmd, err := parseDomain(domain, raw)
		if err != nil {
			errs = append(errs, &ParseError{Domain: domain, Err: err})
			continue
		}
		cmds = append(cmds, cmd)
	}
	if _, err := dec.Token(); err != nil {
		errs = append(errs, fmt.Errorf("close envelope: %w", err))
	}
	return cmds, utilerrors.NewAggregate(errs)
}

func parseDomain(domain string, raw json.RawMessage) (Command, error) {
	if len(raw) == 0 || raw[0] != '{' {
		return nil, ErrNotObject
	}
	var b body
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, err
	}

	h := Header{Domain: domain, Name: b.Command, SequenceID: string(b.SequenceID)}
	if h.SequenceID == "" {
		h.SequenceID = defaultSequenceID
	}

	switch b.Command {
	case NameStartPrint, NameProjectFile, NameStart:
		return StartPrint{Header: h, File: b.file(), Tray: deref(b.AMSTray, 0)}, nil
	case NamePause:
		return Pause{h}, nil
	case NameResume:
		return Resume{h}, nil
	case NameStop:
		return Stop{h}, nil
	case NameGcodeLine:
		return GcodeLine{Header: h, Gcode: b.Gcode}, nil
	case NameChangeFilament, NameAMSChange:
		tray := deref(b.TargetAMS, deref(b.Target, 0))
		return ChangeFilament{Header: h, Tray: tray}, nil
	case NamePushAll:
		return PushAll{h}, nil
	case NameGetHistory:
		q := printer.Query{
			Start:  b.Start,
			Count:  deref(b.Count, defaultHistoryCount),
			Filter: printer.Filter(b.Filter),
		}
		if q.Filter == "" {
			q.Filter = printer.FilterAll
		}
		return GetHistory{Header: h, Query: q}, nil
	case NameGetVersion:
		return GetVersion{h}, nil
	default:
		return Unknown{h}, nil
	}
}

func (b body) file() string {
	for _, f := range []string{b.GcodeFile, b.File, b.SubtaskName} {
		if f != "" {
			return f
		}
	}
	return defaultGcodeFile
}

func deref(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

// Canonical returns the name replies use for cmd.
func Canonical(cmd Command) string {
	switch cmd.(type) {
	case StartPrint:
		return NameStartPrint
	case Pause:
		return NamePause
	case Resume:
		return NameResume
	case Stop:
		return NameStop
	case GcodeLine:
		return NameGcodeLine
	case ChangeFilament:
		return NameChangeFilament
	case PushAll:
		return NamePushAll
	case GetHistory:
		return NameGetHistory
	case GetVersion:
		return NameGetVersion
	}
	return cmd.Meta().Name
}
