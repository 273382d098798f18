// Package probe is a request/reply client for printers speaking the device
// MQTT protocol, the simulator included.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/autopeer-io/printersim/internal/simulator/command"
	"github.com/autopeer-io/printersim/internal/simulator/printer"
	"github.com/autopeer-io/printersim/pkg/log"
	"github.com/autopeer-io/printersim/pkg/mqtt"
	"github.com/autopeer-io/printersim/pkg/mqtt/topic"
	"github.com/autopeer-io/printersim/pkg/options"
)

// ErrFailed is wrapped by errors for replies whose result is not success.
var ErrFailed = errors.New("command failed")

// Request is the body of one command in the print domain.
type Request struct {
	Command    string `json:"command"`
	SequenceID string `json:"sequence_id"`
	GcodeFile  string `json:"gcode_file,omitempty"`
	AMSTray    *int   `json:"ams_tray,omitempty"`
	Gcode      string `json:"gcode,omitempty"`
	Target     *int   `json:"target,omitempty"`
	Start      *int   `json:"start,omitempty"`
	Count      *int   `json:"count,omitempty"`
	Filter     string `json:"filter,omitempty"`
}

// Client sends one command at a time and waits for the reply carrying the
// same sequence id. Unsolicited status pushes use sequence id "0" and are
// never matched.
type Client struct {
	mqtt   mqtt.Client
	topics *topic.TopicBuilder
	serial string
	log    log.Logger

	seq     atomic.Uint64
	mu      sync.Mutex
	pending map[string]chan json.RawMessage
}

// New creates a Client from opts. Call Connect before sending commands.
func New(opts *options.MqttOptions, logger log.Logger) (*Client, error) {
	cli, err := mqtt.NewClient(opts.ToClientConfig())
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.WithName("probe")
	}
	return &Client{
		mqtt:    cli,
		topics:  topic.NewTopicBuilder(opts.TopicRoot),
		serial:  opts.Serial,
		log:     logger,
		pending: make(map[string]chan json.RawMessage),
	}, nil
}

// Connect opens the connection and subscribes to the report topic.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.mqtt.Start(ctx); err != nil {
		return err
	}
	if err := c.mqtt.AwaitConnection(ctx); err != nil {
		return err
	}
	return c.mqtt.Subscribe(ctx, c.topics.Report(c.serial), 0, c.onReport)
}

// Close disconnects from the printer.
func (c *Client) Close(ctx context.Context) {
	c.mqtt.Disconnect(ctx)
}

// Do publishes req with a fresh sequence id and returns the raw body of the
// matching reply.
func (c *Client) Do(ctx context.Context, req Request) (json.RawMessage, error) {
	req.SequenceID = strconv.FormatUint(c.seq.Add(1), 10)
	payload, err := json.Marshal(map[string]Request{command.DomainPrint: req})
	if err != nil {
		return nil, err
	}

	ch := make(chan json.RawMessage, 1)
	c.mu.Lock()
	c.pending[req.SequenceID] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, req.SequenceID)
		c.mu.Unlock()
	}()

	c.log.Debug("Sending command", "command", req.Command, "sequenceID", req.SequenceID)
	if err := c.mqtt.Publish(ctx, c.topics.Request(c.serial), 1, false, payload); err != nil {
		return nil, fmt.Errorf("publish %s: %w", req.Command, err)
	}

	select {
	case body := <-ch:
		return body, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for %s reply: %w", req.Command, ctx.Err())
	}
}

// onReport routes every domain body of a report to the waiter registered for
// its sequence id.
func (c *Client) onReport(_ context.Context, _ string, payload []byte) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(payload, &envelope); err != nil {
		c.log.Warn("Dropping malformed report", "error", err)
		return
	}
	for domain, raw := range envelope {
		var h struct {
			SequenceID string `json:"sequence_id"`
		}
		if err := json.Unmarshal(raw, &h); err != nil {
			c.log.Debug("Skipping report body", "domain", domain, "error", err)
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[h.SequenceID]
		if ok {
			delete(c.pending, h.SequenceID)
		}
		c.mu.Unlock()
		if ok {
			ch <- raw
		}
	}
}

// Status asks for a full status push.
func (c *Client) Status(ctx context.Context) (*printer.StatusReport, error) {
	var report printer.StatusReport
	if err := c.call(ctx, Request{Command: command.NamePushAll}, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// History fetches one page of the print history.
func (c *Client) History(ctx context.Context, q printer.Query) (*command.HistoryResult, error) {
	req := Request{Command: command.NameGetHistory, Start: &q.Start, Count: &q.Count, Filter: string(q.Filter)}
	var res command.HistoryResult
	if err := c.call(ctx, req, &res); err != nil {
		return nil, err
	}
	return &res, checkResult(res.Command, res.Result, "")
}

// Version lists the firmware modules.
func (c *Client) Version(ctx context.Context) (*command.VersionResult, error) {
	var res command.VersionResult
	if err := c.call(ctx, Request{Command: command.NameGetVersion}, &res); err != nil {
		return nil, err
	}
	return &res, checkResult(res.Command, res.Result, "")
}

func (c *Client) StartPrint(ctx context.Context, file string, tray int) (*command.Result, error) {
	return c.ack(ctx, Request{Command: command.NameStartPrint, GcodeFile: file, AMSTray: &tray})
}

func (c *Client) Pause(ctx context.Context) (*command.Result, error) {
	return c.ack(ctx, Request{Command: command.NamePause})
}

func (c *Client) Resume(ctx context.Context) (*command.Result, error) {
	return c.ack(ctx, Request{Command: command.NameResume})
}

func (c *Client) Stop(ctx context.Context) (*command.Result, error) {
	return c.ack(ctx, Request{Command: command.NameStop})
}

// Gcode sends raw G-code, one or more newline separated lines.
func (c *Client) Gcode(ctx context.Context, gcode string) (*command.Result, error) {
	return c.ack(ctx, Request{Command: command.NameGcodeLine, Gcode: gcode})
}

func (c *Client) ChangeFilament(ctx context.Context, tray int) (*command.Result, error) {
	return c.ack(ctx, Request{Command: command.NameChangeFilament, Target: &tray})
}

func (c *Client) ack(ctx context.Context, req Request) (*command.Result, error) {
	var res command.Result
	if err := c.call(ctx, req, &res); err != nil {
		return nil, err
	}
	return &res, checkResult(res.Command, res.Result, res.Reason)
}

func (c *Client) call(ctx context.Context, req Request, out any) error {
	raw, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s reply: %w", req.Command, err)
	}
	return nil
}

func checkResult(cmd, result, reason string) error {
	if result == command.ResultSuccess {
		return nil
	}
	if reason != "" {
		return fmt.Errorf("%s: %w: %s (%s)", cmd, ErrFailed, result, reason)
	}
	return fmt.Errorf("%s: %w: %s", cmd, ErrFailed, result)
}
