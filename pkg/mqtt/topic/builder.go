package topic

import (
	"fmt"
	"strings"

	"github.com/autopeer-io/printersim/pkg/mqtt"
)

// Topic suffixes of the printer protocol. Changing them breaks every client.
const (
	// SuffixRequest carries commands from clients to the printer.
	// Structure: {root}/{serial}/request
	SuffixRequest = "request"

	// SuffixReport carries replies and status pushes from the printer.
	// Structure: {root}/{serial}/report
	SuffixReport = "report"
)

// DefaultRoot is the root used by real printers.
const DefaultRoot = "device"

// TopicBuilder constructs the per-device topic strings.
type TopicBuilder struct {
	root string
}

// NewTopicBuilder creates a TopicBuilder. An empty root means DefaultRoot.
func NewTopicBuilder(root string) *TopicBuilder {
	if root == "" {
		root = DefaultRoot
	}
	return &TopicBuilder{root: root}
}

// Request returns the topic clients publish commands to.
// Direction: Client -> Printer
func (b *TopicBuilder) Request(serial string) string {
	return b.build(serial, SuffixRequest)
}

// Report returns the topic the printer publishes replies and status on.
// Direction: Printer -> Client
func (b *TopicBuilder) Report(serial string) string {
	return b.build(serial, SuffixReport)
}

// ReportWildcard matches the report topic of every device under the root.
// Result: {root}/+/report
func (b *TopicBuilder) ReportWildcard() string {
	return b.build(mqtt.Wildcard, SuffixReport)
}

// Serial extracts the serial from a {root}/{serial}/{suffix} topic.
func (b *TopicBuilder) Serial(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, b.root+"/")
	if !ok {
		return "", false
	}
	serial, suffix, ok := strings.Cut(rest, "/")
	if !ok || serial == "" || (suffix != SuffixRequest && suffix != SuffixReport) {
		return "", false
	}
	return serial, true
}

// build constructs {root}/{serial}/{suffix}.
func (b *TopicBuilder) build(serial, suffix string) string {
	return fmt.Sprintf("%s/%s/%s", b.root, serial, suffix)
}
