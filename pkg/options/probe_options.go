package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*ProbeOptions)(nil)

// Probe output formats.
const (
	OutputTable = "table"
	OutputJSON  = "json"
)

// ProbeOptions configures how the probe waits for and prints replies.
type ProbeOptions struct {
	// Timeout bounds connecting plus one request/reply exchange.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// Output is either "table" or "json".
	Output string `json:"output" mapstructure:"output"`
}

func NewProbeOptions() *ProbeOptions {
	return &ProbeOptions{
		Timeout: 10 * time.Second,
		Output:  OutputTable,
	}
}

func (o *ProbeOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("--probe.timeout must be positive, got %v", o.Timeout))
	}
	if o.Output != OutputTable && o.Output != OutputJSON {
		errs = append(errs, fmt.Errorf("--probe.output %q: must be %q or %q", o.Output, OutputTable, OutputJSON))
	}
	return errs
}

func (o *ProbeOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.DurationVar(&o.Timeout, "probe.timeout", o.Timeout, "Time allowed for connecting and receiving the reply.")
	fs.StringVarP(&o.Output, "probe.output", "o", o.Output, "Output format, 'table' or 'json'.")
}
