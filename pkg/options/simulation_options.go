package options

import (
	"errors"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*SimulationOptions)(nil)

// SimulationOptions tunes the background print simulation.
type SimulationOptions struct {
	// TickInterval is the period of the thermal and progress simulation.
	TickInterval time.Duration `json:"tick-interval" mapstructure:"tick-interval"`

	// BroadcastInterval is the period of the unsolicited full status push.
	BroadcastInterval time.Duration `json:"broadcast-interval" mapstructure:"broadcast-interval"`

	// HistoryLimit caps the number of job records kept.
	HistoryLimit int `json:"history-limit" mapstructure:"history-limit"`

	// SeedHistory preloads a few demo job records.
	SeedHistory bool `json:"seed-history" mapstructure:"seed-history"`
}

// NewSimulationOptions creates a SimulationOptions with default values.
func NewSimulationOptions() *SimulationOptions {
	return &SimulationOptions{
		TickInterval:      100 * time.Millisecond,
		BroadcastInterval: 2 * time.Second,
		HistoryLimit:      50,
		SeedHistory:       true,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *SimulationOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.TickInterval <= 0 || o.BroadcastInterval <= 0 {
		errs = append(errs, errors.New("--sim.tick-interval and --sim.broadcast-interval must be positive"))
	}
	if o.HistoryLimit <= 0 {
		errs = append(errs, errors.New("--sim.history-limit must be positive"))
	}
	return errs
}

// AddFlags adds flags for SimulationOptions to the specified FlagSet.
func (o *SimulationOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.DurationVar(&o.TickInterval, "sim.tick-interval", o.TickInterval, "Period of the temperature and progress simulation.")
	fs.DurationVar(&o.BroadcastInterval, "sim.broadcast-interval", o.BroadcastInterval, "Period of the full status push to authenticated clients.")
	fs.IntVar(&o.HistoryLimit, "sim.history-limit", o.HistoryLimit, "Maximum number of print history records kept.")
	fs.BoolVar(&o.SeedHistory, "sim.seed-history", o.SeedHistory, "Preload demo print history records.")
}
