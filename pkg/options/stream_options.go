package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*StreamOptions)(nil)

// StreamOptions configures the synthetic camera stream listener.
type StreamOptions struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`

	// FrameRate is the number of frames sent per second to each client.
	FrameRate float64 `json:"frame-rate" mapstructure:"frame-rate"`

	// FrameSize is the number of random payload bytes between the JPEG markers.
	FrameSize int `json:"frame-size" mapstructure:"frame-size"`

	WriteTimeout time.Duration `json:"write-timeout" mapstructure:"write-timeout"`
}

// NewStreamOptions creates a StreamOptions with default values.
func NewStreamOptions() *StreamOptions {
	return &StreamOptions{
		Enabled:      true,
		Addr:         "0.0.0.0:6000",
		FrameRate:    10,
		FrameSize:    1024,
		WriteTimeout: 5 * time.Second,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *StreamOptions) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}

	var errs []error
	if err := ValidateAddress(o.Addr); err != nil {
		errs = append(errs, fmt.Errorf("--stream.addr: %w", err))
	}
	if o.FrameRate <= 0 {
		errs = append(errs, fmt.Errorf("--stream.frame-rate must be positive, got %v", o.FrameRate))
	}
	if o.FrameSize < 0 {
		errs = append(errs, fmt.Errorf("--stream.frame-size must not be negative, got %d", o.FrameSize))
	}
	return errs
}

// AddFlags adds flags for StreamOptions to the specified FlagSet.
func (o *StreamOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Enabled, "stream.enabled", o.Enabled, "Serve the synthetic camera stream.")
	fs.StringVar(&o.Addr, "stream.addr", o.Addr, "TLS bind address of the camera stream listener.")
	fs.Float64Var(&o.FrameRate, "stream.frame-rate", o.FrameRate, "Frames per second sent to each stream client.")
	fs.IntVar(&o.FrameSize, "stream.frame-size", o.FrameSize, "Random payload bytes per synthetic JPEG frame.")
	fs.DurationVar(&o.WriteTimeout, "stream.write-timeout", o.WriteTimeout, "Maximum duration of a single frame write.")
}
