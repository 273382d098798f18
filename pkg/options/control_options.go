package options

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*ControlOptions)(nil)

// ControlOptions configures the MQTT-framed control listener and device identity.
type ControlOptions struct {
	// Addr is the TLS listen address.
	Addr string `json:"addr" mapstructure:"addr"`

	// Serial is the device serial number used in topic names.
	Serial string `json:"serial" mapstructure:"serial"`

	// Username is the only username accepted on CONNECT.
	Username string `json:"username" mapstructure:"username"`

	// AccessCode is the password expected on CONNECT.
	AccessCode string `json:"access-code" mapstructure:"access-code"`

	// HandshakeTimeout bounds the TLS handshake of each connection.
	HandshakeTimeout time.Duration `json:"handshake-timeout" mapstructure:"handshake-timeout"`

	// WriteTimeout bounds every write to a client.
	WriteTimeout time.Duration `json:"write-timeout" mapstructure:"write-timeout"`

	// TopicRoot is the first topic segment, "device" on real hardware.
	TopicRoot string `json:"topic-root" mapstructure:"topic-root"`
}

// NewControlOptions creates a ControlOptions with the factory defaults of the device.
func NewControlOptions() *ControlOptions {
	return &ControlOptions{
		Addr:             "0.0.0.0:8883",
		Serial:           "01S00A123456789",
		Username:         "bblp",
		AccessCode:       "test1234",
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		TopicRoot:        "device",
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *ControlOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if err := ValidateAddress(o.Addr); err != nil {
		errs = append(errs, fmt.Errorf("--control.addr: %w", err))
	}
	if o.Serial == "" {
		errs = append(errs, errors.New("--control.serial must not be empty"))
	}
	if o.Username == "" {
		errs = append(errs, errors.New("--control.username must not be empty"))
	}
	if o.AccessCode == "" {
		errs = append(errs, errors.New("--control.access-code must not be empty"))
	}
	if o.HandshakeTimeout <= 0 || o.WriteTimeout <= 0 {
		errs = append(errs, errors.New("--control.handshake-timeout and --control.write-timeout must be positive"))
	}
	return errs
}

// AddFlags adds flags for ControlOptions to the specified FlagSet.
func (o *ControlOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Addr, "control.addr", o.Addr, "TLS bind address of the MQTT control listener.")
	fs.StringVar(&o.Serial, "control.serial", o.Serial, "Device serial number, used in device/{serial}/request and device/{serial}/report.")
	fs.StringVar(&o.Username, "control.username", o.Username, "Username accepted on CONNECT.")
	fs.StringVar(&o.AccessCode, "control.access-code", o.AccessCode, "Access code (CONNECT password) of the device.")
	fs.DurationVar(&o.HandshakeTimeout, "control.handshake-timeout", o.HandshakeTimeout, "Maximum duration of a TLS handshake.")
	fs.DurationVar(&o.WriteTimeout, "control.write-timeout", o.WriteTimeout, "Maximum duration of a single write to a client.")
	fs.StringVar(&o.TopicRoot, "control.topic-root", o.TopicRoot, "First segment of the device topics.")
}
