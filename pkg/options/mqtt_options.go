package options

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/pflag"

	"github.com/autopeer-io/printersim/pkg/mqtt"
)

var _ IOptions = (*MqttOptions)(nil)

// MqttOptions configures an MQTT 3.1.1 client talking to a printer (real or simulated).
type MqttOptions struct {
	Broker   string `json:"broker" mapstructure:"broker"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	ClientID string `json:"client-id" mapstructure:"client-id"`

	// Serial selects the device/{serial}/... topics.
	Serial string `json:"serial" mapstructure:"serial"`

	// Client behavior
	KeepAlive      time.Duration `json:"keep-alive" mapstructure:"keep-alive"`
	ConnectTimeout time.Duration `json:"connect-timeout" mapstructure:"connect-timeout"`

	// InsecureSkipVerify controls whether a client verifies the server's certificate chain and host name.
	// Printers present self-signed certificates, so this defaults to true.
	InsecureSkipVerify bool `json:"insecure-skip-verify" mapstructure:"insecure-skip-verify"`

	TopicRoot string `json:"topic-root" mapstructure:"topic-root"`
}

// NewMqttOptions creates a new MqttOptions matching the simulator defaults.
func NewMqttOptions() *MqttOptions {
	return &MqttOptions{
		Broker:             "ssl://127.0.0.1:8883",
		Username:           "bblp",
		Password:           "test1234",
		Serial:             "01S00A123456789",
		KeepAlive:          60 * time.Second,
		ConnectTimeout:     5 * time.Second,
		InsecureSkipVerify: true,
		TopicRoot:          "device",
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *MqttOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}
	if u, err := url.Parse(o.Broker); err != nil || u.Host == "" {
		errs = append(errs, fmt.Errorf("--mqtt.broker %q is not a valid broker URL", o.Broker))
	}
	if o.Serial == "" {
		errs = append(errs, errors.New("--mqtt.serial must not be empty"))
	}
	return errs
}

// AddFlags adds flags for MqttOptions to the specified FlagSet.
func (o *MqttOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Broker, "mqtt.broker", o.Broker, "Printer URL, e.g. ssl://192.168.1.50:8883.")
	fs.StringVar(&o.Username, "mqtt.username", o.Username, "The username for MQTT authentication.")
	fs.StringVar(&o.Password, "mqtt.password", o.Password, "The printer access code.")
	fs.StringVar(&o.ClientID, "mqtt.client-id", o.ClientID, "Explicit Client ID (optional, generated when empty).")
	fs.StringVar(&o.Serial, "mqtt.serial", o.Serial, "Serial number of the target printer.")

	fs.DurationVar(&o.KeepAlive, "mqtt.keep-alive", o.KeepAlive, "MQTT Keep Alive interval.")
	fs.DurationVar(&o.ConnectTimeout, "mqtt.connect-timeout", o.ConnectTimeout, "Timeout for establishing MQTT connection.")
	fs.BoolVar(&o.InsecureSkipVerify, "mqtt.insecure-skip-verify", o.InsecureSkipVerify, "If true, skips the TLS certificate verification.")
	fs.StringVar(&o.TopicRoot, "mqtt.topic-root", o.TopicRoot, "First segment of the device topics.")
}

func (o *MqttOptions) ToClientConfig() *mqtt.ClientConfig {
	return &mqtt.ClientConfig{
		BrokerURL:          o.Broker,
		Username:           o.Username,
		Password:           o.Password,
		ClientID:           o.ClientID,
		KeepAlive:          uint16(o.KeepAlive.Seconds()),
		ConnectTimeout:     o.ConnectTimeout,
		CleanSession:       true,
		InsecureSkipVerify: o.InsecureSkipVerify,
	}
}
