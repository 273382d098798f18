package options

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

var _ IOptions = (*TLSOptions)(nil)

// TLSOptions points at the externally supplied certificate material
// shared by the control and stream listeners.
type TLSOptions struct {
	CertFile string `json:"cert-file" mapstructure:"cert-file"`
	KeyFile  string `json:"key-file" mapstructure:"key-file"`

	// Watch reloads the key pair when either file changes.
	Watch bool `json:"watch" mapstructure:"watch"`
}

// NewTLSOptions creates a TLSOptions with default values.
func NewTLSOptions() *TLSOptions {
	return &TLSOptions{
		CertFile: "certs/server.crt",
		KeyFile:  "certs/server.key",
		Watch:    true,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *TLSOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.CertFile == "" || o.KeyFile == "" {
		return append(errs, errors.New("--tls.cert-file and --tls.key-file are required"))
	}
	for _, f := range []string{o.CertFile, o.KeyFile} {
		if _, err := os.Stat(f); err != nil {
			errs = append(errs, fmt.Errorf("tls material %q: %w (generate it with `p2s-sim gen-cert`)", f, err))
		}
	}
	return errs
}

// AddFlags adds flags for TLSOptions to the specified FlagSet.
func (o *TLSOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.CertFile, "tls.cert-file", o.CertFile, "PEM certificate presented by the control and stream listeners.")
	fs.StringVar(&o.KeyFile, "tls.key-file", o.KeyFile, "PEM private key matching --tls.cert-file.")
	fs.BoolVar(&o.Watch, "tls.watch", o.Watch, "Reload the certificate when the files change.")
}
