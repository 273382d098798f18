package options

import (
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/printersim/pkg/app"
	"github.com/autopeer-io/printersim/pkg/log"
	"github.com/autopeer-io/printersim/pkg/options"
)

type ProbeOptions struct {
	MqttOptions  *options.MqttOptions  `json:"mqtt" mapstructure:"mqtt"`
	ProbeOptions *options.ProbeOptions `json:"probe" mapstructure:"probe"`
	Log          *log.Options          `json:"log" mapstructure:"log"`
}

var _ app.NamedFlagSetOptions = (*ProbeOptions)(nil)

func NewProbeOptions() *ProbeOptions {
	o := &ProbeOptions{
		MqttOptions:  options.NewMqttOptions(),
		ProbeOptions: options.NewProbeOptions(),
		Log:          log.NewOptions(),
	}
	// Tables go to stdout, so logs stay quiet and on stderr.
	o.Log.Level = "warn"
	o.Log.OutputPaths = []string{"stderr"}
	return o
}

func (o *ProbeOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.ProbeOptions.AddFlags(fss.FlagSet("probe"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *ProbeOptions) Complete() error {
	return nil
}

func (o *ProbeOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.ProbeOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}
